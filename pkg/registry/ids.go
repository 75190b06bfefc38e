package registry

import "github.com/omaskery/tracelog/pkg/word"

// Module ids of the 802.15.4 radio driver. Alternative implementations of the same module
// (for example the arbiter variants) share one id, otherwise ids are unique.
const (
	ModuleApplication     word.Module = 1
	ModuleCore            word.Module = 2
	ModuleRsch            word.Module = 3
	ModuleCriticalSection word.Module = 4
	ModuleTimerCoord      word.Module = 5
	ModuleTrx             word.Module = 6
	ModuleTimerSched      word.Module = 7
	ModuleCsmaCa          word.Module = 8
	ModuleDelayedTrx      word.Module = 9
	ModuleAckTimeout      word.Module = 10
	ModuleRaal            word.Module = 11
)

// Global events
const (
	EventSetState              word.EventID = 5
	EventRadioReset            word.EventID = 6
	EventTimeslotRequest       word.EventID = 7
	EventTimeslotRequestResult word.EventID = 8
)

// Function codes. 0x0300 to 0x047F is reserved for the arbiter.
const (
	FunctionAutoAckAbort    uint32 = 0x0201
	FunctionTimeslotStarted uint32 = 0x0202
	FunctionTimeslotEnded   uint32 = 0x0203
	FunctionCritSectEnter   uint32 = 0x0204
	FunctionCritSectExit    uint32 = 0x0205

	FunctionRaalCritSectEnter   uint32 = 0x0301
	FunctionRaalCritSectExit    uint32 = 0x0302
	FunctionRaalContinuousEnter uint32 = 0x0303
	FunctionRaalContinuousExit  uint32 = 0x0304

	FunctionRaalSigHandler            uint32 = 0x0400
	FunctionRaalSigEventStart         uint32 = 0x0401
	FunctionRaalSigEventMargin        uint32 = 0x0402
	FunctionRaalSigEventExtend        uint32 = 0x0403
	FunctionRaalSigEventEnded         uint32 = 0x0404
	FunctionRaalSigEventRadio         uint32 = 0x0405
	FunctionRaalSigEventExtendSuccess uint32 = 0x0406
	FunctionRaalSigEventExtendFail    uint32 = 0x0407
	FunctionRaalEvtBlocked            uint32 = 0x0408
	FunctionRaalEvtSessionIdle        uint32 = 0x0409
	FunctionRaalEvtHfclkReady         uint32 = 0x040A
	FunctionRaalSigEventMarginMove    uint32 = 0x040B

	RaalFunctionsFirst uint32 = 0x0300
	RaalFunctionsLast  uint32 = 0x047F
)

// Builtin describes the ids above
func Builtin() *Registry {
	r := &Registry{
		Modules: []Module{
			{ID: ModuleApplication, Name: "application"},
			{ID: ModuleCore, Name: "core"},
			{ID: ModuleRsch, Name: "rsch"},
			{ID: ModuleCriticalSection, Name: "critical_section"},
			{ID: ModuleTimerCoord, Name: "timer_coord"},
			{ID: ModuleTrx, Name: "trx"},
			{ID: ModuleTimerSched, Name: "timer_sched"},
			{ID: ModuleCsmaCa, Name: "csma_ca"},
			{ID: ModuleDelayedTrx, Name: "delayed_trx"},
			{ID: ModuleAckTimeout, Name: "ack_timeout"},
			{ID: ModuleRaal, Name: "raal"},
		},
		GlobalEvents: []Event{
			{ID: EventSetState, Text: "Set state", Param: ParamUint},
			{ID: EventRadioReset, Text: "Radio reset"},
			{ID: EventTimeslotRequest, Text: "Timeslot request", Param: ParamUint},
			{ID: EventTimeslotRequestResult, Text: "Timeslot request result", Param: ParamUint},
		},
		Functions: []Function{
			{ID: FunctionAutoAckAbort, Name: "auto_ack_abort"},
			{ID: FunctionTimeslotStarted, Name: "timeslot_started"},
			{ID: FunctionTimeslotEnded, Name: "timeslot_ended"},
			{ID: FunctionCritSectEnter, Name: "crit_sect_enter"},
			{ID: FunctionCritSectExit, Name: "crit_sect_exit"},
			{ID: FunctionRaalCritSectEnter, Name: "raal_crit_sect_enter"},
			{ID: FunctionRaalCritSectExit, Name: "raal_crit_sect_exit"},
			{ID: FunctionRaalContinuousEnter, Name: "raal_continuous_enter"},
			{ID: FunctionRaalContinuousExit, Name: "raal_continuous_exit"},
			{ID: FunctionRaalSigHandler, Name: "raal_sig_handler"},
			{ID: FunctionRaalSigEventStart, Name: "raal_sig_event_start"},
			{ID: FunctionRaalSigEventMargin, Name: "raal_sig_event_margin"},
			{ID: FunctionRaalSigEventExtend, Name: "raal_sig_event_extend"},
			{ID: FunctionRaalSigEventEnded, Name: "raal_sig_event_ended"},
			{ID: FunctionRaalSigEventRadio, Name: "raal_sig_event_radio"},
			{ID: FunctionRaalSigEventExtendSuccess, Name: "raal_sig_event_extend_success"},
			{ID: FunctionRaalSigEventExtendFail, Name: "raal_sig_event_extend_fail"},
			{ID: FunctionRaalEvtBlocked, Name: "raal_evt_blocked"},
			{ID: FunctionRaalEvtSessionIdle, Name: "raal_evt_session_idle"},
			{ID: FunctionRaalEvtHfclkReady, Name: "raal_evt_hfclk_ready"},
			{ID: FunctionRaalSigEventMarginMove, Name: "raal_sig_event_margin_move"},
		},
	}
	if err := r.index(); err != nil {
		panic(err)
	}
	return r
}
