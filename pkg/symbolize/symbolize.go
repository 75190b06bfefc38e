// symbolize resolves function identities recorded in trace words to names from a firmware image
package symbolize

import (
	"debug/elf"
	"errors"
	"fmt"
	"sort"

	"github.com/ianlancetaylor/demangle"

	"github.com/omaskery/tracelog/pkg/word"
)

var (
	ErrNoFunctions = errors.New("image contains no function symbols")
)

// Symbol is a function occupying [Low, High)
type Symbol struct {
	Name string
	Low  uint64
	High uint64
}

// Table is a function table sorted by address, also indexed by the truncated identities
// that entry/exit words carry
type Table struct {
	byAddr     []Symbol
	byIdentity []identityRange
	thumb      bool
}

type identityRange struct {
	low, high uint64
	sym       int
}

// Open reads the function symbols of the ELF file at path
func Open(path string) (*Table, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	t, err := FromELF(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// FromELF builds a table from the function symbols of f. C++ names are demangled.
func FromELF(f *elf.File) (*Table, error) {
	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}

	thumb := f.Machine == elf.EM_ARM
	out := make([]Symbol, 0, len(syms))
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Section == elf.SHN_UNDEF {
			continue
		}
		low := sym.Value
		if thumb {
			// the low bit of a Thumb function address selects the instruction set
			low &^= 1
		}
		out = append(out, Symbol{
			Name: demangle.Filter(sym.Name),
			Low:  low,
			High: low + sym.Size,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoFunctions
	}

	t := NewTable(out)
	t.thumb = thumb
	return t, nil
}

// NewTable builds a table from syms. Symbols without a size extend to the next symbol.
func NewTable(syms []Symbol) *Table {
	byAddr := append([]Symbol{}, syms...)
	sort.SliceStable(byAddr, func(i, j int) bool {
		return byAddr[i].Low < byAddr[j].Low
	})

	for i := range byAddr {
		if byAddr[i].High > byAddr[i].Low {
			continue
		}
		if i == len(byAddr)-1 {
			byAddr[i].High = byAddr[i].Low + 1
		} else {
			byAddr[i].High = byAddr[i+1].Low
		}
	}

	byIdentity := make([]identityRange, 0, len(byAddr))
	for i, s := range byAddr {
		low := s.Low & word.FunctionMask
		byIdentity = append(byIdentity, identityRange{
			low:  low,
			high: low + (s.High - s.Low),
			sym:  i,
		})
	}
	sort.SliceStable(byIdentity, func(i, j int) bool {
		return byIdentity[i].low < byIdentity[j].low
	})

	return &Table{byAddr: byAddr, byIdentity: byIdentity}
}

// Symbols lists the table in address order
func (t *Table) Symbols() []Symbol {
	return t.byAddr
}

// LookupAddr finds the function containing a full code address
func (t *Table) LookupAddr(addr uint64) (Symbol, bool) {
	if t.thumb {
		addr &^= 1
	}
	i := sort.Search(len(t.byAddr), func(i int) bool {
		return t.byAddr[i].Low > addr
	}) - 1
	if i < 0 || addr >= t.byAddr[i].High {
		return Symbol{}, false
	}
	return t.byAddr[i], true
}

// Lookup finds the function containing a truncated identity. Images larger than the
// identity range alias, the containing function starting closest below the identity wins.
func (t *Table) Lookup(identity uint32) (Symbol, bool) {
	id := uint64(identity & word.FunctionMask)
	if t.thumb {
		id &^= 1
	}
	i := sort.Search(len(t.byIdentity), func(i int) bool {
		return t.byIdentity[i].low > id
	})
	for j := i - 1; j >= 0; j-- {
		if r := t.byIdentity[j]; id < r.high {
			return t.byAddr[r.sym], true
		}
	}
	return Symbol{}, false
}
