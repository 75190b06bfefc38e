package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-logr/stdr"
	"github.com/jessevdk/go-flags"
)

type options struct {
	Cursor         uint32 `long:"cursor" value-name:"N" description:"index of the next slot to be written, when the image has no trailing cursor"`
	TrailingCursor bool   `long:"trailing-cursor" description:"the word following the buffer holds the cursor"`
	BigEndian      bool   `long:"big-endian" description:"the target stores words big-endian"`
	Registry       string `long:"registry" value-name:"FILE" description:"TOML file naming modules, events and functions"`
	ELF            string `long:"elf" value-name:"FILE" description:"firmware image used to name functions missing from the registry"`
	Format         string `long:"format" choice:"text" choice:"tef" choice:"tef-array" default:"text" description:"output format, tef-array streams events as they are converted"`
	Output         string `short:"o" long:"output" value-name:"FILE" description:"write to FILE instead of stdout"`
	KeepZero       bool   `long:"keep-zero" description:"include slots that were never written"`
	Watch          bool   `long:"watch" description:"decode again whenever DUMPFILE changes"`
	Verbose        []bool `short:"v" long:"verbose" description:"log more, may be repeated"`

	Args struct {
		Dump string `positional-arg-name:"DUMPFILE"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] DUMPFILE"
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	stdr.SetVerbosity(len(opts.Verbose))
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("tracelogdump")

	d, err := newDumper(opts, logger)
	if err != nil {
		abortWithErr("failed to load names", err)
	}

	if err := d.renderTo(opts.Output); err != nil {
		abortWithErr("failed to decode dump", err)
	}

	if !opts.Watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := d.watch(ctx, opts.Output); err != nil {
		abortWithErr("failed to watch dump", err)
	}
}

func abortWithErr(reason string, err error) {
	abort(fmt.Sprintf("%s: %v\n", reason, err))
}

func abort(reason string) {
	_, err := os.Stderr.WriteString(reason)
	if err != nil {
		panic(fmt.Sprintf("failed while writing error to terminal: %v", err))
	}
	os.Exit(1)
}
