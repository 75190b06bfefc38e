package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/omaskery/tracelog/pkg/decoder"
	"github.com/omaskery/tracelog/pkg/dump"
	tio "github.com/omaskery/tracelog/pkg/io"
	"github.com/omaskery/tracelog/pkg/registry"
	"github.com/omaskery/tracelog/pkg/ring"
	"github.com/omaskery/tracelog/pkg/symbolize"
	"github.com/omaskery/tracelog/pkg/util/trace"
)

const reloadDelay = 100 * time.Millisecond

type dumper struct {
	opts    options
	logger  logr.Logger
	reg     *registry.Registry
	symbols *symbolize.Table
}

func newDumper(opts options, logger logr.Logger) (*dumper, error) {
	d := &dumper{
		opts:   opts,
		logger: logger,
		reg:    registry.Builtin(),
	}

	if opts.Registry != "" {
		extra, err := registry.LoadFile(opts.Registry)
		if err != nil {
			return nil, err
		}
		d.reg, err = d.reg.Merge(extra)
		if err != nil {
			return nil, err
		}
		d.logger.V(1).Info("loaded registry", "path", opts.Registry)
	}

	if opts.ELF != "" {
		t, err := symbolize.Open(opts.ELF)
		if err != nil {
			return nil, err
		}
		d.symbols = t
		d.logger.V(1).Info("loaded symbols", "path", opts.ELF, "functions", len(t.Symbols()))
	}

	return d, nil
}

func (d *dumper) layout() dump.Layout {
	l := dump.Layout{
		TrailingCursor: d.opts.TrailingCursor,
		Cursor:         d.opts.Cursor,
	}
	if d.opts.BigEndian {
		l.Order = binary.BigEndian
	}
	return l
}

func (d *dumper) decode() ([]decoder.Record, ring.Image, error) {
	img, err := dump.ReadFile(d.opts.Args.Dump, d.layout())
	if err != nil {
		return nil, ring.Image{}, err
	}

	options := []decoder.Option{
		decoder.WithRegistry(d.reg),
		decoder.WithLogger(d.logger.WithName("decoder")),
	}
	if d.symbols != nil {
		options = append(options, decoder.WithSymbols(d.symbols))
	}
	records := decoder.New(options...).DecodeAll(dump.Words(img, d.opts.KeepZero))
	d.logger.V(1).Info("decoded dump", "capacity", len(img.Words), "cursor", img.Cursor, "records", len(records))
	return records, img, nil
}

const (
	formatText     = "text"
	formatTef      = "tef"
	formatTefArray = "tef-array"
)

// render writes the decoded dump to w in the selected format
func (d *dumper) render(w io.Writer) error {
	records, img, err := d.decode()
	if err != nil {
		return err
	}

	switch d.opts.Format {
	case formatTef:
		return d.renderTef(w, records, img)
	case formatTefArray:
		return d.streamTef(func(options ...trace.TracerOption) (*trace.Tracer, error) {
			return trace.TracerToWriter(nopCloser{w}, options...), nil
		}, records)
	default:
		for _, r := range records {
			if _, err := fmt.Fprintln(w, r); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
		return nil
	}
}

func (d *dumper) renderTef(w io.Writer, records []decoder.Record, img ring.Image) error {
	data := tio.TefData{}
	data.SetMetadata("source", d.opts.Args.Dump)
	data.SetMetadata("capacity", len(img.Words))
	data.SetMetadata("cursor", img.Cursor)

	err := d.streamTef(func(options ...trace.TracerOption) (*trace.Tracer, error) {
		return trace.NewTracer(&data, options...), nil
	}, records)
	if err != nil {
		return err
	}

	return tio.WriteJsonObject(w, data)
}

type newTracerFn = func(options ...trace.TracerOption) (*trace.Tracer, error)

// streamTef converts records through the tracer built by newTracer, failing with the first
// write error
func (d *dumper) streamTef(newTracer newTracerFn, records []decoder.Record) error {
	var traceErr error
	tracer, err := newTracer(
		trace.WithLogger(d.logger.WithName("trace")),
		trace.WithProcessName(filepath.Base(d.opts.Args.Dump)),
		trace.WithErrorHandler(func(err error) {
			if traceErr == nil {
				traceErr = err
			}
		}),
	)
	if err != nil {
		return err
	}

	tracer.TraceAll(records)
	if err := tracer.Close(); err != nil {
		return err
	}
	return traceErr
}

// renderTo renders to the file at path, or stdout when path is empty
func (d *dumper) renderTo(path string) error {
	if path == "" {
		return d.render(os.Stdout)
	}

	if d.opts.Format == formatTefArray {
		records, _, err := d.decode()
		if err != nil {
			return err
		}
		return d.streamTef(func(options ...trace.TracerOption) (*trace.Tracer, error) {
			return trace.TraceToFile(path, options...)
		}, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := d.render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	return nil
}

// nopCloser leaves closing the underlying writer to its owner
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

// watch renders again after the dump file changes until ctx is done
func (d *dumper) watch(ctx context.Context, output string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to start filesystem watcher: %w", err)
	}
	defer watcher.Close()

	// debuggers often replace the file rather than rewrite it, so watch the directory
	target := filepath.Clean(d.opts.Args.Dump)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", target, err)
	}

	// debounce bursts of events from a single capture
	var chanReload <-chan time.Time

	d.logger.Info("watching for new captures", "path", target)
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-chanReload:
			chanReload = nil
			if err := d.renderTo(output); err != nil {
				d.logger.Error(err, "unable to decode capture")
			} else {
				d.logger.V(1).Info("decoded new capture")
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			d.logger.V(2).Info("watcher event", "event", event.String())
			chanReload = time.After(reloadDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Error(err, "watcher error")
		}
	}
}
