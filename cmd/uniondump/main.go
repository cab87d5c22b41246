// Command uniondump decodes Anthropic Messages payloads with the codec and
// prints one JSON record per decoded value. It reads JSON documents (a single
// value or an array of values) or, with -sse, a recorded text/event-stream
// body.
//
// Usage:
//
//	uniondump [-config file] [-kind kind] [-strict] [-sse [-collect]] [file]
//
// The input is read from stdin when file is omitted or "-".
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"goa.design/clue/log"

	"goa.design/anthropic-codec/features/stream/sse"
	"goa.design/anthropic-codec/runtime/telemetry"
)

func main() {
	var (
		configF  = flag.String("config", "", "YAML configuration file")
		kindF    = flag.String("kind", "content", "Kind of JSON value to decode: "+kindNames())
		strictF  = flag.Bool("strict", false, "Reject unknown variants")
		sseF     = flag.Bool("sse", false, "Decode a text/event-stream body")
		collectF = flag.Bool("collect", false, "With -sse, print only the accumulated message")
		dbgF     = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	cfg, err := loadConfig(*configF)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *strictF {
		cfg.Strict = true
	}
	if *dbgF {
		cfg.Debug = true
	}

	ctx := logContext(context.Background(), cfg)
	if err := run(ctx, cfg, options{kind: *kindF, sse: *sseF, collect: *collectF, path: flag.Arg(0)}, os.Stdin, os.Stdout); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "uniondump failed"})
		os.Exit(1)
	}
}

type options struct {
	kind    string
	sse     bool
	collect bool
	path    string
}

func logContext(ctx context.Context, cfg config) context.Context {
	format := log.FormatJSON
	switch cfg.LogFormat {
	case "terminal":
		format = log.FormatTerminal
	case "", "auto":
		if log.IsTerminal() {
			format = log.FormatTerminal
		}
	}
	ctx = log.Context(ctx, log.WithFormat(format))
	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	return ctx
}

func run(ctx context.Context, cfg config, opts options, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if opts.path != "" && opts.path != "-" {
		f, err := os.Open(opts.path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	logger := telemetry.NewClueLogger()
	if opts.sse {
		readerOpts := []sse.Option{
			sse.WithPolicy(cfg.policy()),
			sse.WithMaxEventBytes(cfg.MaxEventBytes),
			sse.WithLogger(logger),
			sse.WithMetrics(telemetry.NewClueMetrics()),
			sse.WithTracer(telemetry.NewClueTracer()),
		}
		if cfg.Strict {
			readerOpts = append(readerOpts, sse.WithStrict())
		}
		return dumpSSE(ctx, in, opts.collect, stdout, readerOpts...)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return dumpJSON(ctx, logger, opts.kind, data, cfg.Strict, stdout)
}
