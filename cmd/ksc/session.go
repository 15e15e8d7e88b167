package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ksc/internal/codegen"
	"ksc/internal/observ"
	"ksc/internal/prof"
	"ksc/internal/trace"
)

// session is the per-command state shared by build, run and desc.
type session struct {
	settings *settings
	tracer   trace.Tracer
	timer    *observ.Timer
	stderr   io.Writer
}

// withSession loads settings, starts profiling and tracing, and runs fn
// under a driver span. A lowering contract violation is reported with the
// trace ring dumped instead of crashing the process.
func withSession(cmd *cobra.Command, name string, fn func(ctx context.Context, s *session) error) (err error) {
	timer := observ.NewTimer()
	setup := timer.Begin("setup")
	st, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	sess := &session{settings: st, timer: timer, stderr: cmd.ErrOrStderr()}

	profiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if perr := profiling.Stop(); perr != nil {
			fmt.Fprintf(sess.stderr, "ksc: profiling: %v\n", perr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	tracer, cleanup, err := setupTracing(st)
	if err != nil {
		return err
	}
	defer cleanup()
	sess.tracer = tracer
	ctx = trace.WithTracer(ctx, tracer)
	span := trace.Begin(tracer, trace.ScopeDriver, "ksc "+name, 0)
	ctx = trace.WithSpan(ctx, span)
	timer.End(setup, "")

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		span.End("panic")
		ce, ok := r.(codegen.ContractError)
		sess.dumpRing()
		if !ok {
			panic(r)
		}
		err = fmt.Errorf("internal compiler error: %w", ce)
	}()

	phase := timer.Begin(name)
	err = fn(ctx, sess)
	timer.End(phase, "")
	if err != nil {
		span.End("error")
	} else {
		span.End("")
	}
	if st.timings && !st.quiet {
		fmt.Fprint(sess.stderr, timer.Summary())
	}
	return err
}

// dumpRing writes the events kept in the trace ring, if there is one, to
// stderr.
func (s *session) dumpRing() {
	ring := trace.RingOf(s.tracer)
	if ring == nil {
		return
	}
	w := s.stderr
	format, err := trace.ParseFormat(s.settings.traceFormat)
	if err != nil || format == trace.FormatAuto {
		format = trace.FormatText
	}
	fmt.Fprintln(w, "--- trace ring ---")
	if err := ring.Dump(w, format); err != nil {
		fmt.Fprintf(s.stderr, "ksc: trace dump: %v\n", err)
	}
}

func setupProfiling(cmd *cobra.Command) (*prof.Session, error) {
	flags := cmd.Root().PersistentFlags()
	var opts prof.Options
	var err error
	if opts.CPU, err = flags.GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if opts.Mem, err = flags.GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if opts.Trace, err = flags.GetString("exec-trace"); err != nil {
		return nil, fmt.Errorf("failed to get exec-trace flag: %w", err)
	}
	return prof.Start(opts)
}

// setupTracing builds the tracer the settings describe. The returned
// cleanup stops the heartbeat and flushes the tracer.
func setupTracing(st *settings) (trace.Tracer, func(), error) {
	level, err := trace.ParseLevel(st.traceLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace level: %w", err)
	}
	if level == trace.LevelOff {
		return trace.Nop, func() {}, nil
	}
	mode, err := trace.ParseMode(st.traceMode)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	format, err := trace.ParseFormat(st.traceFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trace format: %w", err)
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		OutputPath: st.traceOutput,
		RingSize:   st.traceRingSize,
		Heartbeat:  st.traceHeartbeat,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	var heartbeat *trace.Heartbeat
	if st.traceHeartbeat > 0 {
		heartbeat = trace.StartHeartbeat(tracer, st.traceHeartbeat)
	}
	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "trace: close error: %v\n", err)
		}
	}
	return tracer, cleanup, nil
}
