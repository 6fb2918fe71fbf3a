package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"excheck/internal/trace"
)

// ringTracer holds the in-memory tracer of the running command, if any;
// main dumps it when the command fails.
var (
	ringTracer  *trace.RingTracer
	traceFormat trace.Format
)

// dumpTrace writes the buffered events of a failed command to w.
func dumpTrace(w io.Writer) {
	if ringTracer == nil {
		return
	}
	fmt.Fprintln(w, "excheck: last trace events:")
	if err := ringTracer.Dump(w, traceFormat); err != nil {
		fmt.Fprintf(w, "trace: dump error: %v\n", err)
	}
}

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	formatStr, err := root.PersistentFlags().GetString("trace-format")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-format flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace или --trace-ring без уровня включают фазы
	if level == trace.LevelOff && (traceOutput != "" || ringSize > 0) {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	format, err := trace.ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}
	traceFormat = format

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Format:     format,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	if ring, ok := tracer.(*trace.RingTracer); ok {
		ringTracer = ring
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
