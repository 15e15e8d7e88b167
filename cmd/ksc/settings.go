package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ksc/internal/backend"
	"ksc/internal/project"
)

// settings is ksc.toml overlaid with the flags given on the command line.
type settings struct {
	manifest      *project.Manifest
	manifestFound bool

	target      backend.Target
	jobs        int
	maxDiags    int
	diagsFormat string
	color       bool
	quiet       bool
	timings     bool

	traceLevel     string
	traceMode      string
	traceFormat    string
	traceOutput    string
	traceRingSize  int
	traceHeartbeat time.Duration
}

// loadSettings discovers ksc.toml from the working directory. A flag
// overrides the manifest only when it was set explicitly.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	m, found, err := project.Discover(".")
	if err != nil {
		return nil, err
	}
	cfg := m.Config
	flags := cmd.Root().PersistentFlags()
	s := &settings{manifest: m, manifestFound: found}

	triple := cfg.Target.Triple
	if err := overrideString(flags.Changed("target"), &triple, func() (string, error) { return flags.GetString("target") }); err != nil {
		return nil, err
	}
	s.target = backend.HostTarget()
	if triple != "" {
		t, ok := backend.TargetByTriple(triple)
		if !ok {
			return nil, fmt.Errorf("unknown target triple %q", triple)
		}
		s.target = t
	}

	s.jobs, s.maxDiags = cfg.Build.Jobs, cfg.Diagnostics.Max
	if err := overrideInt(flags.Changed("jobs"), &s.jobs, func() (int, error) { return flags.GetInt("jobs") }); err != nil {
		return nil, err
	}
	if err := overrideInt(flags.Changed("max-diagnostics"), &s.maxDiags, func() (int, error) { return flags.GetInt("max-diagnostics") }); err != nil {
		return nil, err
	}
	s.diagsFormat = cfg.Diagnostics.Format
	if err := overrideString(flags.Changed("diagnostics-format"), &s.diagsFormat, func() (string, error) { return flags.GetString("diagnostics-format") }); err != nil {
		return nil, err
	}
	switch s.diagsFormat = strings.ToLower(s.diagsFormat); s.diagsFormat {
	case "", "pretty":
		s.diagsFormat = "pretty"
	case "json":
	default:
		return nil, fmt.Errorf("unsupported diagnostics format %q (must be pretty or json)", s.diagsFormat)
	}

	s.traceLevel, s.traceMode, s.traceOutput, s.traceRingSize = cfg.Trace.Level, cfg.Trace.Mode, cfg.Trace.Output, cfg.Trace.RingSize
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{"trace-level", &s.traceLevel},
		{"trace-mode", &s.traceMode},
		{"trace", &s.traceOutput},
	} {
		if err := overrideString(flags.Changed(o.flag), o.dst, func() (string, error) { return flags.GetString(o.flag) }); err != nil {
			return nil, err
		}
	}
	if err := overrideInt(flags.Changed("trace-ring-size"), &s.traceRingSize, func() (int, error) { return flags.GetInt("trace-ring-size") }); err != nil {
		return nil, err
	}
	if s.traceFormat, err = flags.GetString("trace-format"); err != nil {
		return nil, err
	}
	if s.traceHeartbeat, err = flags.GetDuration("trace-heartbeat"); err != nil {
		return nil, err
	}
	// naming an output without a level means the caller wants a trace
	if s.traceOutput != "" && strings.EqualFold(s.traceLevel, "off") && !flags.Changed("trace-level") {
		s.traceLevel = "phase"
	}

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, err
	}
	switch colorFlag {
	case "on":
		s.color = true
	case "off":
	case "auto":
		s.color = isTerminal(os.Stdout)
	default:
		return nil, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	if s.quiet, err = flags.GetBool("quiet"); err != nil {
		return nil, err
	}
	if s.timings, err = flags.GetBool("timings"); err != nil {
		return nil, err
	}
	return s, nil
}

func overrideString(changed bool, dst *string, get func() (string, error)) error {
	if !changed {
		return nil
	}
	v, err := get()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func overrideInt(changed bool, dst *int, get func() (int, error)) error {
	if !changed {
		return nil
	}
	v, err := get()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
