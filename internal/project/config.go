// Package project locates and decodes ksc.toml.
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig marks a ksc.toml that decoded but holds bad values.
var ErrInvalidConfig = errors.New("invalid ksc.toml")

// Config mirrors ksc.toml. Zero sections take the values of Default.
type Config struct {
	Target      TargetConfig      `toml:"target"`
	Build       BuildConfig       `toml:"build"`
	Trace       TraceConfig       `toml:"trace"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
}

type TargetConfig struct {
	// Triple selects the data layout; empty means the host.
	Triple string `toml:"triple"`
}

type BuildConfig struct {
	OutDir   string `toml:"out_dir"`
	EmitLLVM bool   `toml:"emit_llvm"`
	EmitDesc bool   `toml:"emit_desc"`
	// Jobs bounds parallel tree decoding; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

type TraceConfig struct {
	Level    string `toml:"level"`
	Mode     string `toml:"mode"`
	Output   string `toml:"output"`
	RingSize int    `toml:"ring_size"`
}

type DiagnosticsConfig struct {
	Max    int    `toml:"max"`
	Format string `toml:"format"`
}

// Default returns the configuration used when no ksc.toml is found.
func Default() Config {
	return Config{
		Build: BuildConfig{
			OutDir:   "build",
			EmitLLVM: true,
			EmitDesc: true,
		},
		Trace: TraceConfig{
			Level:    "off",
			Mode:     "stream",
			RingSize: 4096,
		},
		Diagnostics: DiagnosticsConfig{
			Max:    100,
			Format: "pretty",
		},
	}
}

// Manifest is a decoded ksc.toml together with its location.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// ResolveOut returns the output directory, relative paths taken from the
// project root.
func (m *Manifest) ResolveOut() string {
	out := m.Config.Build.OutDir
	if filepath.IsAbs(out) || m.Root == "" {
		return out
	}
	return filepath.Join(m.Root, out)
}

// Load decodes path over Default. Unknown keys are rejected.
func Load(path string) (*Manifest, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys %s: %w", path, strings.Join(keys, ", "), ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

// Discover finds ksc.toml above startDir and loads it. Without one it
// returns a manifest holding Default rooted at startDir and ok=false.
func Discover(startDir string) (m *Manifest, ok bool, err error) {
	path, ok, err := FindManifest(startDir)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		root, absErr := filepath.Abs(startDir)
		if absErr != nil {
			root = startDir
		}
		return &Manifest{Root: root, Config: Default()}, false, nil
	}
	m, err = Load(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// Validate checks the enumerated and numeric fields.
func (c Config) Validate() error {
	switch strings.ToLower(c.Trace.Level) {
	case "", "off", "error", "phase", "detail", "debug":
	default:
		return fmt.Errorf("[trace].level %q: %w", c.Trace.Level, ErrInvalidConfig)
	}
	switch strings.ToLower(c.Trace.Mode) {
	case "", "stream", "ring", "both":
	default:
		return fmt.Errorf("[trace].mode %q: %w", c.Trace.Mode, ErrInvalidConfig)
	}
	switch strings.ToLower(c.Diagnostics.Format) {
	case "", "pretty", "json":
	default:
		return fmt.Errorf("[diagnostics].format %q: %w", c.Diagnostics.Format, ErrInvalidConfig)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("[build].jobs must not be negative: %w", ErrInvalidConfig)
	}
	if c.Diagnostics.Max < 0 {
		return fmt.Errorf("[diagnostics].max must not be negative: %w", ErrInvalidConfig)
	}
	if c.Trace.RingSize < 0 {
		return fmt.Errorf("[trace].ring_size must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}
