package backend

import (
	"errors"
	"fmt"
	"sync"

	"ksc/internal/layout"
)

var (
	// ErrBackendLive is returned by Initialize while another Backend is live.
	ErrBackendLive = errors.New("backend already initialized")
	// ErrBackendClosed is returned by operations on a shut down Backend.
	ErrBackendClosed = errors.New("backend is shut down")
)

var (
	liveMu sync.Mutex
	live   *Backend
)

// Config selects the module name and target.
type Config struct {
	ModuleName string
	Target     Target
}

// Backend owns the module, builder, engine and data layout of one
// compilation session.
type Backend struct {
	cfg     Config
	layout  *layout.LayoutEngine
	module  *Module
	builder *Builder
	engine  *Engine
	closed  bool
}

// Initialize creates the process-wide Backend.
func Initialize(cfg Config) (*Backend, error) {
	liveMu.Lock()
	defer liveMu.Unlock()
	if live != nil {
		return nil, ErrBackendLive
	}
	if cfg.Target.Triple == "" {
		cfg.Target = HostTarget()
	}
	if _, ok := TargetByTriple(cfg.Target.Triple); !ok {
		return nil, fmt.Errorf("unsupported target %q", cfg.Target.Triple)
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = "ksc"
	}
	le := layout.New(cfg.Target.Target)
	mod := newModule(cfg.ModuleName, cfg.Target, le)
	b := &Backend{
		cfg:     cfg,
		layout:  le,
		module:  mod,
		builder: &Builder{mod: mod},
		engine:  newEngine(mod),
	}
	live = b
	return b, nil
}

// Shutdown releases the Backend so a new one may be initialized.
// Calling it twice returns ErrBackendClosed.
func (b *Backend) Shutdown() error {
	liveMu.Lock()
	defer liveMu.Unlock()
	if b.closed {
		return ErrBackendClosed
	}
	b.closed = true
	if live == b {
		live = nil
	}
	return nil
}

// Closed reports whether Shutdown has been called.
func (b *Backend) Closed() bool { return b.closed }

func (b *Backend) Module() *Module              { return b.module }
func (b *Backend) Builder() *Builder            { return b.builder }
func (b *Backend) Engine() *Engine              { return b.engine }
func (b *Backend) Layout() *layout.LayoutEngine { return b.layout }
func (b *Backend) Target() Target               { return b.cfg.Target }
