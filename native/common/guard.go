package common

import (
	"fmt"
	"sync"

	coreerr "synthvault/core/errors"
)

var (
	ErrModulePaused = coreerr.New(coreerr.ErrInvariant, "module paused")
	ErrReentrant    = coreerr.New(coreerr.ErrInvariant, "reentrant call")
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}

// Pauses is an in-memory PauseView keyed by module name.
type Pauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

func NewPauses() *Pauses {
	return &Pauses{paused: make(map[string]bool)}
}

func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}

func (p *Pauses) Set(module string, paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if paused {
		p.paused[module] = true
		return
	}
	delete(p.paused, module)
}

// ReentrancyGuard rejects nested entry into an engine while one of its
// operations is in flight. The zero value is ready to use.
type ReentrancyGuard struct {
	mu      sync.Mutex
	entered bool
}

// Enter marks the guard as held. Every successful Enter must be paired with
// Exit.
func (g *ReentrancyGuard) Enter() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.entered {
		return ErrReentrant
	}
	g.entered = true
	return nil
}

func (g *ReentrancyGuard) Exit() {
	g.mu.Lock()
	g.entered = false
	g.mu.Unlock()
}
