package app

import (
	"context"
	"sync"
	"sync/atomic"
)

// Site owns the machine serving the current document. Reloading starts a
// fresh machine under a new generation and swaps it in once it has left the
// Loading state, so visitors never see a reload as a return to Loading.
// The theme is applied by the site, never before the document it belongs to
// is the one being served.
type Site struct {
	loader   Loader
	theme    ThemeApplier
	pageSize int

	generation atomic.Uint64
	current    atomic.Pointer[Machine]
	swapMu     sync.Mutex
}

func NewSite(loader Loader, theme ThemeApplier, pageSize int) *Site {
	return &Site{
		loader:   loader,
		theme:    theme,
		pageSize: pageSize,
	}
}

// Start installs the first machine and begins loading. It returns immediately.
func (s *Site) Start(ctx context.Context) *Machine {
	m := s.next()
	if !s.current.CompareAndSwap(nil, m) {
		return s.current.Load()
	}
	m.Start(ctx)
	go func() {
		<-m.Done()
		s.swapMu.Lock()
		defer s.swapMu.Unlock()
		if s.current.Load() == m {
			s.applyTheme(m)
		}
	}()
	return m
}

// Reload loads the document again into a new machine and swaps it in. The
// previous machine keeps serving until the new one is ready.
func (s *Site) Reload(ctx context.Context) (*Machine, error) {
	m := s.next()
	m.Start(ctx)
	if err := m.Wait(ctx); err != nil {
		return nil, err
	}

	s.swapMu.Lock()
	defer s.swapMu.Unlock()
	s.current.Store(m)
	s.applyTheme(m)
	return m, nil
}

// Machine returns the machine serving the current document, or nil before Start.
func (s *Site) Machine() *Machine {
	return s.current.Load()
}

func (s *Site) applyTheme(m *Machine) {
	if s.theme == nil {
		return
	}
	snap := m.Snapshot()
	if snap.Status != StatusLoaded || snap.Document == nil {
		return
	}
	s.theme.Apply(snap.Document.Theme)
}

func (s *Site) next() *Machine {
	return New(s.loader, nil, s.pageSize, s.generation.Add(1))
}
