// Package app holds the page state machine: the document is loaded once,
// after which the page is either loaded or failed for the rest of the session.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alexraskin/linktree/internal/models"
	"github.com/alexraskin/linktree/internal/pagination"
)

const (
	DefaultTitle  = "LinkTree"
	FailedMessage = "Failed to load link tree data"
)

type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Loader produces the links document. Implementations are expected to
// substitute a fallback instead of failing.
type Loader interface {
	Load(ctx context.Context) models.Document
}

// ThemeApplier receives the theme of every document that finishes loading.
type ThemeApplier interface {
	Apply(t *models.ThemeConfig) uint64
}

type Snapshot struct {
	Status     Status
	Err        string
	Document   *models.Document
	Generation uint64
}

// View is one visitor's position within a loaded document.
type View struct {
	Generation uint64
	PageIndex  int
}

type Machine struct {
	loader     Loader
	theme      ThemeApplier
	pageSize   int
	generation uint64

	once sync.Once
	done chan struct{}

	mu     sync.RWMutex
	status Status
	err    string
	doc    *models.Document
}

// New returns a machine in the Loading state. generation identifies the
// document this machine will load; views from another generation start over
// at the first page.
func New(loader Loader, theme ThemeApplier, pageSize int, generation uint64) *Machine {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Machine{
		loader:     loader,
		theme:      theme,
		pageSize:   pageSize,
		generation: generation,
		done:       make(chan struct{}),
		status:     StatusLoading,
	}
}

// Start invokes the loader exactly once, in the background. Later calls do nothing.
func (m *Machine) Start(ctx context.Context) {
	m.once.Do(func() {
		go m.run(ctx)
	})
}

func (m *Machine) run(ctx context.Context) {
	defer close(m.done)

	doc, err := m.load(ctx)
	if err != nil {
		slog.Error("Link tree failed to load", "error", err)
		m.mu.Lock()
		m.status = StatusFailed
		m.err = FailedMessage
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.status = StatusLoaded
	m.doc = &doc
	m.mu.Unlock()

	if m.theme != nil {
		m.theme.Apply(doc.Theme)
	}
}

func (m *Machine) load(ctx context.Context) (doc models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panicked: %v", r)
		}
	}()
	return m.loader.Load(ctx), nil
}

// Wait blocks until the machine has left the Loading state.
func (m *Machine) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) Done() <-chan struct{} {
	return m.done
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Status:     m.status,
		Err:        m.err,
		Document:   m.doc,
		Generation: m.generation,
	}
}

func (m *Machine) Generation() uint64 {
	return m.generation
}

func (m *Machine) PageSize() int {
	return m.pageSize
}

// Title is the page title: the profile name once a document is available.
func (m *Machine) Title() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != StatusLoaded || m.doc == nil || m.doc.Profile.Name == "" {
		return DefaultTitle
	}
	return m.doc.Profile.Name + " | " + DefaultTitle
}

// ChangePage returns the view a visitor gets after asking for a page. The
// requested index is clamped to the pages of the current document. Outside
// the Loaded state the view is reset.
func (m *Machine) ChangePage(requested int) View {
	page, ok := m.Page(View{Generation: m.generation, PageIndex: requested})
	if !ok {
		return View{Generation: m.generation}
	}
	return View{Generation: m.generation, PageIndex: page.Index}
}

// Page returns the links visible in a view. Views from another document
// generation see the first page.
func (m *Machine) Page(v View) (pagination.Page, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.status != StatusLoaded || m.doc == nil {
		return pagination.Page{}, false
	}
	index := v.PageIndex
	if v.Generation != m.generation {
		index = 0
	}
	return pagination.Paginate(m.doc.Links, m.pageSize, index), true
}
