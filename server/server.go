package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/alexraskin/linktree/internal/app"
	"github.com/alexraskin/linktree/internal/icons"
	"github.com/alexraskin/linktree/internal/theme"
)

type ExecuteTemplateFunc func(wr io.Writer, name string, data any) error

// EffectSource reports the background effect currently applied to the page.
type EffectSource interface {
	Effect() theme.Effect
}

type Server struct {
	version    string
	port       string
	server     *http.Server
	assets     http.FileSystem
	tmplFunc   ExecuteTemplateFunc
	sessions   map[string]*visitor
	sessionsMu sync.RWMutex
	site       *app.Site
	icons      icons.Catalogue
	background EffectSource
	sourceURL  string
	now        func() time.Time
}

func NewServer(version string, port string, assets http.FileSystem, tmplFunc ExecuteTemplateFunc, site *app.Site, catalogue icons.Catalogue, background EffectSource, sourceURL string) *Server {

	s := &Server{
		version:    version,
		port:       port,
		assets:     assets,
		tmplFunc:   tmplFunc,
		sessions:   make(map[string]*visitor),
		sessionsMu: sync.RWMutex{},
		site:       site,
		icons:      catalogue,
		background: background,
		sourceURL:  sourceURL,
		now:        time.Now,
	}

	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.server.Close()
}

func FormatBuildVersion(version string) string {
	return fmt.Sprintf("Go Version: %s\nVersion: %s\nOS/Arch: %s/%s", runtime.Version(), version, runtime.GOOS, runtime.GOARCH)
}
