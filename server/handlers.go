package server

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexraskin/linktree/internal/app"
	"github.com/alexraskin/linktree/internal/models"
	"github.com/alexraskin/linktree/internal/pagination"
)

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmplFunc(w, name, data); err != nil {
		slog.Error("Failed to render template", "template", name, "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, scheme, message string) {
	s.render(w, status, "error.html", models.StatusPageData{
		Title:   app.DefaultTitle,
		Scheme:  scheme,
		Message: message,
		Year:    s.now().Year(),
		Source:  s.source(),
	})
}

func (s *Server) source() models.Source {
	if s.sourceURL == "" {
		return models.Source{}
	}
	return models.Source{URL: s.sourceURL, Glyph: s.icons.Lookup("Github").Glyph}
}

func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	token, v := s.ensureSession(w, r)

	m := s.site.Machine()
	if m == nil {
		s.renderLoading(w, v.scheme)
		return
	}

	snap := m.Snapshot()
	switch snap.Status {
	case app.StatusLoading:
		s.renderLoading(w, v.scheme)
		return
	case app.StatusFailed:
		s.renderError(w, http.StatusInternalServerError, v.scheme, snap.Err)
		return
	}

	view := v.view
	if view.Generation != m.Generation() {
		view = app.View{Generation: m.Generation()}
	}
	if requested, ok := requestedPage(r); ok {
		view = m.ChangePage(requested)
	}
	s.updateVisitor(token, func(v *visitor) { v.view = view })

	page, ok := m.Page(view)
	if !ok {
		s.renderLoading(w, v.scheme)
		return
	}

	s.render(w, http.StatusOK, "index.html", s.indexPageData(m, snap.Document, page, v.scheme))
}

// requestedPage reads the 1-based ?page= parameter as a 0-based index.
func requestedPage(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n - 1, true
}

func (s *Server) renderLoading(w http.ResponseWriter, scheme string) {
	w.Header().Set("Retry-After", "1")
	s.render(w, http.StatusOK, "loading.html", models.StatusPageData{
		Title:   app.DefaultTitle,
		Scheme:  scheme,
		Message: "Please wait while we load your content",
		Year:    s.now().Year(),
		Source:  s.source(),
	})
}

func (s *Server) indexPageData(m *app.Machine, doc *models.Document, page pagination.Page, scheme string) models.IndexPageData {
	cards := make([]models.LinkCard, 0, len(page.Visible))
	for _, link := range page.Visible {
		cards = append(cards, models.LinkCard{
			Link:  link,
			Glyph: s.icons.Lookup(link.Icon).Glyph,
		})
	}

	data := models.IndexPageData{
		Title:      m.Title(),
		Scheme:     scheme,
		Profile:    doc.Profile,
		Initials:   doc.Profile.Initials(),
		Links:      cards,
		Pager:      pagerFor(page),
		Year:       s.now().Year(),
		FooterName: doc.Profile.Name,
		Source:     s.source(),
	}

	if s.background != nil {
		effect := s.background.Effect()
		data.BodyClass = effect.BodyClass()
		data.StyleVars = effect.CSSVars()
	}

	return data
}

func pagerFor(page pagination.Page) models.Pager {
	if !page.HasControls() {
		return models.Pager{}
	}

	entries := page.Entries()
	items := make([]models.PageItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, models.PageItem{
			Number: e.Index + 1,
			Index:  e.Index,
			Active: e.Active,
			Break:  e.Break,
		})
	}

	prev, hasPrev := page.Prev()
	next, hasNext := page.Next()
	return models.Pager{
		Show:  true,
		Items: items,
		Prev:  prev + 1,
		Next:  next + 1,
		First: !hasPrev,
		Last:  !hasNext,
	}
}

func (s *Server) HandleToggleScheme(w http.ResponseWriter, r *http.Request) {
	token, _ := s.ensureSession(w, r)

	s.updateVisitor(token, func(v *visitor) {
		if v.scheme == SchemeDark {
			v.scheme = SchemeLight
		} else {
			v.scheme = SchemeDark
		}
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) serveFile(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, err := s.assets.Open(path)
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer func() { _ = file.Close() }()
		if strings.HasSuffix(path, ".svg") {
			w.Header().Set("Content-Type", "image/svg+xml")
		}
		_, _ = io.Copy(w, file)
	}
}

func (s *Server) cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/static/") {
			w.Header().Set("Cache-Control", "public, max-age=86400")
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		next.ServeHTTP(w, r)
	})
}
