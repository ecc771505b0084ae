package config

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexraskin/linktree/internal/models"
)

func TestParseTestdata(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "links.toml"))
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "Tim Hwang", doc.Profile.Name)
	assert.Equal(t, "Building things for the web.\nWriting about them sometimes.", doc.Profile.Tagline)

	require.Len(t, doc.Links, 3)
	assert.Equal(t, models.Link{Title: "GitHub", URL: "https://github.com/example", Icon: "Github"}, doc.Links[0])
	assert.Equal(t, "/blog", doc.Links[1].URL)
	assert.Equal(t, "NotARealIcon", doc.Links[2].Icon)

	require.NotNil(t, doc.Theme)
	assert.True(t, doc.Theme.UseBackgroundImage)
	assert.Equal(t, "/static/images/background.png", doc.Theme.BackgroundImage)
	require.NotNil(t, doc.Theme.BackgroundOverlayOpacity)
	assert.InDelta(t, 0.4, *doc.Theme.BackgroundOverlayOpacity, 1e-9)
	require.NotNil(t, doc.Theme.BackgroundBlur)
	assert.InDelta(t, 5.0, *doc.Theme.BackgroundBlur, 1e-9)

	require.NoError(t, Validate(doc))
}

func TestParseWithoutTheme(t *testing.T) {
	doc, err := Parse([]byte(`
[profile]
name = "Solo"
`))
	require.NoError(t, err)

	assert.Nil(t, doc.Theme)
	assert.NotNil(t, doc.Links)
	assert.Empty(t, doc.Links)
	assert.False(t, doc.Theme.Enabled())
}

func TestParseKeepsDuplicateTitlesInOrder(t *testing.T) {
	doc, err := Parse([]byte(`
[profile]
name = "Dup"

[[links]]
title = "Same"
url = "https://one.example"

[[links]]
title = "Same"
url = "https://two.example"
`))
	require.NoError(t, err)
	require.Len(t, doc.Links, 2)
	assert.Equal(t, "https://one.example", doc.Links[0].URL)
	assert.Equal(t, "https://two.example", doc.Links[1].URL)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("[profile\nname = "))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))
}

func TestParseWrongType(t *testing.T) {
	_, err := Parse([]byte(`
links = "not a table array"

[profile]
name = "x"
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestValidate(t *testing.T) {
	opacity := 1.5
	blur := -1.0

	tests := []struct {
		name string
		doc  models.Document
		want string
	}{
		{
			name: "missing name",
			doc:  models.Document{},
			want: "Profile.Name is required",
		},
		{
			name: "link without url",
			doc: models.Document{
				Profile: models.Profile{Name: "x"},
				Links:   []models.Link{{Title: "t"}},
			},
			want: "Links[0].URL is required",
		},
		{
			name: "background without image",
			doc: models.Document{
				Profile: models.Profile{Name: "x"},
				Theme:   &models.ThemeConfig{UseBackgroundImage: true},
			},
			want: "Theme.BackgroundImage is required when useBackgroundImage is true",
		},
		{
			name: "opacity out of range",
			doc: models.Document{
				Profile: models.Profile{Name: "x"},
				Theme:   &models.ThemeConfig{BackgroundOverlayOpacity: &opacity},
			},
			want: "Theme.BackgroundOverlayOpacity must be at most 1",
		},
		{
			name: "negative blur",
			doc: models.Document{
				Profile: models.Profile{Name: "x"},
				Theme:   &models.ThemeConfig{BackgroundBlur: &blur},
			},
			want: "Theme.BackgroundBlur must be at least 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDisabledThemeNeedsNoImage(t *testing.T) {
	doc := models.Document{
		Profile: models.Profile{Name: "x"},
		Theme:   &models.ThemeConfig{UseBackgroundImage: false},
	}
	assert.NoError(t, Validate(doc))
}

type stubSource struct {
	data []byte
	err  error
}

func (s stubSource) Fetch(ctx context.Context) ([]byte, error) { return s.data, s.err }
func (s stubSource) String() string                            { return "stub" }

func TestLoadFallbackOnFetchError(t *testing.T) {
	l := NewLoader(stubSource{err: errors.New("connection refused")})

	doc := l.Load(context.Background())
	assert.Equal(t, models.FallbackDocument(), doc)
	assert.Empty(t, doc.Links)
	assert.Nil(t, doc.Theme)
	assert.Equal(t, "User", doc.Profile.Name)

	_, err := l.Check(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLoadFallbackOnMalformed(t *testing.T) {
	l := NewLoader(stubSource{data: []byte("<!doctype html><html></html>")})

	doc := l.Load(context.Background())
	assert.Equal(t, models.FallbackDocument(), doc)
}

func TestLoadServesPartiallyValid(t *testing.T) {
	l := NewLoader(stubSource{data: []byte(`
[profile]
name = "Partial"

[[links]]
title = "missing url"

[[links]]
title = "Fine"
url = "https://fine.example"

[theme]
useBackgroundImage = true
backgroundImage = "bg.png"
backgroundOverlayOpacity = 1.5
`)})

	doc := l.Load(context.Background())
	assert.Equal(t, "Partial", doc.Profile.Name)
	require.Len(t, doc.Links, 2)
	assert.Equal(t, "https://fine.example", doc.Links[1].URL)
	require.NotNil(t, doc.Theme)
	assert.InDelta(t, 1.5, *doc.Theme.BackgroundOverlayOpacity, 1e-9)

	// check stays strict
	_, err := l.Check(context.Background())
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "Links[0].URL is required")
}

func TestLoadFallbackOnMissingName(t *testing.T) {
	l := NewLoader(stubSource{data: []byte(`
[profile]
description = "nameless"

[[links]]
title = "Fine"
url = "https://fine.example"
`)})

	assert.Equal(t, models.FallbackDocument(), l.Load(context.Background()))
}

func TestLoadFromFile(t *testing.T) {
	l := NewLoader(NewSource(filepath.Join("testdata", "links.toml")))

	doc := l.Load(context.Background())
	assert.Equal(t, "Tim Hwang", doc.Profile.Name)
	assert.Len(t, doc.Links, 3)
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader(NewSource(filepath.Join(t.TempDir(), "missing.toml")))

	doc := l.Load(context.Background())
	assert.Equal(t, models.FallbackDocument(), doc)
}

func TestLoadFromHTTP(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "links.toml"))
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/config/links.toml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer ts.Close()

	src := NewSource(ts.URL + "/config/links.toml")
	_, ok := src.(*HTTPSource)
	require.True(t, ok, "expected an HTTP source for %s", src)

	doc := NewLoader(src).Load(context.Background())
	assert.Equal(t, "Tim Hwang", doc.Profile.Name)

	missing := NewLoader(NewSource(ts.URL + "/nope.toml"))
	_, err = missing.Check(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, models.FallbackDocument(), missing.Load(context.Background()))
}

func TestFileSourceCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FileSource(filepath.Join("testdata", "links.toml")).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
