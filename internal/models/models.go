package models

import (
	"html/template"
	"strings"
)

type Profile struct {
	Name        string `toml:"name" validate:"required"`
	Avatar      string `toml:"avatar"`
	Description string `toml:"description"`
	Tagline     string `toml:"tagline"`
}

// Initials is the avatar fallback shown when the image is missing or broken.
func (p Profile) Initials() string {
	var b strings.Builder
	for _, word := range strings.Split(p.Name, " ") {
		if word == "" {
			continue
		}
		r := []rune(word)
		b.WriteString(strings.ToUpper(string(r[0])))
	}
	initials := []rune(b.String())
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return string(initials)
}

type Link struct {
	Title string `toml:"title" validate:"required"`
	URL   string `toml:"url" validate:"required"`
	Icon  string `toml:"icon"`
}

type ThemeConfig struct {
	UseBackgroundImage       bool     `toml:"useBackgroundImage"`
	BackgroundImage          string   `toml:"backgroundImage" validate:"required_if=UseBackgroundImage true"`
	BackgroundOverlayOpacity *float64 `toml:"backgroundOverlayOpacity" validate:"omitempty,gte=0,lte=1"`
	BackgroundBlur           *float64 `toml:"backgroundBlur" validate:"omitempty,gte=0"`
}

// Enabled reports whether a background effect should be rendered at all.
func (t *ThemeConfig) Enabled() bool {
	return t != nil && t.UseBackgroundImage && t.BackgroundImage != ""
}

type Document struct {
	Profile Profile      `toml:"profile"`
	Links   []Link       `toml:"links" validate:"dive"`
	Theme   *ThemeConfig `toml:"theme"`
}

const FallbackAvatar = "/static/images/avatar.svg"

// FallbackDocument is substituted whenever the configuration cannot be loaded.
func FallbackDocument() Document {
	return Document{
		Profile: Profile{
			Name:        "User",
			Avatar:      FallbackAvatar,
			Description: "Configuration could not be loaded",
			Tagline:     "Please check your TOML file",
		},
		Links: []Link{},
	}
}

type LinkCard struct {
	Link
	Glyph template.HTML
}

type PageItem struct {
	Number int
	Index  int
	Active bool
	Break  bool
}

type Pager struct {
	Show  bool
	Items []PageItem
	Prev  int
	Next  int
	First bool
	Last  bool
}

type IndexPageData struct {
	Title      string
	Scheme     string
	Profile    Profile
	Initials   string
	Links      []LinkCard
	Pager      Pager
	BodyClass  string
	StyleVars  template.CSS
	Year       int
	FooterName string
	Source     Source
}

type StatusPageData struct {
	Title   string
	Scheme  string
	Message string
	Year    int
	Source  Source
}

// Source is the footer link to the site's source code. A zero URL hides it.
type Source struct {
	URL   string
	Glyph template.HTML
}
