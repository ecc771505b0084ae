// Package pagination splits the link list into fixed-size pages.
package pagination

import "github.com/alexraskin/linktree/internal/models"

const (
	marginPages = 1
	rangePages  = 2
)

type Page struct {
	Visible   []models.Link
	PageCount int
	Index     int
}

// Paginate returns the slice of links shown on the requested page. The
// requested index is clamped into [0, max(PageCount-1, 0)].
func Paginate(links []models.Link, pageSize, requested int) Page {
	if pageSize <= 0 {
		pageSize = 1
	}

	pageCount := len(links) / pageSize
	if len(links)%pageSize != 0 {
		pageCount++
	}
	index := max(min(requested, pageCount-1), 0)

	start := index * pageSize
	end := min(start+pageSize, len(links))

	return Page{
		Visible:   links[start:end:end],
		PageCount: pageCount,
		Index:     index,
	}
}

// HasControls reports whether pagination controls should be rendered.
func (p Page) HasControls() bool {
	return p.PageCount > 1
}

func (p Page) Prev() (int, bool) {
	if p.Index <= 0 {
		return 0, false
	}
	return p.Index - 1, true
}

func (p Page) Next() (int, bool) {
	if p.Index >= p.PageCount-1 {
		return p.Index, false
	}
	return p.Index + 1, true
}

// Entry is one slot in the page selector: a page number or a break marker.
type Entry struct {
	Index  int
	Active bool
	Break  bool
}

// Entries lays out the page selector keeping the first and last pages and a
// window around the current page, collapsing gaps into a single break.
func (p Page) Entries() []Entry {
	if p.PageCount <= 0 {
		return nil
	}

	if p.PageCount <= rangePages+2*marginPages {
		entries := make([]Entry, 0, p.PageCount)
		for i := range p.PageCount {
			entries = append(entries, Entry{Index: i, Active: i == p.Index})
		}
		return entries
	}

	left := p.Index - rangePages/2
	right := p.Index + rangePages - rangePages/2
	if left < 0 {
		right -= left
		left = 0
	}
	if right > p.PageCount-1 {
		left -= right - (p.PageCount - 1)
		right = p.PageCount - 1
	}

	var entries []Entry
	inBreak := false
	for i := range p.PageCount {
		visible := i < marginPages || i >= p.PageCount-marginPages || (i >= left && i <= right)
		if visible {
			entries = append(entries, Entry{Index: i, Active: i == p.Index})
			inBreak = false
			continue
		}
		if !inBreak {
			entries = append(entries, Entry{Index: i, Break: true})
			inBreak = true
		}
	}
	return entries
}
