package pagination

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/alexraskin/linktree/internal/models"
)

func makeLinks(n int) []models.Link {
	links := make([]models.Link, n)
	for i := range n {
		links[i] = models.Link{Title: fmt.Sprintf("Link %d", i), URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	return links
}

func TestPaginateTwelveLinks(t *testing.T) {
	links := makeLinks(12)

	tests := []struct {
		requested int
		want      []models.Link
	}{
		{0, links[0:5]},
		{1, links[5:10]},
		{2, links[10:12]},
	}

	for _, tt := range tests {
		page := Paginate(links, 5, tt.requested)
		if page.PageCount != 3 {
			t.Errorf("expected 3 pages, got %d", page.PageCount)
		}
		if page.Index != tt.requested {
			t.Errorf("expected index %d, got %d", tt.requested, page.Index)
		}
		if diff := cmp.Diff(tt.want, page.Visible); diff != "" {
			t.Errorf("page %d mismatch (-want +got):\n%s", tt.requested, diff)
		}
	}
}

func TestPaginateReconstructsList(t *testing.T) {
	for n := 0; n <= 23; n++ {
		links := makeLinks(n)
		for size := 1; size <= 7; size++ {
			first := Paginate(links, size, 0)
			wantCount := (n + size - 1) / size
			if first.PageCount != wantCount {
				t.Fatalf("n=%d size=%d: expected %d pages, got %d", n, size, wantCount, first.PageCount)
			}

			var rebuilt []models.Link
			for i := range first.PageCount {
				rebuilt = append(rebuilt, Paginate(links, size, i).Visible...)
			}
			if diff := cmp.Diff(links, rebuilt, cmpEmpty()); diff != "" {
				t.Fatalf("n=%d size=%d: pages do not rebuild list (-want +got):\n%s", n, size, diff)
			}
		}
	}
}

func cmpEmpty() cmp.Option {
	return cmp.FilterValues(func(x, y []models.Link) bool {
		return len(x) == 0 && len(y) == 0
	}, cmp.Ignore())
}

func TestPaginateClampsIndex(t *testing.T) {
	links := makeLinks(12)

	tests := []struct {
		name      string
		links     []models.Link
		requested int
		want      int
	}{
		{"negative", links, -4, 0},
		{"overflow", links, 99, 2},
		{"last", links, 2, 2},
		{"empty negative", nil, -1, 0},
		{"empty overflow", nil, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate(tt.links, 5, tt.requested)
			if page.Index != tt.want {
				t.Errorf("expected index %d, got %d", tt.want, page.Index)
			}
			if page.Index < 0 || page.Index > max(page.PageCount-1, 0) {
				t.Errorf("index %d out of range for %d pages", page.Index, page.PageCount)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate(nil, 5, 0)
	if page.PageCount != 0 {
		t.Errorf("expected 0 pages, got %d", page.PageCount)
	}
	if len(page.Visible) != 0 {
		t.Errorf("expected no visible links, got %d", len(page.Visible))
	}
	if page.HasControls() {
		t.Error("expected no controls for an empty list")
	}
	if entries := page.Entries(); entries != nil {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestPaginateNonPositiveSize(t *testing.T) {
	page := Paginate(makeLinks(3), 0, 1)
	if page.PageCount != 3 {
		t.Errorf("expected page size to fall back to 1, got %d pages", page.PageCount)
	}
	if len(page.Visible) != 1 {
		t.Errorf("expected 1 visible link, got %d", len(page.Visible))
	}
}

func TestPaginateHugePageSize(t *testing.T) {
	page := Paginate(makeLinks(3), math.MaxInt, 0)
	if page.PageCount != 1 {
		t.Errorf("expected a single page, got %d", page.PageCount)
	}
	if page.Index != 0 || len(page.Visible) != 3 {
		t.Errorf("expected every link on page 0, got index %d with %d links", page.Index, len(page.Visible))
	}
	if page.HasControls() {
		t.Error("expected no controls for a single page")
	}
}

func TestPaginateVisibleDoesNotAlias(t *testing.T) {
	links := makeLinks(6)
	page := Paginate(links, 5, 0)
	_ = append(page.Visible, models.Link{Title: "extra"})
	if links[5].Title != "Link 5" {
		t.Errorf("appending to a page overwrote the source list: %q", links[5].Title)
	}
}

func TestHasControls(t *testing.T) {
	if Paginate(makeLinks(5), 5, 0).HasControls() {
		t.Error("a single page should not show controls")
	}
	if !Paginate(makeLinks(6), 5, 0).HasControls() {
		t.Error("two pages should show controls")
	}
}

func TestPrevNext(t *testing.T) {
	links := makeLinks(12)

	first := Paginate(links, 5, 0)
	if _, ok := first.Prev(); ok {
		t.Error("first page should have no previous page")
	}
	if next, ok := first.Next(); !ok || next != 1 {
		t.Errorf("expected next page 1, got %d (%v)", next, ok)
	}

	last := Paginate(links, 5, 2)
	if prev, ok := last.Prev(); !ok || prev != 1 {
		t.Errorf("expected previous page 1, got %d (%v)", prev, ok)
	}
	if _, ok := last.Next(); ok {
		t.Error("last page should have no next page")
	}
}

func TestEntries(t *testing.T) {
	links := makeLinks(50)

	tests := []struct {
		name    string
		index   int
		indices []int
		breaks  []int
	}{
		{"start", 0, []int{0, 1, 2, 9}, []int{3}},
		{"middle", 5, []int{0, 4, 5, 6, 9}, []int{1, 7}},
		{"end", 9, []int{0, 7, 8, 9}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Paginate(links, 5, tt.index)

			var indices, breaks []int
			for _, e := range page.Entries() {
				if e.Break {
					breaks = append(breaks, e.Index)
					continue
				}
				indices = append(indices, e.Index)
				if e.Active != (e.Index == tt.index) {
					t.Errorf("entry %d active=%v", e.Index, e.Active)
				}
			}
			if diff := cmp.Diff(tt.indices, indices); diff != "" {
				t.Errorf("page entries mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.breaks, breaks); diff != "" {
				t.Errorf("break entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEntriesFewPages(t *testing.T) {
	page := Paginate(makeLinks(12), 5, 1)
	want := []Entry{{Index: 0}, {Index: 1, Active: true}, {Index: 2}}
	if diff := cmp.Diff(want, page.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}
