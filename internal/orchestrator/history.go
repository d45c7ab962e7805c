package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/aryanguptajsm/fluxora/internal/domain"
)

const titleLimit = 30

// Image is one generated image stamped with the prompt that produced it.
type Image struct {
	URL       string
	Prompt    string
	Timestamp time.Time
}

// Entry is one successful generation in the history.
type Entry struct {
	ID        int64
	Title     string
	CreatedAt time.Time
	Prompt    string
	Images    []Image
	Pinned    bool
}

func (e Entry) clone() Entry {
	e.Images = append([]Image(nil), e.Images...)
	return e
}

// DeriveTitle shortens a prompt to a sidebar label.
func DeriveTitle(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	if utf8.RuneCountInString(title) <= titleLimit {
		return title
	}
	runes := []rune(title)
	return strings.TrimRight(string(runes[:titleLimit]), " ") + "..."
}

// TimeAgo renders the distance between t and now the way the sidebar shows it.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// History is the in-memory collection of entries, newest first. It is not
// safe for concurrent use; the Orchestrator serializes access.
type History struct {
	entries []Entry
	pinned  map[int64]struct{}
	current int64
	lastID  int64
}

func NewHistory() *History {
	return &History{pinned: make(map[int64]struct{})}
}

// Insert records a successful generation at the front of the collection and
// makes it current. IDs are the creation time in milliseconds, bumped when
// the clock has not advanced since the previous insert.
func (h *History) Insert(prompt string, refs []domain.ImageRef, now time.Time) Entry {
	id := now.UnixMilli()
	if id <= h.lastID {
		id = h.lastID + 1
	}
	h.lastID = id

	images := make([]Image, 0, len(refs))
	for _, ref := range refs {
		images = append(images, Image{URL: ref.URL, Prompt: prompt, Timestamp: now})
	}
	entry := Entry{
		ID:        id,
		Title:     DeriveTitle(prompt),
		CreatedAt: now,
		Prompt:    prompt,
		Images:    images,
	}
	h.entries = append([]Entry{entry}, h.entries...)
	h.current = id
	return entry.clone()
}

func (h *History) index(id int64) int {
	for i, e := range h.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the entry with id.
func (h *History) Get(id int64) (Entry, bool) {
	i := h.index(id)
	if i < 0 {
		return Entry{}, false
	}
	return h.decorate(h.entries[i]), true
}

// Select makes id current. A missing id leaves the selection untouched.
func (h *History) Select(id int64) bool {
	if h.index(id) < 0 {
		return false
	}
	h.current = id
	return true
}

func (h *History) ClearCurrent() { h.current = 0 }

// Current returns the selected entry, if any.
func (h *History) Current() (Entry, bool) {
	if h.current == 0 {
		return Entry{}, false
	}
	return h.Get(h.current)
}

// Delete removes id and clears the selection if it pointed there. Deleting
// an absent id is a no-op.
func (h *History) Delete(id int64) bool {
	i := h.index(id)
	if i < 0 {
		return false
	}
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
	delete(h.pinned, id)
	if h.current == id {
		h.current = 0
	}
	return true
}

// TogglePin flips the pin on id and reports the new state. Unknown ids are
// ignored so the pin set never refers to missing entries.
func (h *History) TogglePin(id int64) bool {
	if h.index(id) < 0 {
		return false
	}
	if _, ok := h.pinned[id]; ok {
		delete(h.pinned, id)
		return false
	}
	h.pinned[id] = struct{}{}
	return true
}

func (h *History) IsPinned(id int64) bool {
	_, ok := h.pinned[id]
	return ok
}

func (h *History) Len() int { return len(h.entries) }

// Display returns every entry in display order: pinned first, otherwise
// collection order.
func (h *History) Display() []Entry {
	return h.Filter("")
}

// Filter returns entries whose title or prompt contains query, ignoring
// case, in display order. A blank query matches everything; otherwise the
// query is matched as given, spaces included.
func (h *History) Filter(query string) []Entry {
	fold := cases.Fold()
	q := ""
	if strings.TrimSpace(query) != "" {
		q = fold.String(query)
	}
	out := make([]Entry, 0, len(h.entries))
	for _, e := range h.entries {
		if q != "" &&
			!strings.Contains(fold.String(e.Title), q) &&
			!strings.Contains(fold.String(e.Prompt), q) {
			continue
		}
		out = append(out, h.decorate(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}

func (h *History) decorate(e Entry) Entry {
	e = e.clone()
	e.Pinned = h.IsPinned(e.ID)
	return e
}
