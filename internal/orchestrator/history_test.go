package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aryanguptajsm/fluxora/internal/domain"
)

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "short", DeriveTitle("short"))
	assert.Equal(t, "exactly thirty characters long", DeriveTitle("exactly thirty characters long"))
	assert.Equal(t, "exactly thirty characters long...", DeriveTitle("exactly thirty characters long!"))
	assert.Equal(t, "collapsed spaces", DeriveTitle("  collapsed \n spaces "))
	assert.Equal(t, "ライオンライオンライオンライオンライオンライオンライオンライ...",
		DeriveTitle("ライオンライオンライオンライオンライオンライオンライオンライオンライオンライオンライオン"))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-1 * time.Minute), "1 minute ago"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-2 * time.Hour), "2 hours ago"},
		{now.Add(-25 * time.Hour), "1 day ago"},
		{now.Add(-48 * time.Hour), "2 days ago"},
		{now.AddDate(0, -2, 0), "Jan 10, 2026"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeAgo(tc.at, now))
	}
}

func TestInsertIDsStayUnique(t *testing.T) {
	h := NewHistory()
	now := time.UnixMilli(1_700_000_000_000)
	a := h.Insert("a", []domain.ImageRef{{URL: "1"}}, now)
	b := h.Insert("b", []domain.ImageRef{{URL: "2"}}, now)
	c := h.Insert("c", []domain.ImageRef{{URL: "3"}}, now.Add(-time.Second))

	assert.Equal(t, int64(1_700_000_000_000), a.ID)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, b.ID+1, c.ID)
	assert.Equal(t, 3, h.Len())
	cur, ok := h.Current()
	assert.True(t, ok)
	assert.Equal(t, c.ID, cur.ID)
}

func TestHistoryFilterFoldsCase(t *testing.T) {
	h := NewHistory()
	now := time.UnixMilli(1_700_000_000_000)
	h.Insert("Weiße Straße im Nebel", []domain.ImageRef{{URL: "https://cdn.example/a.png"}}, now)
	h.Insert("harbor at dusk", []domain.ImageRef{{URL: "https://cdn.example/b.png"}}, now.Add(time.Second))

	got := h.Filter("STRASSE")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Weiße Straße im Nebel", got[0].Prompt)
	}
	assert.Len(t, h.Filter("HARBOR"), 1)
	assert.Len(t, h.Filter("   "), 2)
}

func TestHistoryFilterKeepsEdgeSpaces(t *testing.T) {
	h := NewHistory()
	now := time.UnixMilli(1_700_000_000_000)
	refs := []domain.ImageRef{{URL: "https://cdn.example/a.png"}}
	h.Insert("a lion at dawn", refs, now)
	h.Insert("dandelion field", refs, now.Add(time.Second))

	assert.Len(t, h.Filter("lion"), 2)
	got := h.Filter(" lion")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "a lion at dawn", got[0].Prompt)
	}
}
