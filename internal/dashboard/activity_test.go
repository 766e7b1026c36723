package dashboard

import (
	"strings"
	"testing"
	"time"
)

func at(minute int) time.Time {
	return time.Date(2026, time.August, 20, 10, minute, 0, 0, time.UTC)
}

func TestMergeActivityOrderingAndCap(t *testing.T) {
	bookings := []BookingRow{
		{ID: "b1", Title: "Fix sink", Status: "completed", CreatedAt: at(10)},
		{ID: "b2", Title: "Paint fence", Status: "pending", CreatedAt: at(40)},
		{ID: "b3", Title: "Move boxes", Status: "accepted", CreatedAt: at(5)},
	}
	messages := []MessageRow{
		{ID: "m1", SenderID: "other", SenderName: "Ana", Content: "hello", CreatedAt: at(30)},
		{ID: "m2", SenderID: "other", SenderName: "Ana", Content: "again", CreatedAt: at(20)},
	}
	reviews := []ReviewRow{
		{ID: "r1", ReviewerName: "Bob", Rating: 5, Comment: "great", CreatedAt: at(50)},
		{ID: "r2", ReviewerName: "Cid", Rating: 3, Comment: "ok", CreatedAt: at(1)},
	}

	feed := MergeActivity("me", bookings, messages, reviews)
	if len(feed) != 6 {
		t.Fatalf("len = %d, want 6", len(feed))
	}
	for i := 1; i < len(feed); i++ {
		if feed[i].Timestamp.After(feed[i-1].Timestamp) {
			t.Fatalf("feed not in non-increasing timestamp order at %d", i)
		}
	}
	if feed[0].ID != "r1" || feed[1].ID != "b2" {
		t.Fatalf("unexpected head order: %s, %s", feed[0].ID, feed[1].ID)
	}
	// Seven candidates, the oldest (r2 at minute 1) falls off the cap.
	for _, e := range feed {
		if e.ID == "r2" {
			t.Fatal("oldest entry survived the cap")
		}
	}
}

func TestMergeActivityTieBreakDescendingID(t *testing.T) {
	ts := at(15)
	bookings := []BookingRow{{ID: "a", Title: "x", CreatedAt: ts}}
	messages := []MessageRow{{ID: "c", SenderID: "other", SenderName: "N", Content: "x", CreatedAt: ts}}
	reviews := []ReviewRow{{ID: "b", ReviewerName: "N", Rating: 4, CreatedAt: ts}}

	feed := MergeActivity("me", bookings, messages, reviews)
	if len(feed) != 3 {
		t.Fatalf("len = %d, want 3", len(feed))
	}
	if feed[0].ID != "c" || feed[1].ID != "b" || feed[2].ID != "a" {
		t.Fatalf("tie-break order = %s, %s, %s; want c, b, a", feed[0].ID, feed[1].ID, feed[2].ID)
	}
}

func TestMergeActivityExcludesOwnMessages(t *testing.T) {
	messages := []MessageRow{
		{ID: "m1", SenderID: "me", SenderName: "Me", Content: "mine", CreatedAt: at(30)},
		{ID: "m2", SenderID: "other", SenderName: "Ana", Content: "theirs", CreatedAt: at(20)},
	}
	feed := MergeActivity("me", nil, messages, nil)
	if len(feed) != 1 {
		t.Fatalf("len = %d, want 1", len(feed))
	}
	if feed[0].ID != "m2" {
		t.Fatalf("own-authored message leaked into the feed: %s", feed[0].ID)
	}
}

func TestMergeActivityPerSourceLimit(t *testing.T) {
	var bookings []BookingRow
	for i := 0; i < 5; i++ {
		bookings = append(bookings, BookingRow{ID: string(rune('a' + i)), Title: "x", CreatedAt: at(i)})
	}
	feed := MergeActivity("me", bookings, nil, nil)
	if len(feed) != 3 {
		t.Fatalf("len = %d, want 3 (per-source cap)", len(feed))
	}
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("x", 50)
	if got := truncate(short); got != short {
		t.Fatalf("50-rune text must pass through untouched, got %q", got)
	}
	long := strings.Repeat("x", 51)
	got := truncate(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	if len([]rune(strings.TrimSuffix(got, "..."))) != 50 {
		t.Fatalf("expected 50 runes before the ellipsis, got %d", len([]rune(got))-3)
	}

	// Rune-aware: multibyte text must not be cut mid-character.
	wide := strings.Repeat("ñ", 60)
	got = truncate(wide)
	if strings.TrimSuffix(got, "...") != strings.Repeat("ñ", 50) {
		t.Fatalf("multibyte truncation wrong: %q", got)
	}
}
