package dashboard

import (
	"fmt"
	"sort"
	"time"
)

const (
	maxActivity = 6
	maxTextLen  = 50
)

// Entry is one row of the recent-activity feed.
type Entry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status,omitempty"`
	Amount      *float64  `json:"amount,omitempty"`
}

// truncate clips free text to 50 runes, appending an ellipsis only when
// something was cut.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxTextLen {
		return s
	}
	return string(r[:maxTextLen]) + "..."
}

// MergeActivity folds the three sources into one feed: at most three
// entries per source, the requesting user's own messages excluded, sorted
// newest first with ties broken by descending entry id, capped at six.
func MergeActivity(selfID string, bookings []BookingRow, messages []MessageRow, reviews []ReviewRow) []Entry {
	entries := make([]Entry, 0, 3*perSourceActivity)

	for i, b := range bookings {
		if i >= perSourceActivity {
			break
		}
		entries = append(entries, Entry{
			ID:          b.ID,
			Type:        "booking",
			Title:       truncate(b.Title),
			Description: "Booking " + b.Status,
			Timestamp:   b.CreatedAt,
			Status:      b.Status,
			Amount:      b.Amount,
		})
	}

	n := 0
	for _, m := range messages {
		if m.SenderID == selfID {
			continue
		}
		if n >= perSourceActivity {
			break
		}
		n++
		entries = append(entries, Entry{
			ID:          m.ID,
			Type:        "message",
			Title:       "Message from " + m.SenderName,
			Description: truncate(m.Content),
			Timestamp:   m.CreatedAt,
		})
	}

	for i, r := range reviews {
		if i >= perSourceActivity {
			break
		}
		entries = append(entries, Entry{
			ID:          r.ID,
			Type:        "review",
			Title:       fmt.Sprintf("%d-star review from %s", r.Rating, r.ReviewerName),
			Description: truncate(r.Comment),
			Timestamp:   r.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID > entries[j].ID
	})

	if len(entries) > maxActivity {
		entries = entries[:maxActivity]
	}
	return entries
}
