package dashboard

import (
	"time"

	"github.com/sudo-init-do/taskhub/internal/alerts"
)

// Stats is the aggregate card row of the dashboard.
type Stats struct {
	ActiveBookings    int     `json:"active_bookings"`
	CompletedBookings int     `json:"completed_bookings"`
	UpcomingBookings  int     `json:"upcoming_bookings"`
	CompletionRate    int     `json:"completion_rate"`
	MonthlyEarnings   float64 `json:"monthly_earnings"`
	WeeklyEarnings    float64 `json:"weekly_earnings"`
	TotalEarnings     float64 `json:"total_earnings"`
	AverageRating     float64 `json:"average_rating"`
}

// StoredStats mirrors a tasker_stats row. When present its counters win
// over the recomputed aggregates.
type StoredStats struct {
	CompletedJobs int
	TotalEarnings float64
	AverageRating float64
}

// Earning is one completed booking's payout. A nil price counts as zero.
type Earning struct {
	AgreedPrice *float64
}

// BookingRow feeds the recent-activity merger.
type BookingRow struct {
	ID        string
	Title     string
	Status    string
	Amount    *float64
	CreatedAt time.Time
}

// MessageRow feeds the recent-activity merger.
type MessageRow struct {
	ID         string
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
}

// ReviewRow feeds the recent-activity merger.
type ReviewRow struct {
	ID           string
	ReviewerName string
	Rating       int
	Comment      string
	CreatedAt    time.Time
}

// Thread is a processed conversation preview.
type Thread struct {
	ConversationID string    `json:"conversation_id"`
	OtherUserID    string    `json:"other_user_id"`
	OtherUserName  string    `json:"other_user_name"`
	Preview        string    `json:"preview"`
	UnreadCount    int       `json:"unread_count"`
	LastAt         time.Time `json:"last_at"`
}

// Overview is the full dashboard payload.
type Overview struct {
	Stats         Stats                 `json:"stats"`
	Notifications []alerts.Notification `json:"notifications"`
	Threads       []Thread              `json:"threads"`
	Activity      []Entry               `json:"activity"`
}
