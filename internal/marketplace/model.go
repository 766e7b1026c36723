package marketplace

import (
	"time"

	"github.com/sudo-init-do/taskhub/internal/metrics"
)

// Metrics is set in main; nil disables counting.
var Metrics *metrics.Metrics

func countTransition(to string) {
	if Metrics != nil {
		Metrics.BookingTransitions.WithLabelValues(to).Inc()
	}
}

// Service represents a service listed by a tasker
type Service struct {
	ID          string    `json:"id"`
	TaskerID    string    `json:"tasker_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ServiceSummary is used in discovery responses with aggregated fields
type ServiceSummary struct {
	ID          string    `json:"id"`
	TaskerID    string    `json:"tasker_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	Status      string    `json:"status,omitempty"`
	AvgRating   float64   `json:"avg_rating"`
	CreatedAt   time.Time `json:"created_at"`
}

// Booking statuses. Transitions move forward through the first five;
// cancelled, disputed and refunded branch off along the way.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusDisputed   = "disputed"
	StatusRefunded   = "refunded"
)

// Booking represents a service booking between a customer and a tasker
type Booking struct {
	ID          string     `json:"id"`
	ServiceID   string     `json:"service_id"`
	CustomerID  string     `json:"customer_id"`
	TaskerID    string     `json:"tasker_id"`
	AgreedPrice *float64   `json:"agreed_price"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// escrowHeld reports whether customer funds are locked for the status.
func escrowHeld(status string) bool {
	switch status {
	case StatusConfirmed, StatusInProgress, StatusDisputed:
		return true
	}
	return false
}
