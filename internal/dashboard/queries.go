package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
)

// Queries is the read surface the aggregator fans out over. Split out so
// tests can substitute a fake store.
type Queries interface {
	Ping(ctx context.Context) error
	ActiveBookings(ctx context.Context, userID string) (int, error)
	CompletedBookings(ctx context.Context, userID string) (int, error)
	UpcomingBookings(ctx context.Context, userID string, until time.Time) (int, error)
	RecentBookings(ctx context.Context, userID string, since time.Time, limit int) ([]BookingRow, error)
	EarningsSince(ctx context.Context, userID string, since time.Time) ([]Earning, error)
	TaskerStats(ctx context.Context, userID string) (*StoredStats, error)
	LatestNotifications(ctx context.Context, userID string, limit int) ([]alerts.Notification, error)
	LatestThreads(ctx context.Context, userID string, limit int) ([]Thread, error)
	RecentMessages(ctx context.Context, userID string, since time.Time, limit int) ([]MessageRow, error)
	RecentReviews(ctx context.Context, userID string, since time.Time, limit int) ([]ReviewRow, error)
}

// activeStatuses are the booking states counted as in-flight work.
const activeStatuses = `('pending', 'accepted', 'confirmed', 'in_progress')`

// PGQueries runs the dashboard reads against the shared pool.
type PGQueries struct{}

func (PGQueries) Ping(ctx context.Context) error {
	if db.Conn == nil {
		return errors.New("database not initialized")
	}
	return db.Conn.Ping(ctx)
}

func (PGQueries) ActiveBookings(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM service_bookings
		 WHERE (customer_id = $1 OR tasker_id = $1) AND status IN `+activeStatuses,
		userID,
	).Scan(&n)
	return n, err
}

func (PGQueries) CompletedBookings(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM service_bookings
		 WHERE (customer_id = $1 OR tasker_id = $1) AND status = 'completed'`,
		userID,
	).Scan(&n)
	return n, err
}

func (PGQueries) UpcomingBookings(ctx context.Context, userID string, until time.Time) (int, error) {
	var n int
	err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM service_bookings
		 WHERE (customer_id = $1 OR tasker_id = $1)
		   AND status IN `+activeStatuses+`
		   AND scheduled_at IS NOT NULL AND scheduled_at BETWEEN NOW() AND $2`,
		userID, until,
	).Scan(&n)
	return n, err
}

func (PGQueries) RecentBookings(ctx context.Context, userID string, since time.Time, limit int) ([]BookingRow, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT b.id::text, s.title, b.status, b.agreed_price, b.created_at
		 FROM service_bookings b
		 JOIN services s ON s.id = b.service_id
		 WHERE (b.customer_id = $1 OR b.tasker_id = $1) AND b.created_at >= $2
		 ORDER BY b.created_at DESC LIMIT $3`,
		userID, since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingRow
	for rows.Next() {
		var r BookingRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Status, &r.Amount, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (PGQueries) EarningsSince(ctx context.Context, userID string, since time.Time) ([]Earning, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT agreed_price FROM service_bookings
		 WHERE tasker_id = $1 AND status = 'completed' AND completed_at >= $2`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Earning
	for rows.Next() {
		var e Earning
		if err := rows.Scan(&e.AgreedPrice); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (PGQueries) TaskerStats(ctx context.Context, userID string) (*StoredStats, error) {
	var s StoredStats
	err := db.Conn.QueryRow(ctx,
		`SELECT completed_jobs, total_earnings, average_rating
		 FROM tasker_stats WHERE tasker_id = $1`, userID,
	).Scan(&s.CompletedJobs, &s.TotalEarnings, &s.AverageRating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (PGQueries) LatestNotifications(ctx context.Context, userID string, limit int) ([]alerts.Notification, error) {
	return alerts.LatestNotifications(ctx, userID, limit)
}

func (PGQueries) LatestThreads(ctx context.Context, userID string, limit int) ([]Thread, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT cv.id::text,
		        other.id::text, other.name,
		        lm.content, lm.created_at,
		        (SELECT COUNT(*) FROM messages m
		          WHERE m.conversation_id = cv.id AND m.sender_id <> $1 AND m.read_at IS NULL)
		 FROM conversations cv
		 JOIN users other ON other.id = CASE WHEN cv.participant1_id = $1 THEN cv.participant2_id ELSE cv.participant1_id END
		 JOIN LATERAL (
		     SELECT content, created_at FROM messages
		     WHERE conversation_id = cv.id ORDER BY created_at DESC LIMIT 1
		 ) lm ON TRUE
		 WHERE cv.participant1_id = $1 OR cv.participant2_id = $1
		 ORDER BY lm.created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ConversationID, &t.OtherUserID, &t.OtherUserName, &t.Preview, &t.LastAt, &t.UnreadCount); err != nil {
			return nil, err
		}
		t.Preview = truncate(t.Preview)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (PGQueries) RecentMessages(ctx context.Context, userID string, since time.Time, limit int) ([]MessageRow, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT m.id::text, m.sender_id::text, u.name, m.content, m.created_at
		 FROM messages m
		 JOIN conversations cv ON cv.id = m.conversation_id
		 JOIN users u ON u.id = m.sender_id
		 WHERE (cv.participant1_id = $1 OR cv.participant2_id = $1)
		   AND m.sender_id <> $1 AND m.created_at >= $2
		 ORDER BY m.created_at DESC LIMIT $3`,
		userID, since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var m MessageRow
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (PGQueries) RecentReviews(ctx context.Context, userID string, since time.Time, limit int) ([]ReviewRow, error) {
	rows, err := db.Conn.Query(ctx,
		`SELECT r.id::text, u.name, r.rating, COALESCE(r.comment, ''), r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.customer_id
		 WHERE r.tasker_id = $1 AND r.created_at >= $2
		 ORDER BY r.created_at DESC LIMIT $3`,
		userID, since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReviewRow
	for rows.Next() {
		var r ReviewRow
		if err := rows.Scan(&r.ID, &r.ReviewerName, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
