package dashboard

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/metrics"
)

const (
	recentWindow      = 7 * 24 * time.Hour
	upcomingWindow    = 7 * 24 * time.Hour
	maxNotifications  = 5
	maxThreads        = 5
	perSourceActivity = 3
)

// Aggregator assembles the dashboard from concurrent branch queries.
type Aggregator struct {
	q       Queries
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New builds an aggregator. Logger defaults to slog.Default; metrics may
// be nil.
func New(q Queries, logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{q: q, logger: logger.With("component", "dashboard"), metrics: m, now: time.Now}
}

// branchDone records the outcome of one fan-out branch. Failures are
// downgraded to fallbacks, logged quietly and counted.
func (a *Aggregator) branchDone(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "fallback"
		a.logger.Debug("branch failed, using fallback", "branch", name, "error", err)
	}
	if a.metrics != nil {
		a.metrics.DashboardBranches.WithLabelValues(name, outcome).Inc()
	}
}

// completionRate is the percentage of finished work over all work,
// rounded. Zero when there is no work at all.
func completionRate(active, completed int) int {
	total := active + completed
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// sumEarnings totals payouts, counting missing prices as zero.
func sumEarnings(earnings []Earning) float64 {
	var total float64
	for _, e := range earnings {
		if e.AgreedPrice != nil {
			total += *e.AgreedPrice
		}
	}
	return total
}

// startOfMonth and startOfWeek anchor the earnings windows.
func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func startOfWeek(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday start
	return day.AddDate(0, 0, -offset)
}

// Stats runs the six branch queries concurrently and settles them all.
// Each branch degrades to zero/empty on failure; the call itself only
// errors when the store is unreachable up front.
func (a *Aggregator) Stats(ctx context.Context, userID string) (Stats, []BookingRow, error) {
	if err := a.q.Ping(ctx); err != nil {
		return Stats{}, nil, err
	}

	now := a.now()

	var (
		wg sync.WaitGroup

		active, completed, upcoming int
		monthly, weekly             []Earning
		recent                      []BookingRow
	)

	wg.Add(6)
	go func() {
		defer wg.Done()
		n, err := a.q.ActiveBookings(ctx, userID)
		a.branchDone("active_bookings", err)
		if err == nil {
			active = n
		}
	}()
	go func() {
		defer wg.Done()
		n, err := a.q.CompletedBookings(ctx, userID)
		a.branchDone("completed_bookings", err)
		if err == nil {
			completed = n
		}
	}()
	go func() {
		defer wg.Done()
		n, err := a.q.UpcomingBookings(ctx, userID, now.Add(upcomingWindow))
		a.branchDone("upcoming_bookings", err)
		if err == nil {
			upcoming = n
		}
	}()
	go func() {
		defer wg.Done()
		rows, err := a.q.RecentBookings(ctx, userID, now.Add(-recentWindow), perSourceActivity)
		a.branchDone("recent_bookings", err)
		if err == nil {
			recent = rows
		}
	}()
	go func() {
		defer wg.Done()
		rows, err := a.q.EarningsSince(ctx, userID, startOfMonth(now))
		a.branchDone("monthly_earnings", err)
		if err == nil {
			monthly = rows
		}
	}()
	go func() {
		defer wg.Done()
		rows, err := a.q.EarningsSince(ctx, userID, startOfWeek(now))
		a.branchDone("weekly_earnings", err)
		if err == nil {
			weekly = rows
		}
	}()
	wg.Wait()

	// Rate comes from the raw counts, before any stored counters win.
	stats := Stats{
		ActiveBookings:    active,
		CompletedBookings: completed,
		UpcomingBookings:  upcoming,
		CompletionRate:    completionRate(active, completed),
		MonthlyEarnings:   sumEarnings(monthly),
		WeeklyEarnings:    sumEarnings(weekly),
	}

	stored, err := a.q.TaskerStats(ctx, userID)
	a.branchDone("tasker_stats", err)
	if err == nil && stored != nil {
		stats.CompletedBookings = stored.CompletedJobs
		stats.TotalEarnings = stored.TotalEarnings
		stats.AverageRating = stored.AverageRating
	}

	return stats, recent, nil
}

// Overview assembles the full dashboard payload. The side panels degrade
// to empty on failure like the stat branches do.
func (a *Aggregator) Overview(ctx context.Context, userID string) (Overview, error) {
	stats, recent, err := a.Stats(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	since := a.now().Add(-recentWindow)

	var (
		wg            sync.WaitGroup
		notifications []alerts.Notification
		threads       []Thread
		messages      []MessageRow
		reviews       []ReviewRow
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		items, err := a.q.LatestNotifications(ctx, userID, maxNotifications)
		a.branchDone("notifications", err)
		if err == nil {
			notifications = items
		}
	}()
	go func() {
		defer wg.Done()
		items, err := a.q.LatestThreads(ctx, userID, maxThreads)
		a.branchDone("threads", err)
		if err == nil {
			threads = items
		}
	}()
	go func() {
		defer wg.Done()
		items, err := a.q.RecentMessages(ctx, userID, since, perSourceActivity)
		a.branchDone("recent_messages", err)
		if err == nil {
			messages = items
		}
	}()
	go func() {
		defer wg.Done()
		items, err := a.q.RecentReviews(ctx, userID, since, perSourceActivity)
		a.branchDone("recent_reviews", err)
		if err == nil {
			reviews = items
		}
	}()
	wg.Wait()

	return Overview{
		Stats:         stats,
		Notifications: notifications,
		Threads:       threads,
		Activity:      MergeActivity(userID, recent, messages, reviews),
	}, nil
}
