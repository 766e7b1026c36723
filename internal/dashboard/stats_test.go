package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sudo-init-do/taskhub/internal/alerts"
)

var errBranch = errors.New("branch query failed")

// fakeQueries lets each branch succeed or fail independently.
type fakeQueries struct {
	pingErr error

	active, completed, upcoming          int
	activeErr, completedErr, upcomingErr error

	recent    []BookingRow
	recentErr error

	monthly, weekly       []Earning
	monthlyErr, weeklyErr error

	stored    *StoredStats
	storedErr error

	notifications    []alerts.Notification
	notificationsErr error
	threads          []Thread
	threadsErr       error
	messages         []MessageRow
	messagesErr      error
	reviews          []ReviewRow
	reviewsErr       error
}

func (f *fakeQueries) Ping(context.Context) error { return f.pingErr }
func (f *fakeQueries) ActiveBookings(context.Context, string) (int, error) {
	return f.active, f.activeErr
}
func (f *fakeQueries) CompletedBookings(context.Context, string) (int, error) {
	return f.completed, f.completedErr
}
func (f *fakeQueries) UpcomingBookings(context.Context, string, time.Time) (int, error) {
	return f.upcoming, f.upcomingErr
}
func (f *fakeQueries) RecentBookings(context.Context, string, time.Time, int) ([]BookingRow, error) {
	return f.recent, f.recentErr
}

func (f *fakeQueries) EarningsSince(_ context.Context, _ string, since time.Time) ([]Earning, error) {
	if since.Equal(startOfMonth(testNow)) {
		return f.monthly, f.monthlyErr
	}
	return f.weekly, f.weeklyErr
}

func (f *fakeQueries) TaskerStats(context.Context, string) (*StoredStats, error) {
	return f.stored, f.storedErr
}
func (f *fakeQueries) LatestNotifications(context.Context, string, int) ([]alerts.Notification, error) {
	return f.notifications, f.notificationsErr
}
func (f *fakeQueries) LatestThreads(context.Context, string, int) ([]Thread, error) {
	return f.threads, f.threadsErr
}
func (f *fakeQueries) RecentMessages(context.Context, string, time.Time, int) ([]MessageRow, error) {
	return f.messages, f.messagesErr
}
func (f *fakeQueries) RecentReviews(context.Context, string, time.Time, int) ([]ReviewRow, error) {
	return f.reviews, f.reviewsErr
}

func price(v float64) *float64 { return &v }

// A Thursday, so the month and week anchors differ and the fake can tell
// the two earnings windows apart.
var testNow = time.Date(2026, time.August, 20, 12, 0, 0, 0, time.UTC)

func newTestAgg(q Queries) *Aggregator {
	a := New(q, nil, nil)
	a.now = func() time.Time { return testNow }
	return a
}

func TestStatsAllBranchesOK(t *testing.T) {
	q := &fakeQueries{
		active:    3,
		completed: 7,
		upcoming:  2,
		monthly:   []Earning{{price(100)}, {price(50)}, {nil}},
		weekly:    []Earning{{price(50)}},
	}
	stats, _, err := newTestAgg(q).Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ActiveBookings != 3 || stats.CompletedBookings != 7 || stats.UpcomingBookings != 2 {
		t.Fatalf("counts = %d/%d/%d", stats.ActiveBookings, stats.CompletedBookings, stats.UpcomingBookings)
	}
	if stats.CompletionRate != 70 {
		t.Fatalf("completion rate = %d, want 70", stats.CompletionRate)
	}
	if stats.MonthlyEarnings != 150 {
		t.Fatalf("monthly = %v, want 150 (nil price counts as zero)", stats.MonthlyEarnings)
	}
	if stats.WeeklyEarnings != 50 {
		t.Fatalf("weekly = %v, want 50", stats.WeeklyEarnings)
	}
}

func TestStatsSettlesEveryFailingSubset(t *testing.T) {
	// Each of the six branches toggles between ok and failing; every
	// combination must still settle with fallbacks in the failed slots.
	for mask := 0; mask < 1<<6; mask++ {
		q := &fakeQueries{
			active:    3,
			completed: 7,
			upcoming:  2,
			recent:    []BookingRow{{ID: "b1", Title: "Fix sink", CreatedAt: time.Now()}},
			monthly:   []Earning{{price(100)}},
			weekly:    []Earning{{price(40)}},
		}
		if mask&1 != 0 {
			q.activeErr = errBranch
		}
		if mask&2 != 0 {
			q.completedErr = errBranch
		}
		if mask&4 != 0 {
			q.upcomingErr = errBranch
		}
		if mask&8 != 0 {
			q.recentErr = errBranch
		}
		if mask&16 != 0 {
			q.monthlyErr = errBranch
		}
		if mask&32 != 0 {
			q.weeklyErr = errBranch
		}

		stats, recent, err := newTestAgg(q).Stats(context.Background(), "u1")
		if err != nil {
			t.Fatalf("mask %06b: unexpected error %v", mask, err)
		}

		wantActive, wantCompleted, wantUpcoming := 3, 7, 2
		if mask&1 != 0 {
			wantActive = 0
		}
		if mask&2 != 0 {
			wantCompleted = 0
		}
		if mask&4 != 0 {
			wantUpcoming = 0
		}
		if stats.ActiveBookings != wantActive || stats.CompletedBookings != wantCompleted || stats.UpcomingBookings != wantUpcoming {
			t.Fatalf("mask %06b: counts = %d/%d/%d", mask, stats.ActiveBookings, stats.CompletedBookings, stats.UpcomingBookings)
		}
		if mask&8 != 0 && len(recent) != 0 {
			t.Fatalf("mask %06b: recent not empty on failure", mask)
		}
		if mask&16 != 0 && stats.MonthlyEarnings != 0 {
			t.Fatalf("mask %06b: monthly = %v, want 0", mask, stats.MonthlyEarnings)
		}
		if mask&32 != 0 && stats.WeeklyEarnings != 0 {
			t.Fatalf("mask %06b: weekly = %v, want 0", mask, stats.WeeklyEarnings)
		}
	}
}

func TestStatsMonthlyFailsWeeklyFulfills(t *testing.T) {
	q := &fakeQueries{
		monthlyErr: errBranch,
		weekly:     []Earning{{price(100)}, {price(50)}},
	}
	stats, _, err := newTestAgg(q).Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.MonthlyEarnings != 0 {
		t.Fatalf("monthly = %v, want 0", stats.MonthlyEarnings)
	}
	if stats.WeeklyEarnings != 150 {
		t.Fatalf("weekly = %v, want 150", stats.WeeklyEarnings)
	}
}

func TestStatsStoredCountersTakePrecedence(t *testing.T) {
	q := &fakeQueries{
		active:    3,
		completed: 7,
		stored:    &StoredStats{CompletedJobs: 42, TotalEarnings: 999.5, AverageRating: 4.8},
	}
	stats, _, err := newTestAgg(q).Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CompletedBookings != 42 {
		t.Fatalf("completed = %d, want stored 42", stats.CompletedBookings)
	}
	if stats.TotalEarnings != 999.5 || stats.AverageRating != 4.8 {
		t.Fatalf("stored earnings/rating not applied: %v / %v", stats.TotalEarnings, stats.AverageRating)
	}
	// Rate is computed from the raw counts, not the stored row.
	if stats.CompletionRate != 70 {
		t.Fatalf("completion rate = %d, want 70 from raw counts", stats.CompletionRate)
	}
}

func TestStatsStoredLookupFailureFallsBack(t *testing.T) {
	q := &fakeQueries{completed: 7, storedErr: errBranch}
	stats, _, err := newTestAgg(q).Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CompletedBookings != 7 {
		t.Fatalf("completed = %d, want recomputed 7", stats.CompletedBookings)
	}
}

func TestStatsStoreUnreachable(t *testing.T) {
	q := &fakeQueries{pingErr: errors.New("connection refused")}
	if _, _, err := newTestAgg(q).Stats(context.Background(), "u1"); err == nil {
		t.Fatal("expected error when the store is unreachable before fan-out")
	}
}

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		active, completed, want int
	}{
		{0, 0, 0},
		{3, 7, 70},
		{7, 3, 30},
		{1, 2, 67},
		{2, 1, 33},
		{0, 5, 100},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := completionRate(tc.active, tc.completed); got != tc.want {
			t.Errorf("completionRate(%d, %d) = %d, want %d", tc.active, tc.completed, got, tc.want)
		}
	}
}

func TestOverviewPanelsDegrade(t *testing.T) {
	q := &fakeQueries{
		active:           1,
		notificationsErr: errBranch,
		threadsErr:       errBranch,
		messagesErr:      errBranch,
		reviewsErr:       errBranch,
	}
	ov, err := newTestAgg(q).Overview(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(ov.Notifications) != 0 || len(ov.Threads) != 0 || len(ov.Activity) != 0 {
		t.Fatalf("panels not empty on failure: %+v", ov)
	}
	if ov.Stats.ActiveBookings != 1 {
		t.Fatalf("stats lost: %+v", ov.Stats)
	}
}
