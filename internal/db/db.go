package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema pieces handlers rely on.
func Init(ctx context.Context, databaseURL string) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	Conn = pool

	ensureBaseTables(ctx)
	ensureUsersColumns(ctx)
	ensureBookingsSchema(ctx)
	ensureConversationsSchema(ctx)
	ensureNotificationsTable(ctx)
	ensureTaskerStatsTable(ctx)
	ensureWalletColumns(ctx)
	ensureReviewsTable(ctx)
	ensureDisputesTable(ctx)

	return nil
}

// Close releases the connection pool.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

// ensureBaseTables creates the core tables the rest of the schema hangs off.
func ensureBaseTables(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('customer','tasker','admin')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS wallets (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
            balance DOUBLE PRECISION NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS services (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            price DOUBLE PRECISION NOT NULL,
            category TEXT,
            status TEXT DEFAULT 'active',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount DOUBLE PRECISION NOT NULL,
            type TEXT NOT NULL,
            status TEXT NOT NULL,
            reference TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);
    `)
	if err != nil {
		slog.Warn("failed to create base tables", "error", err)
	}
}

// ensureUsersColumns adds verification/moderation columns if missing
func ensureUsersColumns(ctx context.Context) {
	stmts := []string{
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN DEFAULT TRUE`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS email_verified BOOLEAN DEFAULT FALSE`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS bio TEXT`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS avatar_url TEXT`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP`,
		`UPDATE users SET is_active = TRUE WHERE is_active IS NULL`,
	}
	for _, s := range stmts {
		if _, err := Conn.Exec(ctx, s); err != nil {
			slog.Warn("users schema ensure failed", "error", err)
			return
		}
	}
}

// ensureBookingsSchema creates service_bookings and keeps its status constraint
// aligned with the transitions handlers apply.
func ensureBookingsSchema(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS service_bookings (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            service_id UUID NOT NULL REFERENCES services(id) ON DELETE CASCADE,
            customer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            tasker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            agreed_price DOUBLE PRECISION NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            scheduled_at TIMESTAMP WITH TIME ZONE NULL,
            completed_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_bookings_customer ON service_bookings(customer_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_bookings_tasker ON service_bookings(tasker_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_bookings_status ON service_bookings(status);
    `)
	if err != nil {
		slog.Warn("failed to create service_bookings", "error", err)
		return
	}

	_, _ = Conn.Exec(ctx, `ALTER TABLE service_bookings DROP CONSTRAINT IF EXISTS service_bookings_status_check`)
	_, err = Conn.Exec(ctx, `
        ALTER TABLE service_bookings
        ADD CONSTRAINT service_bookings_status_check
        CHECK (status IN (
            'pending', 'accepted', 'confirmed', 'in_progress', 'completed',
            'cancelled', 'disputed', 'refunded'
        ))`)
	if err != nil {
		slog.Warn("failed to update booking status constraint", "error", err)
	}
}

// ensureConversationsSchema creates conversations and messages tables
func ensureConversationsSchema(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS conversations (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            participant1_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            participant2_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (participant1_id, participant2_id)
        );
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            content TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		slog.Warn("failed to create conversations schema", "error", err)
	}
}

// ensureNotificationsTable creates notifications table if it doesn't exist
func ensureNotificationsTable(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            reference UUID NULL,
            metadata JSONB NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		slog.Warn("failed to create notifications table", "error", err)
	}
}

// ensureTaskerStatsTable creates the aggregate counters row storage. The
// dashboard prefers these counters over recomputed raw aggregates when the
// row exists.
func ensureTaskerStatsTable(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS tasker_stats (
            tasker_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            completed_jobs INTEGER NOT NULL DEFAULT 0,
            total_earnings DOUBLE PRECISION NOT NULL DEFAULT 0,
            average_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		slog.Warn("failed to create tasker_stats table", "error", err)
	}
}

// ensureWalletColumns adds wallets.escrow if missing
func ensureWalletColumns(ctx context.Context) {
	stmts := []string{
		`ALTER TABLE wallets ADD COLUMN IF NOT EXISTS escrow DOUBLE PRECISION DEFAULT 0`,
		`UPDATE wallets SET escrow = 0 WHERE escrow IS NULL`,
	}
	for _, s := range stmts {
		if _, err := Conn.Exec(ctx, s); err != nil {
			slog.Warn("wallets schema ensure failed", "error", err)
			return
		}
	}
}

// ensureReviewsTable creates reviews table if not present
func ensureReviewsTable(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS reviews (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            booking_id UUID NOT NULL UNIQUE REFERENCES service_bookings(id) ON DELETE CASCADE,
            customer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            tasker_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_reviews_tasker ON reviews(tasker_id, created_at);
    `)
	if err != nil {
		slog.Warn("failed to create reviews table", "error", err)
	}
}

// ensureDisputesTable creates disputes table if not present
func ensureDisputesTable(ctx context.Context) {
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS disputes (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            booking_id UUID NOT NULL REFERENCES service_bookings(id) ON DELETE CASCADE,
            opened_by UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            reason TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','resolved')),
            resolution TEXT NULL CHECK (resolution IN ('refund','release','none')),
            notes TEXT NULL,
            resolved_by UUID NULL REFERENCES users(id) ON DELETE SET NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            resolved_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_disputes_booking ON disputes(booking_id);
        CREATE INDEX IF NOT EXISTS idx_disputes_status ON disputes(status);
    `)
	if err != nil {
		slog.Warn("failed to create disputes table", "error", err)
	}
}
