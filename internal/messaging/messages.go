package messaging

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/db"
	"github.com/sudo-init-do/taskhub/internal/realtime"
)

// Message mirrors a messages row.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at"`
}

// ConversationSummary is one row of the inbox listing.
type ConversationSummary struct {
	ID            string    `json:"id"`
	OtherUserID   string    `json:"other_user_id"`
	OtherUserName string    `json:"other_user_name"`
	LastMessage   string    `json:"last_message"`
	LastSenderID  string    `json:"last_sender_id"`
	LastAt        time.Time `json:"last_at"`
	UnreadCount   int       `json:"unread_count"`
}

// orderPair returns the participant pair in canonical order so a
// conversation between two users maps to exactly one row.
func orderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// findOrCreateConversation looks up the conversation for the pair,
// creating it on first contact.
func findOrCreateConversation(ctx context.Context, userA, userB string) (string, error) {
	p1, p2 := orderPair(userA, userB)

	var id string
	err := db.Conn.QueryRow(ctx,
		`SELECT id::text FROM conversations WHERE participant1_id = $1 AND participant2_id = $2`,
		p1, p2,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	err = db.Conn.QueryRow(ctx,
		`INSERT INTO conversations (participant1_id, participant2_id)
		 VALUES ($1, $2)
		 ON CONFLICT (participant1_id, participant2_id) DO UPDATE SET participant1_id = EXCLUDED.participant1_id
		 RETURNING id::text`,
		p1, p2,
	).Scan(&id)
	return id, err
}

// =========================
// SendMessage - Send a message to another user
// =========================
func SendMessage(c echo.Context) error {
	senderID, ok := c.Get("user_id").(string)
	if !ok || senderID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		RecipientID string `json:"recipient_id"`
		Content     string `json:"content"`
	}
	if err := c.Bind(&req); err != nil || req.RecipientID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message content is required"})
	}
	if req.RecipientID == senderID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot message yourself"})
	}

	ctx := context.Background()

	var recipientEmail, recipientName string
	err := db.Conn.QueryRow(ctx,
		`SELECT email, name FROM users WHERE id = $1 AND COALESCE(is_active, TRUE)`,
		req.RecipientID,
	).Scan(&recipientEmail, &recipientName)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "recipient not found"})
	}

	convID, err := findOrCreateConversation(ctx, senderID, req.RecipientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open conversation"})
	}

	var m Message
	err = db.Conn.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, sender_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id::text, conversation_id::text, sender_id::text, content, created_at`,
		convID, senderID, req.Content,
	).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to send message"})
	}

	realtime.PublishMessage(realtime.KindInsert, m.ID, senderID, req.RecipientID, m)

	ref := convID
	_ = alerts.CreateNotification(req.RecipientID, "message:new", "New message",
		"You have a new message", &ref)
	_ = alerts.EnqueueMessageNew(convID, senderID, recipientEmail, req.RecipientID, req.Content)

	return c.JSON(http.StatusCreated, echo.Map{
		"message_id":      m.ID,
		"conversation_id": convID,
	})
}

// =========================
// ListConversations - Inbox grouped by the other participant
// =========================
func ListConversations(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT cv.id::text,
		        other.id::text, other.name,
		        lm.content, lm.sender_id::text, lm.created_at,
		        (SELECT COUNT(*) FROM messages m
		          WHERE m.conversation_id = cv.id AND m.sender_id <> $1 AND m.read_at IS NULL)
		 FROM conversations cv
		 JOIN users other ON other.id = CASE WHEN cv.participant1_id = $1 THEN cv.participant2_id ELSE cv.participant1_id END
		 JOIN LATERAL (
		     SELECT content, sender_id, created_at FROM messages
		     WHERE conversation_id = cv.id ORDER BY created_at DESC LIMIT 1
		 ) lm ON TRUE
		 WHERE cv.participant1_id = $1 OR cv.participant2_id = $1
		 ORDER BY lm.created_at DESC`, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch conversations"})
	}
	defer rows.Close()

	var convs []ConversationSummary
	for rows.Next() {
		var cs ConversationSummary
		if err := rows.Scan(&cs.ID, &cs.OtherUserID, &cs.OtherUserName, &cs.LastMessage, &cs.LastSenderID, &cs.LastAt, &cs.UnreadCount); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		convs = append(convs, cs)
	}

	return c.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

// =========================
// ListMessages - Messages in one conversation, oldest first
// =========================
func ListMessages(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	convID := c.Param("id")
	if convID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing conversation id"})
	}

	ctx := context.Background()

	var member bool
	err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM conversations
		  WHERE id = $1 AND (participant1_id = $2 OR participant2_id = $2))`,
		convID, uid,
	).Scan(&member)
	if err != nil || !member {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	query := `SELECT id::text, conversation_id::text, sender_id::text, content, created_at, read_at
	          FROM messages WHERE conversation_id = $1`
	args := []any{convID}
	if since := c.QueryParam("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			args = append(args, t)
			query += " AND created_at > $2"
		}
	}
	args = append(args, limit)
	query += " ORDER BY created_at ASC LIMIT $" + strconv.Itoa(len(args))

	rows, err := db.Conn.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch messages"})
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.ReadAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to parse record"})
		}
		msgs = append(msgs, m)
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

// =========================
// MarkConversationRead - Mark all messages from the other party as read
// =========================
func MarkConversationRead(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	convID := c.Param("id")
	if convID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing conversation id"})
	}

	res, err := db.Conn.Exec(context.Background(),
		`UPDATE messages SET read_at = NOW()
		 WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL
		   AND conversation_id IN (
		       SELECT id FROM conversations WHERE participant1_id = $2 OR participant2_id = $2)`,
		convID, uid,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update"})
	}

	return c.JSON(http.StatusOK, echo.Map{"marked_read": res.RowsAffected()})
}

// =========================
// UnreadCount - Total unread messages across conversations
// =========================
func UnreadCount(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var count int
	err := db.Conn.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM messages m
		 JOIN conversations cv ON cv.id = m.conversation_id
		 WHERE (cv.participant1_id = $1 OR cv.participant2_id = $1)
		   AND m.sender_id <> $1 AND m.read_at IS NULL`, uid,
	).Scan(&count)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count unread"})
	}

	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}
