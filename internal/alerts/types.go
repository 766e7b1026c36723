package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail  = "email:welcome"
	TaskOTPCode       = "email:otp_code"
	TaskBookingStatus = "email:booking_status"
	TaskMessageNew    = "email:message_new"
	TaskPasswordReset = "email:password_reset"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// OTP verification code payload
type OTPCodePayload struct {
	UserID   string        `json:"user_id"`
	Email    string        `json:"email"`
	Code     string        `json:"code"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Booking status change payload; covers accepted, confirmed, in_progress,
// completed, cancelled, disputed and refunded transitions.
type BookingStatusPayload struct {
	BookingID  string        `json:"booking_id"`
	CustomerID string        `json:"customer_id"`
	TaskerID   string        `json:"tasker_id"`
	Status     string        `json:"status"`
	Email      string        `json:"email"`
	Amount     float64       `json:"amount"`
	Envelope   EmailEnvelope `json:"envelope"`
	SentAt     time.Time     `json:"sent_at"`
}

// Message new payload (sent to the other participant)
type MessageNewPayload struct {
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Recipient      string        `json:"recipient"`
	Email          string        `json:"email"`
	Body           string        `json:"body"`
	Envelope       EmailEnvelope `json:"envelope"`
	SentAt         time.Time     `json:"sent_at"`
}

// Password reset payload
type PasswordResetPayload struct {
	UserID    string        `json:"user_id"`
	Email     string        `json:"email"`
	ResetURL  string        `json:"reset_url"`
	Envelope  EmailEnvelope `json:"envelope"`
	Requested time.Time     `json:"requested"`
}
