package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() (*asynq.Client, error) {
	if client == nil {
		return nil, fmt.Errorf("alerts not initialized")
	}
	return client, nil
}

func enqueue(taskType string, payload any, queue string) error {
	cl, err := ensureClient()
	if err != nil {
		return err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = cl.Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue))
	return err
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func EnqueueWelcomeEmail(userID, email, name string) error {
	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	base = strings.TrimRight(base, "/")

	subject := fmt.Sprintf("Welcome to TaskHub, %s!", name)
	body := fmt.Sprintf("Hi %s, thanks for joining TaskHub.\n\nOpen TaskHub: %s\n\nIf the link doesn't work, copy and paste the URL above.", name, base)

	payload := WelcomeEmailPayload{
		UserID:   userID,
		Name:     name,
		Email:    email,
		Envelope: EmailEnvelope{To: email, Subject: subject, Body: body},
		SentAt:   time.Now(),
	}
	return enqueue(TaskWelcomeEmail, payload, "emails")
}

// EnqueueOTPCode sends an email verification code
func EnqueueOTPCode(userID, email, code string) error {
	payload := OTPCodePayload{
		UserID: userID,
		Email:  email,
		Code:   code,
		Envelope: EmailEnvelope{
			To:      email,
			Subject: "Your TaskHub verification code",
			Body:    fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code),
		},
		SentAt: time.Now(),
	}
	return enqueue(TaskOTPCode, payload, "emails")
}

// EnqueueBookingStatus notifies a party about a booking status change
func EnqueueBookingStatus(bookingID, customerID, taskerID, status, email string, amount float64) error {
	payload := BookingStatusPayload{
		BookingID:  bookingID,
		CustomerID: customerID,
		TaskerID:   taskerID,
		Status:     status,
		Email:      email,
		Amount:     amount,
		Envelope: EmailEnvelope{
			To:      email,
			Subject: fmt.Sprintf("Booking %s", status),
			Body:    fmt.Sprintf("Booking %s is now %s. Amount %.2f.", bookingID, status, amount),
		},
		SentAt: time.Now(),
	}
	return enqueue(TaskBookingStatus, payload, "emails")
}

// EnqueueMessageNew notifies the other participant about a new message
func EnqueueMessageNew(conversationID, senderID, recipientEmail, recipientID, body string) error {
	payload := MessageNewPayload{
		ConversationID: conversationID,
		SenderID:       senderID,
		Recipient:      recipientID,
		Email:          recipientEmail,
		Body:           body,
		Envelope: EmailEnvelope{
			To:      recipientEmail,
			Subject: "New message on TaskHub",
			Body:    body,
		},
		SentAt: time.Now(),
	}
	return enqueue(TaskMessageNew, payload, "emails")
}

// EnqueuePasswordReset schedules a password reset notification
func EnqueuePasswordReset(userID, email, resetURL, name string) error {
	expiry := os.Getenv("PASSWORD_RESET_EXP_MINUTES")
	if expiry == "" {
		expiry = "30"
	}
	subject := "Password reset instructions"
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your TaskHub password.\n\nTo proceed, open the link below:\n%s\n\nThis link expires in %s minutes. If you did not request this, no action is required.\n\n— TaskHub Team", name, resetURL, expiry)

	payload := PasswordResetPayload{
		UserID:    userID,
		Email:     email,
		ResetURL:  resetURL,
		Envelope:  EmailEnvelope{To: email, Subject: subject, Body: body},
		Requested: time.Now(),
	}
	return enqueue(TaskPasswordReset, payload, "emails")
}
