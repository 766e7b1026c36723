package wallet

import "time"

type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   float64   `json:"balance"`
	Escrow    float64   `json:"escrow"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction model for responses
type Transaction struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Reference *string   `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
