// Package mailer renders and delivers one time password emails.
//
// The API process hands messages to a Publisher (RabbitMQ) or, without a broker,
// to a LogSender. cmd/mailworker consumes the queue and sends through SMTPSender.
package mailer

import (
	"context"
	"encoding/json"
	"time"
)

// Sender delivers a one time password to an email address.
type Sender interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
}

// OTPMessage is the queued request to email a one time password.
type OTPMessage struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOTPMessage creates a message stamped with the current time.
func NewOTPMessage(email, code string, expiresAt time.Time) *OTPMessage {
	return &OTPMessage{
		Email:     email,
		Code:      code,
		ExpiresAt: expiresAt,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *OTPMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// OTPMessageFromJSON creates a message from JSON bytes.
func OTPMessageFromJSON(data []byte) (*OTPMessage, error) {
	var msg OTPMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// TTLMinutes returns how many whole minutes the code stays valid after it was issued.
func (m *OTPMessage) TTLMinutes() int {
	ttl := m.ExpiresAt.Sub(m.Timestamp)
	if ttl <= 0 {
		return 0
	}

	return int((ttl + time.Minute - 1) / time.Minute)
}
