package mailer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogSender writes OTP codes to the request logger instead of sending them.
//
// It is used when no message broker is configured, typically in development.
type LogSender struct{}

// SendOTP logs the code at warn level so it shows up with default log settings.
func (LogSender) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	l := zerolog.Ctx(ctx)

	l.Warn().
		Str("email", email).
		Str("otp", code).
		Time("expires_at", expiresAt).
		Msg("otp email not sent, no mail transport configured")

	return nil
}
