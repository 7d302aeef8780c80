package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender sends OTP emails through an SMTP relay.
type SMTPSender struct {
	from   string
	client mailClient
}

// NewSMTPSender returns an SMTPSender. It fails when From is not a valid address.
func NewSMTPSender(config SMTPConfig) (*SMTPSender, error) {
	if config.Host == "" {
		return nil, errors.New("smtp host is not set")
	}

	if err := mail.NewMsg().From(config.From); err != nil {
		return nil, fmt.Errorf("parse from address %q: %w", config.From, err)
	}

	if config.Port == 0 {
		config.Port = 587
	}

	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}

	if config.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(config.User),
			mail.WithPassword(config.Pass),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{from: config.From, client: client}, nil
}

// SendOTP renders and sends the OTP email.
func (s *SMTPSender) SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error {
	return s.Send(ctx, NewOTPMessage(email, code, expiresAt))
}

// Send renders msg and hands it to the SMTP relay.
//
// Rejections the relay reports as permanent are wrapped with ErrPermanent.
func (s *SMTPSender) Send(ctx context.Context, msg *OTPMessage) error {
	l := zerolog.Ctx(ctx)

	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && !sendErr.IsTemp() {
			return fmt.Errorf("%w: send mail: %w", ErrPermanent, err)
		}

		return fmt.Errorf("send mail: %w", err)
	}

	l.Info().Str("email", msg.Email).Msg("otp email sent")

	return nil
}

// build renders msg into a multipart/alternative email with text and html parts.
func (s *SMTPSender) build(msg *OTPMessage) (*mail.Msg, error) {
	rendered, err := Render(msg)
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()

	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("%w: from address: %w", ErrPermanent, err)
	}

	if err := m.To(msg.Email); err != nil {
		return nil, fmt.Errorf("%w: recipient address: %w", ErrPermanent, err)
	}

	m.Subject(rendered.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, rendered.Text)
	m.AddAlternativeString(mail.TypeTextHTML, rendered.HTML)

	return m, nil
}
