// Package userservice manages business logic layer of users.
package userservice

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

const (
	// OTPLength is the number of digits in a one time password.
	OTPLength = 6
	// MaxOTPAttempts is the number of codes that may be tried against one OTP.
	MaxOTPAttempts = 5
)

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Upsert(ctx context.Context, arg domain.CreateUserParams) (domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	SetOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) (domain.User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (domain.User, error)
	UseOTPAttempt(ctx context.Context, id uuid.UUID, max int) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OTPSender delivers one time passwords to users.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string, expiresAt time.Time) error
}

// Service facilitates user service layer logic.
type Service struct {
	repo   Repo
	sender OTPSender
	otpTTL time.Duration
}

// New return user service struct to manage user bussines logic.
func New(ur Repo, sender OTPSender, otpTTL time.Duration) *Service {
	return &Service{
		repo:   ur,
		sender: sender,
		otpTTL: otpTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newOTP returns a fresh code, its hash and expiry.
func (s *Service) newOTP(ctx context.Context) (string, string, time.Time, error) {
	l := zerolog.Ctx(ctx)

	code := randompkg.Digits(OTPLength)

	hash, err := passpkg.Hash(code)
	if err != nil {
		l.Error().Err(err).Send()
		return "", "", time.Time{}, errorspkg.ErrInternal
	}

	return code, hash, time.Now().Add(s.otpTTL), nil
}

// sendOTP never fails the request. The user can ask for another code.
func (s *Service) sendOTP(ctx context.Context, email, code string, expiresAt time.Time) {
	l := zerolog.Ctx(ctx)

	if err := s.sender.SendOTP(ctx, email, code, expiresAt); err != nil {
		l.Error().Err(err).Str("email", email).Msg("cannot send otp")
	}
}

// Register creates an unverified user, or refreshes one that never finished
// verification, and sends it a one time password.
func (s *Service) Register(ctx context.Context, arg domain.RegisterUserParams) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	hashedPassword, err := passpkg.Hash(arg.Password)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.UserWihtoutPassword{}, errorspkg.ErrInternal
	}

	code, otpHash, expiresAt, err := s.newOTP(ctx)
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	user, err := s.repo.Upsert(ctx, domain.CreateUserParams{
		Email:          normalizeEmail(arg.Email),
		HashedPassword: hashedPassword,
		Name:           arg.Name,
		Phone:          arg.Phone,
		Preferences:    arg.Preferences,
		OTPHash:        otpHash,
		OTPExpiresAt:   expiresAt,
	})
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	s.sendOTP(ctx, user.Email, code, expiresAt)

	return domain.NewUserWihtoutPassword(user), nil
}

// VerifyOTP confirms the user's email with the one time password.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	if user.IsVerified {
		return domain.UserWihtoutPassword{}, domain.ErrUserAlreadyVerified
	}

	if user.OTPHash == "" {
		return domain.UserWihtoutPassword{}, domain.ErrInvalidOTP
	}

	if time.Now().After(user.OTPExpiresAt) {
		return domain.UserWihtoutPassword{}, domain.ErrExpiredOTP
	}

	if err := s.repo.UseOTPAttempt(ctx, user.ID, MaxOTPAttempts); err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	if err := passpkg.Check(otp, user.OTPHash); err != nil {
		l.Info().Err(err).Send()
		return domain.UserWihtoutPassword{}, domain.ErrInvalidOTP
	}

	user, err = s.repo.MarkVerified(ctx, user.ID)
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	return domain.NewUserWihtoutPassword(user), nil
}

// ResendOTP issues a new one time password for an unverified user.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}

	if user.IsVerified {
		return domain.ErrUserAlreadyVerified
	}

	code, otpHash, expiresAt, err := s.newOTP(ctx)
	if err != nil {
		return err
	}

	if _, err := s.repo.SetOTP(ctx, user.ID, otpHash, expiresAt); err != nil {
		return err
	}

	s.sendOTP(ctx, user.Email, code, expiresAt)

	return nil
}

// CheckPassword checks if the password is valid for the given email and the user is verified.
func (s *Service) CheckPassword(ctx context.Context, email, pass string) (domain.UserWihtoutPassword, error) {
	l := zerolog.Ctx(ctx)

	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.UserWihtoutPassword{}, domain.ErrInvalidCredentials
		}

		return domain.UserWihtoutPassword{}, err
	}

	if err := passpkg.Check(pass, user.HashedPassword); err != nil {
		l.Warn().Err(err).Send()
		return domain.UserWihtoutPassword{}, domain.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return domain.UserWihtoutPassword{}, domain.ErrUserNotVerified
	}

	return domain.NewUserWihtoutPassword(user), nil
}

// Get returns the user profile.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.UserWihtoutPassword, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.UserWihtoutPassword{}, err
	}

	return domain.NewUserWihtoutPassword(user), nil
}

// Delete removes the user and its sessions. Users may only delete themselves.
func (s *Service) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID != id {
		return domain.ErrForbidden
	}

	return s.repo.Delete(ctx, id)
}
