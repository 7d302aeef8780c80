package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmailAlreadyExists indicates that a verified user with the given email already exists.
	ErrEmailAlreadyExists = errors.New("Email already exists")
	// ErrUserNotFound indicates the the user is not found.
	ErrUserNotFound = errors.New("User not found")
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrUserNotVerified indicates that the email has not been confirmed with an OTP yet.
	ErrUserNotVerified = errors.New("User is not verified")
	// ErrUserAlreadyVerified indicates that the OTP flow was already completed.
	ErrUserAlreadyVerified = errors.New("User is already verified")
	// ErrInvalidOTP indicates a wrong one time password.
	ErrInvalidOTP = errors.New("Invalid OTP")
	// ErrExpiredOTP indicates an expired one time password.
	ErrExpiredOTP = errors.New("OTP has expired")
	// ErrTooManyOTPAttempts indicates that the current OTP was guessed too often and a new one is needed.
	ErrTooManyOTPAttempts = errors.New("Too many OTP attempts, request a new OTP")
	// ErrForbidden indicates that the caller may not act on another user.
	ErrForbidden = errors.New("Forbidden")
)

// User holds user data.
type User struct {
	ID             uuid.UUID       `json:"id"`
	Email          string          `json:"email"`
	HashedPassword string          `json:"-"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Preferences    json.RawMessage `json:"preferences"`
	IsVerified     bool            `json:"isVerified"`
	OTPHash        string          `json:"-"`
	OTPExpiresAt   time.Time       `json:"-"`
	OTPAttempts    int             `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// CreateUserParams is the input data to create or refresh an unverified user.
type CreateUserParams struct {
	Email          string
	HashedPassword string
	Name           string
	Phone          string
	Preferences    json.RawMessage
	OTPHash        string
	OTPExpiresAt   time.Time
}

// UserWihtoutPassword is User data excluding password and OTP data.
type UserWihtoutPassword struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Preferences json.RawMessage `json:"preferences"`
	IsVerified  bool            `json:"isVerified"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewUserWihtoutPassword returns user with removed sensitive data.
func NewUserWihtoutPassword(u User) UserWihtoutPassword {
	return UserWihtoutPassword{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Preferences: u.Preferences,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
	}
}

// RegisterUserParams is the sign up input.
type RegisterUserParams struct {
	Email       string
	Password    string
	Name        string
	Phone       string
	Preferences json.RawMessage
}
