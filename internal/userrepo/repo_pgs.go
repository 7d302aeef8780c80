// Package userrepo manages repository layer of users.
package userrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewRepoPGS returns user RepoPGS.
//
// Delete needs db to be a *sql.DB to remove sessions and the user atomically.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	r := &RepoPGS{
		db: db,
	}

	if conn, ok := db.(*sql.DB); ok {
		r.conn = conn
	}

	return r
}

const userColumns = `id, email, hashed_password, name, phone, preferences, is_verified, otp_hash, otp_expires_at, otp_attempts, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.User, error) {
	var (
		u           domain.User
		preferences []byte
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.Name,
		&u.Phone,
		&preferences,
		&u.IsVerified,
		&u.OTPHash,
		&u.OTPExpiresAt,
		&u.OTPAttempts,
		&u.CreatedAt,
	)

	u.Preferences = json.RawMessage(preferences)

	return u, err
}

func mapError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrUserNotFound
	case dbpkg.IsUnavailable(err):
		return errorspkg.ErrUnavailable
	}

	return errorspkg.ErrInternal
}

func preferencesOrEmpty(p json.RawMessage) []byte {
	if len(p) == 0 {
		return []byte(`{}`)
	}

	return p
}

// upsertQuery refreshes an existing row only while its email is not verified.
const upsertQuery = `
INSERT INTO users (
    email,
    hashed_password,
    name,
    phone,
    preferences,
    otp_hash,
    otp_expires_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7
)
ON CONFLICT (email) DO UPDATE
SET hashed_password = EXCLUDED.hashed_password,
    name = EXCLUDED.name,
    phone = EXCLUDED.phone,
    preferences = EXCLUDED.preferences,
    otp_hash = EXCLUDED.otp_hash,
    otp_expires_at = EXCLUDED.otp_expires_at,
    otp_attempts = 0
WHERE users.is_verified = false
RETURNING ` + userColumns

// Upsert creates the user, or overwrites the user with the same email if it is not verified yet.
func (r *RepoPGS) Upsert(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, upsertQuery,
		arg.Email,
		arg.HashedPassword,
		arg.Name,
		arg.Phone,
		preferencesOrEmpty(arg.Preferences),
		arg.OTPHash,
		arg.OTPExpiresAt,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Str("email", arg.Email).Msg("email already verified")
			return domain.User{}, domain.ErrEmailAlreadyExists
		}

		l.Error().Err(err).Send()

		if dbpkg.SQLState(err) == dbpkg.CodeUniqueViolation {
			return domain.User{}, domain.ErrEmailAlreadyExists
		}

		return domain.User{}, mapError(err)
	}

	return u, nil
}

const getByEmailQuery = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
`

// GetByEmail returns the user with the given email.
func (r *RepoPGS) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, getByEmailQuery, email))
	if err != nil {
		l.Error().Err(err).Send()
		return domain.User{}, mapError(err)
	}

	return u, nil
}

const getQuery = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

// Get returns the user with the given id.
func (r *RepoPGS) Get(ctx context.Context, id uuid.UUID) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		l.Error().Err(err).Send()
		return domain.User{}, mapError(err)
	}

	return u, nil
}

const setOTPQuery = `
UPDATE users
SET otp_hash = $2, otp_expires_at = $3, otp_attempts = 0
WHERE id = $1
RETURNING ` + userColumns

// SetOTP replaces the pending one time password of the user.
func (r *RepoPGS) SetOTP(ctx context.Context, id uuid.UUID, otpHash string, expiresAt time.Time) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, setOTPQuery, id, otpHash, expiresAt))
	if err != nil {
		l.Error().Err(err).Send()
		return domain.User{}, mapError(err)
	}

	return u, nil
}

const markVerifiedQuery = `
UPDATE users
SET is_verified = true, otp_hash = '', otp_expires_at = '0001-01-01 00:00:00Z', otp_attempts = 0
WHERE id = $1
RETURNING ` + userColumns

// MarkVerified marks the user email as confirmed and clears the OTP.
func (r *RepoPGS) MarkVerified(ctx context.Context, id uuid.UUID) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx, markVerifiedQuery, id))
	if err != nil {
		l.Error().Err(err).Send()
		return domain.User{}, mapError(err)
	}

	return u, nil
}

const useOTPAttemptQuery = `
UPDATE users
SET otp_attempts = otp_attempts + 1
WHERE id = $1 AND otp_attempts < $2
RETURNING otp_attempts
`

// UseOTPAttempt counts one verification attempt against the pending OTP.
//
// It returns domain.ErrTooManyOTPAttempts once max attempts were used.
func (r *RepoPGS) UseOTPAttempt(ctx context.Context, id uuid.UUID, max int) error {
	l := zerolog.Ctx(ctx)

	var attempts int

	err := r.db.QueryRowContext(ctx, useOTPAttemptQuery, id, max).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.Info().Str("user_id", id.String()).Msg("otp attempts exhausted")
			return domain.ErrTooManyOTPAttempts
		}

		l.Error().Err(err).Send()

		return mapError(err)
	}

	return nil
}

const (
	deleteSessionsQuery = `DELETE FROM sessions WHERE user_id = $1`
	deleteQuery         = `DELETE FROM users WHERE id = $1`
)

// Delete removes the user together with all of its sessions.
func (r *RepoPGS) Delete(ctx context.Context, id uuid.UUID) error {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return r.delete(ctx, r.db, id)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if err := r.delete(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	return nil
}

func (r *RepoPGS) delete(ctx context.Context, db dbpkg.SQLInterface, id uuid.UUID) error {
	l := zerolog.Ctx(ctx)

	if _, err := db.ExecContext(ctx, deleteSessionsQuery, id); err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	res, err := db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return mapError(err)
	}

	if n == 0 {
		return domain.ErrUserNotFound
	}

	return nil
}
