// Package integrationtest provides db helpers used in integration tests.
package integrationtest

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

// OTPRecorder keeps the last OTP sent to every email.
type OTPRecorder struct {
	mu    sync.Mutex
	codes map[string]string
}

// SendOTP records the code.
func (r *OTPRecorder) SendOTP(_ context.Context, email, code string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codes == nil {
		r.codes = make(map[string]string)
	}

	r.codes[email] = code

	return nil
}

// Code returns the last code sent to email.
func (r *OTPRecorder) Code(email string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.codes[email]
}

// Config loads the test configuration.
func Config(t *testing.T) configpkg.Config {
	t.Helper()

	config, err := configpkg.Load("../../configs")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs") returned error: %v`, err)
	}

	return config
}

// SetupServer returns test server that cleans up database after each integration test.
// OTP codes issued by the server are kept in the returned recorder.
func SetupServer(t *testing.T) (*httpserver.Server, *OTPRecorder) {
	t.Helper()

	config := Config(t)

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	if err := dbpkg.MigrateUp(config.DBDriver, config.DBSource); err != nil {
		t.Fatalf("dbpkg.MigrateUp() returned error: %v", err)
	}

	db := SetupDB(t, config.DBDriver, config.DBSource)

	gin.SetMode(gin.ReleaseMode)

	recorder := &OTPRecorder{}

	server, err := httpserver.New(db, logger, config, recorder)
	if err != nil {
		t.Fatalf(`httpserver.New(db, logger, config, recorder) returned error: %v`, err)
	}

	return server, recorder
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema='public' AND table_name <> 'schema_migrations';`

	row := db.QueryRow(query)

	err := row.Scan(&tables)
	if err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + " CASCADE"); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, driver, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, driver, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(driver, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}
