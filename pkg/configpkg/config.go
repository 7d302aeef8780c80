// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver             string        `mapstructure:"DB_DRIVER"`
	DBSource             string        `mapstructure:"DB_SOURCE"`
	MigrateOnStart       bool          `mapstructure:"MIGRATE_ON_START"`
	ServerAddress        string        `mapstructure:"SERVER_ADDRESS"`
	CORSOrigin           string        `mapstructure:"CORS_ORIGIN"`
	TokenMaker           string        `mapstructure:"TOKEN_MAKER"`
	TokenSymmetricKey    string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration  time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	RefreshTokenDuration time.Duration `mapstructure:"REFRESH_TOKEN_DURATION"`
	OTPTTL               time.Duration `mapstructure:"OTP_TTL"`
	LedgerTxAttempts     int           `mapstructure:"LEDGER_TX_ATTEMPTS"`
	AMQPURL              string        `mapstructure:"AMQP_URL"`
	AMQPExchange         string        `mapstructure:"AMQP_EXCHANGE"`
	AMQPQueue            string        `mapstructure:"AMQP_QUEUE"`
	SMTPHost             string        `mapstructure:"SMTP_HOST"`
	SMTPPort             int           `mapstructure:"SMTP_PORT"`
	SMTPUser             string        `mapstructure:"SMTP_USER"`
	SMTPPass             string        `mapstructure:"SMTP_PASS"`
	FromEmail            string        `mapstructure:"FROM_EMAIL"`
	Environment          string        `mapstructure:"GO_ENV"`
}

var defaults = map[string]any{
	"DB_DRIVER":              "postgres",
	"DB_SOURCE":              "",
	"MIGRATE_ON_START":       false,
	"SERVER_ADDRESS":         "0.0.0.0:4003",
	"CORS_ORIGIN":            "*",
	"TOKEN_MAKER":            "paseto",
	"TOKEN_SYMMETRIC_KEY":    "",
	"ACCESS_TOKEN_DURATION":  "15m",
	"REFRESH_TOKEN_DURATION": "168h",
	"OTP_TTL":                "10m",
	"LEDGER_TX_ATTEMPTS":     3,
	"AMQP_URL":               "",
	"AMQP_EXCHANGE":          "pet-ledger",
	"AMQP_QUEUE":             "otp_emails",
	"SMTP_HOST":              "",
	"SMTP_PORT":              587,
	"SMTP_USER":              "",
	"SMTP_PASS":              "",
	"FROM_EMAIL":             "Fintech Tracker <no-reply@example.com>",
	"GO_ENV":                 "production",
}

// Load reads configuration from path/app.env and overrides it with environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
