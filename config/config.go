/*
Package config loads process configuration.

ORDER (later wins):
  1. `default:` struct tags
  2. config.yml (optional, or the file passed with -config)
  3. .env file (optional, loaded into the environment first)
  4. environment variables (`env:` tags)
  5. command-line flags, applied by cmd/server

SEE ALSO:
  - cmd/server/main.go: flag overrides and startup
*/
package config

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/gotify/configor"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Configuration struct {
	App struct {
		Port int    `default:"8080" env:"APP_PORT"`
		Env  string `default:"dev" env:"APP_ENV"`
	}
	Database struct {
		Path          string `default:"leave.db" env:"DB_PATH"`
		BusyTimeoutMs int    `default:"5000" env:"DB_BUSY_TIMEOUT_MS"`
	}
	Auth struct {
		JWTSecret string        `default:"" env:"JWT_SECRET"`
		TokenTTL  time.Duration `default:"12h" env:"JWT_TTL"`
		Issuer    string        `default:"leave-engine" env:"JWT_ISSUER"`
	}
	Log struct {
		Level  string `default:"info" env:"LOG_LEVEL"`
		Format string `default:"json" env:"LOG_FORMAT"`
	}
	CORS struct {
		AllowedOrigins []string `default:"[\"*\"]" env:"CORS_ALLOWED_ORIGINS"`
	}
	Attendance struct {
		// TimeZone decides which calendar day a punch-in belongs to.
		TimeZone string `default:"Asia/Kolkata" env:"ATTENDANCE_TZ"`
	}
}

// DefaultFiles are tried when no -config flag is given. Missing files are skipped.
var DefaultFiles = []string{"config.yml"}

// Load reads .env (if present) and then the layered configuration.
func Load(files ...string) (*Configuration, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, errors.Wrap(err, "load .env")
	}
	if len(files) == 0 {
		files = DefaultFiles
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	conf := new(Configuration)
	if err := configor.New(&configor.Config{}).Load(conf, existing...); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}

// IsProd reports app.env == prod.
func (c *Configuration) IsProd() bool { return c.App.Env == "prod" }

// Validate rejects configurations the server cannot safely run with.
func (c *Configuration) Validate() error {
	if c.App.Port < 1 || c.App.Port > 65535 {
		return errors.Errorf("app.port %d out of range 1-65535", c.App.Port)
	}
	if c.IsProd() && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtsecret is required when app.env=prod")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrapf(err, "log.level %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return errors.Errorf("log.format %q must be json or text", c.Log.Format)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.tokenttl must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves attendance.timezone.
func (c *Configuration) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Attendance.TimeZone)
	return loc, errors.Wrapf(err, "attendance.timezone %q", c.Attendance.TimeZone)
}

// Secret returns the signing secret, falling back to a fixed development value.
func (c *Configuration) Secret() string {
	if c.Auth.JWTSecret == "" {
		return "dev-secret-change-me"
	}
	return c.Auth.JWTSecret
}
