package config

import (
	"flag"
	"io"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Addr        string
	DBUrl       string
	TokenSecret string
	TokenTTL    time.Duration
	SessionDir  string
	SinglePage  bool
	AdminUser   string
	AdminPass   string
	Debug       bool
	LogJSON     bool
}

// ParseFlags reads configuration from args, falling back to QSURVEY_*
// environment variables (optionally loaded from a .env file).
func ParseFlags(args []string) (cfg Config, err error) {
	err = godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, errors.Wrap(err, "load .env")
	}
	err = nil

	fs := flag.NewFlagSet("timed-survey", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var host string
	fs.StringVar(&host, "host", env("QSURVEY_HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("QSURVEY_PORT", 80), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", env("QSURVEY_DB_URL", "qsurvey.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("QSURVEY_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", envUint("QSURVEY_TOKEN_TTL", 120), "token TTL in seconds")
	fs.StringVar(&cfg.SessionDir, "session-dir", env("QSURVEY_SESSION_DIR", ""), "directory of the session store (in-memory when empty)")
	fs.BoolVar(&cfg.SinglePage, "single-page", envBool("QSURVEY_SINGLE_PAGE"), "show every question on one page when no step is given")
	fs.StringVar(&cfg.AdminUser, "admin-user", env("QSURVEY_ADMIN_USER", ""), "staff account created at startup")
	fs.StringVar(&cfg.AdminPass, "admin-pass", env("QSURVEY_ADMIN_PASS", ""), "password of the staff account created at startup")
	fs.BoolVar(&cfg.Debug, "debug", envBool("QSURVEY_DEBUG"), "log at DEBUG level")
	fs.BoolVar(&cfg.LogJSON, "log-json", envBool("QSURVEY_LOG_JSON"), "log one JSON object per line")
	if err = fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.AdminUser != "" && cfg.AdminPass == "":
		err = errors.New("missing parameter -admin-pass for -admin-user")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint) uint {
	n, err := strconv.ParseUint(os.Getenv(key), 10, 32)
	if err != nil {
		return fallback
	}
	return uint(n)
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}
