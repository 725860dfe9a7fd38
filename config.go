package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	bcrypt "golang.org/x/crypto/bcrypt"
)

type Config struct {
	ListenAddr  string
	DatabaseURL string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	DBMaxOpenConns int
	DBMaxIdleConns int

	KafkaBrokers    string
	CORSAllowOrigin string
}

// LoadConfig reads the environment, after loading a .env file when one
// exists.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("reading .env: %v", err)
	}

	var errs []error
	cfg := Config{
		ListenAddr:      getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:     strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		TokenTTL:        durationEnv("TOKEN_TTL", 60*time.Minute, &errs),
		BcryptCost:      intEnv("BCRYPT_COST", bcrypt.DefaultCost, &errs),
		DBMaxOpenConns:  intEnv("DB_MAX_OPEN_CONNS", 10, &errs),
		DBMaxIdleConns:  intEnv("DB_MAX_IDLE_CONNS", 5, &errs),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		CORSAllowOrigin: getenv("CORS_ALLOW_ORIGIN", "*"),
	}
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	return cfg, errors.Join(errs...)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func intEnv(k string, def int, errs *[]error) int {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return n
}

func durationEnv(k string, def time.Duration, errs *[]error) time.Duration {
	v := getenv(k, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", k, err))
		return def
	}
	return d
}
