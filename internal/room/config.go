// internal/room/config.go
package room

import (
	"os"
	"strconv"
	"time"
)

// Config holds the tunable knobs for room behavior. All of them have
// sensible defaults and can be overridden through environment variables.
type Config struct {
	// RetentionWindow is the discovery cutoff: rooms older than this are
	// excluded from listings (they are not deleted, just hidden).
	RetentionWindow time.Duration

	// RevealDelay is the pause between consecutive character reveals
	// while a session message is being spelled out.
	RevealDelay time.Duration

	// FarewellPercent is the chance (0-100) that a session draws the
	// farewell response instead of a regular one.
	FarewellPercent int

	// FarewellCloseDelay is how long a room lingers after the farewell
	// response has been fully revealed before it closes itself.
	FarewellCloseDelay time.Duration
}

// DefaultConfig returns the stock knobs: 3h retention, 1.5s per character,
// 10% farewell odds, 5s linger before a farewell closes the room.
func DefaultConfig() Config {
	return Config{
		RetentionWindow:    3 * time.Hour,
		RevealDelay:        1500 * time.Millisecond,
		FarewellPercent:    10,
		FarewellCloseDelay: 5 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// DefaultConfig values:
//   - ROOM_RETENTION (duration, e.g. "3h")
//   - REVEAL_DELAY_MS (integer milliseconds)
//   - FAREWELL_PERCENT (0-100)
//   - FAREWELL_CLOSE_MS (integer milliseconds)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("ROOM_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RetentionWindow = d
		}
	}
	if ms := getEnvInt("REVEAL_DELAY_MS", 0); ms > 0 {
		cfg.RevealDelay = time.Duration(ms) * time.Millisecond
	}
	if pct := getEnvInt("FAREWELL_PERCENT", -1); pct >= 0 && pct <= 100 {
		cfg.FarewellPercent = pct
	}
	if ms := getEnvInt("FAREWELL_CLOSE_MS", 0); ms > 0 {
		cfg.FarewellCloseDelay = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
