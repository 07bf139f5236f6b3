package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by VINDEX_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("VINDEX_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// ResearchInterval is how often the background runner claims a batch.
// Defaults to 5 minutes.
func ResearchInterval() time.Duration {
	return duration("RESEARCH_INTERVAL", 5*time.Minute)
}

// ResearchBatchSize is how many doubts one research cycle claims.
// Defaults to 10.
func ResearchBatchSize() int {
	n, err := strconv.Atoi(os.Getenv("RESEARCH_BATCH_SIZE"))
	if err != nil || n <= 0 {
		return 10
	}
	return n
}

// ResearchWorkers bounds parallelism within a research batch.
// Defaults to 4.
func ResearchWorkers() int {
	n, err := strconv.Atoi(os.Getenv("RESEARCH_WORKERS"))
	if err != nil || n <= 0 {
		return 4
	}
	return n
}

// ClaimLease is how long a claim may sit before the sweeper requeues it.
// Defaults to 30 minutes.
func ClaimLease() time.Duration {
	return duration("CLAIM_LEASE", 30*time.Minute)
}

// DoubtRetention is how long pending doubts live before expiring.
// Defaults to 30 days.
func DoubtRetention() time.Duration {
	return duration("DOUBT_RETENTION", 30*24*time.Hour)
}

// SweepInterval is how often the lease sweeper runs.
// Defaults to 10 minutes.
func SweepInterval() time.Duration {
	return duration("SWEEP_INTERVAL", 10*time.Minute)
}

// VPICBaseURL points at the NHTSA vPIC decode API.
func VPICBaseURL() string {
	u := os.Getenv("VPIC_BASE_URL")
	if u == "" {
		return "https://vpic.nhtsa.dot.gov/api/vehicles"
	}
	return u
}

// VPICTimeout bounds one remote decode call. Defaults to 10 seconds.
func VPICTimeout() time.Duration {
	return duration("VPIC_TIMEOUT", 10*time.Second)
}

// TrustedAuctionDomains returns the trusted source allowlist as a
// comma-separated list. When unset the built-in auction-house list is used.
func TrustedAuctionDomains() []string {
	raw := os.Getenv("TRUSTED_AUCTION_DOMAINS")
	if raw == "" {
		return nil
	}
	var out []string
	for _, d := range strings.Split(raw, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func duration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
