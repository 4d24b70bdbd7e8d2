package config

import (
	"strings"
	"time"
)

// Config holds all runtime knobs for the scheduling-and-execution control
// plane, defaulted exactly as spec §6 prescribes.
type Config struct {
	// Persistence
	DatabaseURL string // e.g. "sqlite://kaskade_dev.db"

	// Pairs
	PairIDs []string // e.g. ["TON/USDT", "TON/USDC"]

	// Pulse
	PulseMaxAgeMs uint64 // window max age fed to every pulse engine

	// Scheduler
	SchedulerCandidateMin     int           // ensure_candidates(min_needed)
	SchedulerMaxAttempts      int           // max RR rotations per tick
	SchedulerMaxUsersPerBatch int           // max intents selected per tick
	TickInterval              time.Duration // fixed-cadence ticker per pair

	// Executor
	ExecQueueCapacity      int           // scheduler -> router queue capacity; not applied: the scheduler calls Router.Route directly
	PerPairWorkerCapacity  int           // router -> worker channel capacity (min 8)
	DefaultFailureCooldown time.Duration // cooldown applied after a chunk failure

	// Cache
	MaxCachedSessions int // bounded session cache size
	PageSize          int // repository fetch_page size

	// Ops
	Port   int
	AppEnv string // selects structured (production) vs human logs
}

// Load builds a Config from the process environment, applying the defaults
// named in spec §6. Call LoadDotEnv() first if .env support is desired.
func Load() Config {
	return Config{
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://kaskade_dev.db"),

		PairIDs: splitCSV(getEnv("PAIR_IDS", "TON/USDT")),

		PulseMaxAgeMs: uint64(getEnvInt64("PULSE_MAX_AGE_MS", 60_000)),

		SchedulerCandidateMin:     getEnvInt("SCHEDULER_CANDIDATE_MIN", 200),
		SchedulerMaxAttempts:      getEnvInt("SCHEDULER_MAX_ATTEMPTS", 5000),
		SchedulerMaxUsersPerBatch: getEnvInt("SCHEDULER_MAX_USERS_PER_BATCH", 64),
		TickInterval:              time.Duration(getEnvInt("SCHEDULER_TICK_INTERVAL_MS", 250)) * time.Millisecond,

		ExecQueueCapacity:      getEnvInt("EXEC_QUEUE_CAPACITY", 256),
		PerPairWorkerCapacity:  getEnvInt("PER_PAIR_WORKER_CAPACITY", 128),
		DefaultFailureCooldown: time.Duration(getEnvInt64("DEFAULT_FAILURE_COOLDOWN_MS", 10_000)) * time.Millisecond,

		MaxCachedSessions: getEnvInt("MAX_CACHED_SESSIONS", 5000),
		PageSize:          getEnvInt("SESSION_PAGE_SIZE", 500),

		Port:   getEnvInt("PORT", 8080),
		AppEnv: getEnv("APP_ENV", "development"),
	}
}

// IsProduction reports whether structured (JSON) logging should be used.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PerPairWorkerCapacityOrMin clamps the per-pair worker channel capacity to
// the spec-mandated minimum of 8.
func (c Config) PerPairWorkerCapacityOrMin() int {
	if c.PerPairWorkerCapacity < 8 {
		return 8
	}
	return c.PerPairWorkerCapacity
}

// DSN strips the "sqlite://" scheme DatabaseURL carries for readability,
// returning the bare path gorm's sqlite driver expects.
func (c Config) DSN() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite://")
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
