package config

import (
	"os"
	"strconv"
	"strings"
)

// Config captures process-level configuration. Optional backends (postgres,
// redis, kafka) are enabled by presence of their setting.
type Config struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string

	// OwnerAddress is the protocol owner: may withdraw on behalf of
	// beneficiaries, cancel proposals, and finalize invalidations.
	OwnerAddress string
	// EscrowAccount is the token account holding escrowed funds.
	EscrowAccount string

	// GenesisSupply mints an initial nominal token supply to the owner when
	// running with the in-memory bank. Simulator wiring only.
	GenesisSupply uint64

	// GovernanceBackend selects the gateway implementation: "manual"
	// (owner-operated mutators) or "governor" (timed voting with timelock).
	GovernanceBackend string
	GovVotingDelay    int64
	GovVotingPeriod   int64
	GovTimelockDelay  int64
	GovQuorum         uint64
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          getenv("ESCROW_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("ESCROW_DATABASE_URL"),
		RedisURL:      os.Getenv("ESCROW_REDIS_URL"),
		KafkaTopic:    getenv("ESCROW_KAFKA_TOPIC", "auditescrow.events"),
		JWTSigningKey: getenv("ESCROW_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		OwnerAddress:  getenv("ESCROW_OWNER_ADDRESS", "protocol-owner"),
		EscrowAccount: getenv("ESCROW_ACCOUNT_ADDRESS", "protocol-escrow"),
		GenesisSupply: 1_000_000,

		GovernanceBackend: getenv("ESCROW_GOVERNANCE_BACKEND", "manual"),
		GovVotingDelay:    getint64("ESCROW_GOV_VOTING_DELAY", 3600),
		GovVotingPeriod:   getint64("ESCROW_GOV_VOTING_PERIOD", 86400),
		GovTimelockDelay:  getint64("ESCROW_GOV_TIMELOCK_DELAY", 3600),
		GovQuorum:         uint64(getint64("ESCROW_GOV_QUORUM", 1)),
	}
	if brokers := os.Getenv("ESCROW_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
