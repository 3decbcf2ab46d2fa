package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"oraclequest/database"
	"oraclequest/domain/entities"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string
	GuildID      string // Guild to register commands in, global when empty

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Ledger configuration
	ProgramID           entities.AccountID
	AuthorityDiscordIDs []int64 // Discord IDs allowed to create and resolve events
	RentLamportsPerByte uint64
	RentOverheadBytes   uint64

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), events stay local when empty

	// Tree service configuration
	TreeDBPath     string
	TreeProofKey   []byte
	TreeStateTrees int

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production" or "test"
}

// DefaultProgramID is used when PROGRAM_ID is not set
var DefaultProgramID = entities.AccountID(sha256.Sum256([]byte("oraclequest/program")))

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAuthority reports whether discordID may create and resolve events
func (c *Config) IsAuthority(discordID int64) bool {
	for _, id := range c.AuthorityDiscordIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		GuildID:      os.Getenv("GUILD_ID"),

		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Ledger
		ProgramID:           DefaultProgramID,
		RentLamportsPerByte: 6960,
		RentOverheadBytes:   128,

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Tree service
		TreeDBPath:     getEnvWithDefault("TREE_DB_PATH", "treeservice.db"),
		TreeStateTrees: 1,

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "oraclequest"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelExportIntervalMillis: 30000,

		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if programID := os.Getenv("PROGRAM_ID"); programID != "" {
		id, err := entities.ParseAccountID(programID)
		if err != nil {
			return nil, fmt.Errorf("invalid PROGRAM_ID: %w", err)
		}
		config.ProgramID = id
	}
	if key := os.Getenv("TREE_PROOF_KEY"); key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("invalid TREE_PROOF_KEY: %w", err)
		}
		config.TreeProofKey = raw
	}

	// Override defaults if environment variables are set
	if v := os.Getenv("RENT_LAMPORTS_PER_BYTE"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.RentLamportsPerByte = parsed
		}
	}
	if v := os.Getenv("RENT_OVERHEAD_BYTES"); v != "" {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.RentOverheadBytes = parsed
		}
	}
	if v := os.Getenv("TREE_STATE_TREES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.TreeStateTrees = parsed
		}
	}
	if v := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Parse authority Discord IDs
	if authorityIDs := os.Getenv("AUTHORITY_DISCORD_IDS"); authorityIDs != "" {
		for _, idStr := range strings.Split(authorityIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr != "" {
				if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
					config.AuthorityDiscordIDs = append(config.AuthorityDiscordIDs, id)
				}
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	return config, nil
}

// Validate checks the settings the bot needs to start
func (c *Config) Validate() error {
	if c.Environment == "test" {
		return nil
	}
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	// If DatabaseName is provided, ensure it's not empty
	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:              "test",
		ProgramID:                DefaultProgramID,
		AuthorityDiscordIDs:      []int64{999999, 999991}, // Default test authority IDs
		RentLamportsPerByte:      6960,
		RentOverheadBytes:        128,
		TreeDBPath:               ":memory:",
		TreeProofKey:             []byte("test-proof-key"),
		TreeStateTrees:           1,
		OTelServiceName:          "oraclequest-test",
		OTelExporterType:         "none",
		OTelExportIntervalMillis: 1000,
		LogLevel:                 "debug",
	}
}
