package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Host            string
	Port            string
	DBPath          string
	ServerListLimit int

	Probe     ProbeConfig
	Session   SessionConfig
	Sounds    SoundsConfig
	Cassandra CassandraConfig
}

// ProbeConfig holds settings for outbound liveness checks and proxying.
// Upstreams are peer-operated simulator endpoints on private networks, so
// TLS verification is off unless explicitly enabled.
type ProbeConfig struct {
	Timeout   time.Duration
	VerifyTLS bool
}

// SessionConfig holds settings for the web session store.
type SessionConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
	RedisPass string
	RedisDB   int
}

// SoundsConfig selects the sound-metadata backend.
type SoundsConfig struct {
	Backend string // "sqlite" or "cassandra"
}

// CassandraConfig holds Cassandra-specific configuration
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	host := getEnv("SLUTILS_HOST", "0.0.0.0")
	port := getEnv("SLUTILS_PORT", "8080")
	dbPath := getEnv("SLUTILS_DB_PATH", "./data/slutils.db")

	listLimitStr := getEnv("SLUTILS_SERVER_LIST_LIMIT", "100")
	listLimit, err := strconv.Atoi(listLimitStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SLUTILS_SERVER_LIST_LIMIT value: %w", err)
	}

	probeTimeoutStr := getEnv("SLUTILS_PROBE_TIMEOUT_SECONDS", "5")
	probeTimeout, err := strconv.Atoi(probeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SLUTILS_PROBE_TIMEOUT_SECONDS value: %w", err)
	}

	verifyTLSStr := getEnv("SLUTILS_PROBE_VERIFY_TLS", "false")
	verifyTLS, err := strconv.ParseBool(verifyTLSStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SLUTILS_PROBE_VERIFY_TLS value: %w", err)
	}

	sessionBackend := getEnv("SLUTILS_SESSION_BACKEND", "memory")
	if sessionBackend != "memory" && sessionBackend != "redis" {
		return nil, fmt.Errorf("invalid SLUTILS_SESSION_BACKEND value: %q", sessionBackend)
	}

	sessionTTLStr := getEnv("SLUTILS_SESSION_TTL_HOURS", "24")
	sessionTTL, err := strconv.Atoi(sessionTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SLUTILS_SESSION_TTL_HOURS value: %w", err)
	}

	redisDBStr := getEnv("REDIS_DB", "0")
	redisDB, err := strconv.Atoi(redisDBStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}

	soundsBackend := getEnv("SLUTILS_SOUND_BACKEND", "sqlite")
	if soundsBackend != "sqlite" && soundsBackend != "cassandra" {
		return nil, fmt.Errorf("invalid SLUTILS_SOUND_BACKEND value: %q", soundsBackend)
	}

	cassandraTimeoutStr := getEnv("CASSANDRA_TIMEOUT_SECONDS", "5")
	cassandraTimeout, err := strconv.Atoi(cassandraTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CASSANDRA_TIMEOUT_SECONDS value: %w", err)
	}

	return &Config{
		Host:            host,
		Port:            port,
		DBPath:          dbPath,
		ServerListLimit: listLimit,
		Probe: ProbeConfig{
			Timeout:   time.Duration(probeTimeout) * time.Second,
			VerifyTLS: verifyTLS,
		},
		Session: SessionConfig{
			Backend:   sessionBackend,
			TTL:       time.Duration(sessionTTL) * time.Hour,
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPass: getEnv("REDIS_PASSWORD", ""),
			RedisDB:   redisDB,
		},
		Sounds: SoundsConfig{
			Backend: soundsBackend,
		},
		Cassandra: CassandraConfig{
			Hosts:       parseHosts(getEnv("CASSANDRA_HOSTS", "localhost:9042")),
			Keyspace:    getEnv("CASSANDRA_KEYSPACE", "slutils"),
			Username:    getEnv("CASSANDRA_USERNAME", ""),
			Password:    getEnv("CASSANDRA_PASSWORD", ""),
			Consistency: getEnv("CASSANDRA_CONSISTENCY", "QUORUM"),
			Timeout:     time.Duration(cassandraTimeout) * time.Second,
		},
	}, nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseHosts parses a comma-separated list of hosts
func parseHosts(hostsStr string) []string {
	if hostsStr == "" {
		return []string{"localhost:9042"}
	}
	parts := strings.Split(hostsStr, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		host := strings.TrimSpace(part)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return []string{"localhost:9042"}
	}
	return hosts
}
