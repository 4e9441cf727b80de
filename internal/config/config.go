// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults match the Base Sepolia demo deployment: USDC (6 decimals) paid
// to the platform wallet.
const (
	defaultPayTo        = "0xad70845D9AE0B40CB68Cc289414Ea21b1Ce18BC8"
	defaultAssetAddress = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	defaultNetwork      = "base-sepolia"
)

// Config is everything cmd/server needs to wire the gate.
type Config struct {
	Port string

	// Settlement terms.
	PayTo             string
	Network           string
	AssetAddress      string
	AssetName         string
	AssetDecimals     int
	MaxTimeoutSeconds int

	// Verification.
	FacilitatorURL string
	RPCEndpoint    string
	InsecureDemo   bool

	// Storage: "memory", "sqlite" or "postgres".
	StorageBackend string
	SQLitePath     string
	PostgresDSN    string

	CatalogPath string
}

// Load reads the environment. Only postgres deployments have a required
// variable (the DSN); everything else has a demo-ready default.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("SERVER_PORT", "8080"),
		PayTo:             getEnv("GATE_PAY_TO", defaultPayTo),
		Network:           getEnv("GATE_NETWORK", defaultNetwork),
		AssetAddress:      getEnv("GATE_ASSET_ADDRESS", defaultAssetAddress),
		AssetName:         getEnv("GATE_ASSET_NAME", "USDC"),
		AssetDecimals:     getEnvInt("GATE_ASSET_DECIMALS", 6),
		MaxTimeoutSeconds: getEnvInt("GATE_MAX_TIMEOUT_SECONDS", 60),
		FacilitatorURL:    getEnv("FACILITATOR_URL", ""),
		RPCEndpoint:       getEnv("RPC_ENDPOINT", ""),
		InsecureDemo:      getEnvBool("GATE_INSECURE_DEMO", false),
		StorageBackend:    getEnv("STORAGE_BACKEND", "sqlite"),
		SQLitePath:        getEnv("SQLITE_PATH", "./inkgate.db"),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
	}

	switch cfg.StorageBackend {
	case "memory", "sqlite":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required with STORAGE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
