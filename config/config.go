// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"learning-rewards-service/chain"

	"github.com/joho/godotenv"
)

// Config is read once at startup from the environment (optionally seeded by .env).
type Config struct {
	Port           string
	AllowedOrigins string
	ServiceToken   string

	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string

	LogLevel     string
	LogFile      string
	LogErrorFile string

	FlashcardWindow    time.Duration
	ConversionClaimTTL time.Duration
	ReconcileInterval  time.Duration

	Chain ChainConfig
	R2    R2Config
}

type ChainConfig struct {
	Disabled        bool
	RPCURL          string
	ChainID         int64
	TokenAddress    string
	TokenDecimals   int32
	AdminPrivateKey string
	ConfirmTimeout  time.Duration
	ExplorerBaseURL string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether the audit archive has enough settings to start.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "5200"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		ServiceToken:   os.Getenv("SERVICE_TOKEN"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		LogErrorFile:   os.Getenv("LOG_ERROR_FILE"),
		Chain: ChainConfig{
			RPCURL:          os.Getenv("CHAIN_RPC_URL"),
			TokenAddress:    os.Getenv("TOKEN_ADDRESS"),
			AdminPrivateKey: os.Getenv("ADMIN_WALLET_PRIVATE_KEY"),
			ExplorerBaseURL: getEnv("EXPLORER_TX_URL", "https://sepolia.basescan.org/tx/"),
		},
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
		},
	}

	var err error
	if cfg.FlashcardWindow, err = getDuration("FLASHCARD_DUPLICATE_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ConversionClaimTTL, err = getDuration("CONVERSION_CLAIM_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Chain.ConfirmTimeout, err = getDuration("CHAIN_CONFIRM_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Chain.Disabled, err = getBool("CHAIN_DISABLED", false); err != nil {
		return nil, err
	}
	if cfg.Chain.ChainID, err = getInt("CHAIN_ID", 84532); err != nil {
		return nil, err
	}
	decimals, err := getInt("TOKEN_DECIMALS", 18)
	if err != nil {
		return nil, err
	}
	cfg.Chain.TokenDecimals = int32(decimals)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if !c.Chain.Disabled {
		if c.Chain.RPCURL == "" {
			missing = append(missing, "CHAIN_RPC_URL")
		}
		if c.Chain.TokenAddress == "" {
			missing = append(missing, "TOKEN_ADDRESS")
		}
		if c.Chain.AdminPrivateKey == "" {
			missing = append(missing, "ADMIN_WALLET_PRIVATE_KEY")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.FlashcardWindow <= 0 {
		return fmt.Errorf("FLASHCARD_DUPLICATE_WINDOW must be positive")
	}
	if c.Chain.ConfirmTimeout <= 0 || c.ReconcileInterval <= 0 {
		return fmt.Errorf("CHAIN_CONFIRM_TIMEOUT and RECONCILE_INTERVAL must be positive")
	}
	// A claim that expires while its mint is still blocking lets a second
	// conversion spend the same EXP.
	if window := chain.MintWindow(c.Chain.ConfirmTimeout); c.ConversionClaimTTL <= window {
		return fmt.Errorf("CONVERSION_CLAIM_TTL (%s) must exceed CHAIN_CONFIRM_TIMEOUT plus submission and recheck time (%s)",
			c.ConversionClaimTTL, window)
	}
	// Awaiting claims are refreshed once per reconciliation pass.
	if c.ConversionClaimTTL <= c.ReconcileInterval {
		return fmt.Errorf("CONVERSION_CLAIM_TTL (%s) must exceed RECONCILE_INTERVAL (%s)",
			c.ConversionClaimTTL, c.ReconcileInterval)
	}
	return nil
}

// OriginList splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c *Config) OriginList() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
