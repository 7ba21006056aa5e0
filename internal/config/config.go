// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "TOKENWARE"

// Load loads the configuration from all sources and returns the merged result
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	Settings.PopulateViperDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Load from config file if specified
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// It's okay if the config file doesn't exist, but other errors should be reported
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Create the config object
	config := &Config{}
	var err error

	// Populate server configuration
	config.Server.Address = v.GetString("SERVER_ADDR")
	if config.Server.ShutdownTimeout, err = parseDuration(v, "SHUTDOWN_TIMEOUT"); err != nil {
		return nil, err
	}

	// Populate metrics configuration
	config.Metrics.Address = v.GetString("METRICS_ADDR")

	// Populate TLS configuration
	config.TLS.Enabled = v.GetBool("TLS_ENABLED")
	config.TLS.CertPath = v.GetString("TLS_CERT_PATH")
	config.TLS.KeyPath = v.GetString("TLS_KEY_PATH")

	// Populate token configuration
	config.Token.Secret = v.GetString("TOKEN_SECRET")
	config.Token.PrivateKeyPath = v.GetString("TOKEN_PRIVATE_KEY_PATH")
	config.Token.PublicKeyPath = v.GetString("TOKEN_PUBLIC_KEY_PATH")
	config.Token.JWKSURL = v.GetString("TOKEN_JWKS_URL")
	config.Token.OIDCIssuer = v.GetString("TOKEN_OIDC_ISSUER")
	config.Token.Algorithm = v.GetString("TOKEN_ALGORITHM")
	config.Token.Audience = v.GetString("TOKEN_AUDIENCE")
	config.Token.Issuer = v.GetString("TOKEN_ISSUER")
	if config.Token.ExpiresIn, err = parseDuration(v, "TOKEN_EXPIRES_IN"); err != nil {
		return nil, err
	}
	if config.Token.Leeway, err = parseDuration(v, "TOKEN_LEEWAY"); err != nil {
		return nil, err
	}
	if raw := v.GetString("TOKEN_IGNORE_EXPIRATION"); raw != "" {
		ignore, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_IGNORE_EXPIRATION: %w", err)
		}
		config.Token.IgnoreExpiration = &ignore
	}

	// Populate middleware configuration
	config.Middleware.AllowAnonymous = v.GetBool("ALLOW_ANONYMOUS")
	config.Middleware.AutoSendToken = v.GetBool("AUTO_SEND_TOKEN")
	config.Middleware.HandleErrors = v.GetBool("HANDLE_ERRORS")

	// Populate revocation configuration
	config.Revocation.Backend = strings.ToLower(v.GetString("REVOCATION_BACKEND"))
	if config.Revocation.GCInterval, err = parseDuration(v, "REVOCATION_GC_INTERVAL"); err != nil {
		return nil, err
	}
	config.Revocation.Redis.Addr = v.GetString("REVOCATION_REDIS_ADDR")
	config.Revocation.Redis.Password = v.GetString("REVOCATION_REDIS_PASSWORD")
	config.Revocation.Redis.DB = v.GetInt("REVOCATION_REDIS_DB")
	config.Revocation.SQLite.Path = v.GetString("REVOCATION_SQLITE_PATH")

	// Populate demo users
	if config.Demo.Users, err = parseUsers(v.GetStringSlice("DEMO_USERS")); err != nil {
		return nil, err
	}

	// Populate observability configuration
	config.Observability.LogLevel = v.GetString("LOG_LEVEL")
	config.Observability.LogFormat = v.GetString("LOG_FORMAT")

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// parseDuration reads a duration setting; an empty value is zero
func parseDuration(v *viper.Viper, name string) (time.Duration, error) {
	raw := v.GetString(name)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

// parseUsers splits name:hash entries
func parseUsers(entries []string) (map[string]string, error) {
	users := make(map[string]string, len(entries))
	for _, entry := range entries {
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("invalid demo user %q, expected name:bcrypt-hash", name)
		}
		users[name] = hash
	}
	return users, nil
}

// validateConfig performs validation on the loaded configuration
func validateConfig(cfg *Config) error {
	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return fmt.Errorf("TLS certificate path is required when TLS is enabled")
		}
		if cfg.TLS.KeyPath == "" {
			return fmt.Errorf("TLS key path is required when TLS is enabled")
		}

		// Check if certificate and key files exist
		if _, err := os.Stat(cfg.TLS.CertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", cfg.TLS.CertPath)
		}
		if _, err := os.Stat(cfg.TLS.KeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLS.KeyPath)
		}
	}

	if err := validateTokenConfig(cfg); err != nil {
		return err
	}

	return validateRevocationConfig(cfg)
}

// validateTokenConfig checks that some key material is configured
func validateTokenConfig(cfg *Config) error {
	t := cfg.Token
	if t.Secret == "" && t.PrivateKeyPath == "" && t.PublicKeyPath == "" && t.JWKSURL == "" && t.OIDCIssuer == "" {
		return fmt.Errorf("one of TOKEN_SECRET, TOKEN_PRIVATE_KEY_PATH, TOKEN_PUBLIC_KEY_PATH, TOKEN_JWKS_URL or TOKEN_OIDC_ISSUER is required")
	}
	for _, path := range []string{t.PrivateKeyPath, t.PublicKeyPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("key file not found: %s", path)
		}
	}
	if t.ExpiresIn < 0 {
		return fmt.Errorf("TOKEN_EXPIRES_IN must not be negative")
	}
	if t.ExpiresIn%time.Second != 0 {
		return fmt.Errorf("TOKEN_EXPIRES_IN must be a whole number of seconds, got %s", t.ExpiresIn)
	}
	return nil
}

// validateRevocationConfig validates the revocation backend selection
func validateRevocationConfig(cfg *Config) error {
	switch cfg.Revocation.Backend {
	case BackendMemory:
	case BackendRedis:
		if cfg.Revocation.Redis.Addr == "" {
			return fmt.Errorf("redis address is required when using the redis revocation backend")
		}
	case BackendSQLite:
		if cfg.Revocation.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required when using the sqlite revocation backend")
		}
	default:
		return fmt.Errorf("unknown revocation backend %q", cfg.Revocation.Backend)
	}
	return nil
}
