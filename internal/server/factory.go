// internal/server/factory.go
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tokenware/internal/config"
	"tokenware/internal/observability"
	"tokenware/internal/observability/logging"
	"tokenware/internal/revocation"
	"tokenware/internal/revocation/memory"
	"tokenware/internal/revocation/redis"
	"tokenware/internal/revocation/sqlite"
	"tokenware/internal/router"
	tlsconfig "tokenware/internal/tls"
	"tokenware/internal/tokenware"
)

// NewFromConfig creates a new server from configuration.
// ctx bounds background work such as JWKS refresh and revocation purging.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Initialize observability
	obs, err := observability.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Logger

	// Initialize TLS configuration
	var tlsCfg *tls.Config
	if cfg.TLS.Enabled {
		tlsSetup := &tlsconfig.Config{
			Logger:   logger.WithModule("tls"),
			CertPath: cfg.TLS.CertPath,
			KeyPath:  cfg.TLS.KeyPath,
		}
		if tlsCfg, err = tlsSetup.GetTLSConfig(); err != nil {
			return nil, fmt.Errorf("failed to create TLS configuration: %w", err)
		}
	}

	// Resolve key material
	keys, err := buildKeys(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load token keys: %w", err)
	}

	// Initialize revocation store
	store, err := newRevocationStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize revocation store: %w", err)
	}

	// Initialize tokenware
	tw, err := tokenware.New(tokenOptions(cfg, keys), store, logger, obs.Metrics)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize tokenware: %w", err)
	}

	// Initialize router
	routes := router.New(router.Config{
		Users:   cfg.Demo.Users,
		Backend: cfg.Revocation.Backend,
	}, tw, store, logger, obs.Metrics)

	// Create server configuration
	serverConfig := Config{
		Address:         cfg.Server.Address,
		MetricsAddress:  cfg.Metrics.Address,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	serverConfig.TLS.Enabled = cfg.TLS.Enabled
	serverConfig.TLS.Config = tlsCfg

	// Create complete middleware chain: observability -> router -> tokenware stages
	handler := obs.Middleware(routes)

	srv := New(serverConfig, handler, obs.MetricsHandler(), logger)
	srv.OnStop(store.Close)
	return srv, nil
}

// tokenOptions maps configuration onto tokenware options
func tokenOptions(cfg *config.Config, keys tokenware.Keys) tokenware.Options {
	return tokenware.Options{
		Keys:             keys,
		AllowAnonymous:   tokenware.Bool(cfg.Middleware.AllowAnonymous),
		AutoSendToken:    tokenware.Bool(cfg.Middleware.AutoSendToken),
		HandleErrors:     tokenware.Bool(cfg.Middleware.HandleErrors),
		Algorithm:        cfg.Token.Algorithm,
		Audience:         cfg.Token.Audience,
		Issuer:           cfg.Token.Issuer,
		ExpiresIn:        cfg.Token.ExpiresIn,
		IgnoreExpiration: cfg.Token.IgnoreExpiration,
		Leeway:           cfg.Token.Leeway,
	}
}

// buildKeys combines the configured secret, PEM keys and remote key set
func buildKeys(ctx context.Context, cfg *config.Config, logger *logging.Logger) (tokenware.Keys, error) {
	keys, err := tokenware.LoadPEMKeys(cfg.Token.PrivateKeyPath, cfg.Token.PublicKeyPath)
	if err != nil {
		return keys, err
	}
	if cfg.Token.Secret != "" {
		keys.Secret = []byte(cfg.Token.Secret)
	}

	jwksURL := cfg.Token.JWKSURL
	if jwksURL == "" && cfg.Token.OIDCIssuer != "" {
		logger.Info("Discovering JWKS", "issuer", cfg.Token.OIDCIssuer)
		if jwksURL, err = tokenware.DiscoverJWKS(ctx, cfg.Token.OIDCIssuer); err != nil {
			return keys, err
		}
	}
	if jwksURL != "" {
		logger.Info("Using remote key set", "jwks_url", logging.RedactStringURL(jwksURL))
		if keys.RemoteKeys, err = tokenware.NewRemoteKeys(ctx, jwksURL); err != nil {
			return keys, err
		}
	}

	return keys, nil
}

// newRevocationStore opens the configured backend
func newRevocationStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (revocation.Store, error) {
	logger = logger.WithModule("revocation")
	rc := cfg.Revocation

	switch rc.Backend {
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     rc.Redis.Addr,
			Password: rc.Redis.Password,
			DB:       rc.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis not reachable at %s: %w", rc.Redis.Addr, err)
		}
		store, err := redis.New(redis.Config{Client: client})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		logger.Info("Using redis revocation store", "addr", rc.Redis.Addr, "db", rc.Redis.DB)
		return store, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(rc.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("Using sqlite revocation store", "path", rc.SQLite.Path)
		go purgeLoop(ctx, rc.GCInterval, logger, store.Purge)
		return store, nil

	default:
		store := memory.New()
		logger.Info("Using in-memory revocation store", "gc_interval", rc.GCInterval)
		go purgeLoop(ctx, rc.GCInterval, logger, store.Purge)
		return store, nil
	}
}

// purgeLoop drops expired revocations every interval until ctx is done
func purgeLoop(ctx context.Context, every time.Duration, logger *logging.Logger, purge func(context.Context) (int64, error)) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purge(ctx)
			if err != nil {
				logger.Error("Failed to purge expired revocations", logging.Err(err))
				continue
			}
			if n > 0 {
				logger.Debug("Purged expired revocations", "count", n)
			}
		}
	}
}
