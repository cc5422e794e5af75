package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxbridge/customer-portal/internal/cache"
	"github.com/voxbridge/customer-portal/internal/config"
	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/repo"
	"github.com/voxbridge/customer-portal/internal/session"
	"github.com/voxbridge/customer-portal/internal/utils"
)

// app holds the wiring shared by every sub-command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   cache.Provider
	client  *repo.PortalClient
	store   *session.FileStore
	filter  *listing.DateFilter
	display *time.Location
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(globals.ConfigPath)
	if err != nil {
		return nil, utils.NewAppError("load config", "Invalid configuration.", err)
	}

	logger := utils.NewLogger(utils.LogOptions{
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.JSON,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	slog.SetDefault(logger)

	// Both locations were checked by config.Load.
	loc, _ := cfg.Listing.Location()
	display, _ := cfg.Listing.DisplayLocation()

	store := session.NewFileStore(cfg.Session.TokenFile)
	var fallback session.TokenSource = store
	if cfg.Session.Token != "" {
		fallback = session.Static(cfg.Session.Token)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		cache:   newCacheProvider(ctx, cfg.Cache, logger),
		store:   store,
		filter:  listing.NewDateFilter(loc, cfg.Listing.MaxRangeDays),
		display: display,
	}
	a.client = a.newClient(session.ContextSource{Fallback: fallback})
	return a, nil
}

func (a *app) newClient(tokens session.TokenSource) *repo.PortalClient {
	return repo.NewPortalClient(repo.Options{
		BaseURL:      a.cfg.API.BaseURL,
		Paths:        a.cfg.API.Paths,
		Timeout:      a.cfg.API.Timeout,
		UserAgent:    a.cfg.API.UserAgent,
		Tokens:       tokens,
		Cache:        a.cache,
		LanguagesTTL: a.cfg.Cache.LanguagesTTL,
		Logger:       a.logger,
	})
}

// newCacheProvider prefers Redis, then the in-process cache, then no cache.
func newCacheProvider(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if cfg.Enabled && cfg.Addr != "" {
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
			KeyPrefix:    "portal:",
		})
		if err == nil {
			return provider
		}
		logger.Warn("redis cache unavailable", slog.String("addr", cfg.Addr), slog.Any("error", err))
	}
	if cfg.Memory {
		return cache.NewMemoryProvider()
	}
	return cache.NoopProvider{}
}

// accountEmail is the email shown when the profile record carries none.
func (a *app) accountEmail() string {
	token := a.cfg.Session.Token
	if token == "" {
		st, err := a.store.Load()
		if err != nil {
			return ""
		}
		if st.Email != "" {
			return st.Email
		}
		token = st.Token
	}
	claims, err := session.Inspect(token)
	if err != nil {
		return ""
	}
	return claims.Email
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("close cache", slog.Any("error", err))
	}
}
