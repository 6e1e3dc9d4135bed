package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/roofing-lead-agent/internal/config"
	"github.com/wolfman30/roofing-lead-agent/internal/leads"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

// ErrUnknownStore is returned for a LEADS_STORE value outside the supported set.
var ErrUnknownStore = errors.New("bootstrap: unknown leads store")

// LeadStore is the repository chosen at boot together with what backs it.
type LeadStore struct {
	Repo    leads.Repository
	Backend string
	// Pool is set when Backend is postgres.
	Pool *pgxpool.Pool
}

// Close releases the Postgres pool, if any.
func (s *LeadStore) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// connectPostgres opens and verifies a pool; replaced in tests.
var connectPostgres = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildLeadStore picks the lead repository. An explicit LEADS_STORE must
// succeed; "auto" walks postgres, redis, file and finally memory, skipping
// backends that are unconfigured or unreachable.
func BuildLeadStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (*LeadStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.LeadsStore))
	if mode == "" {
		mode = appconfig.StoreAuto
	}

	switch mode {
	case appconfig.StorePostgres:
		return buildPostgres(ctx, cfg)
	case appconfig.StoreRedis:
		return buildRedis(redisClient)
	case appconfig.StoreFile:
		return buildFile(cfg)
	case appconfig.StoreMemory:
		return memoryStore(), nil
	case appconfig.StoreAuto:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.LeadsStore)
	}

	attempts := []struct {
		backend string
		enabled bool
		build   func() (*LeadStore, error)
	}{
		{appconfig.StorePostgres, strings.TrimSpace(cfg.DatabaseURL) != "", func() (*LeadStore, error) { return buildPostgres(ctx, cfg) }},
		{appconfig.StoreRedis, redisClient != nil, func() (*LeadStore, error) { return buildRedis(redisClient) }},
		{appconfig.StoreFile, strings.TrimSpace(cfg.DataDir) != "", func() (*LeadStore, error) { return buildFile(cfg) }},
	}
	for _, a := range attempts {
		if !a.enabled {
			continue
		}
		store, err := a.build()
		if err != nil {
			logger.Warn("lead store unavailable, falling back", "backend", a.backend, "error", err)
			continue
		}
		logger.Info("lead store selected", "backend", store.Backend)
		return store, nil
	}
	logger.Warn("lead store selected", "backend", appconfig.StoreMemory, "durable", false)
	return memoryStore(), nil
}

func buildPostgres(ctx context.Context, cfg *appconfig.Config) (*LeadStore, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres store")
	}
	pool, err := connectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &LeadStore{Repo: leads.NewPostgresRepository(pool), Backend: appconfig.StorePostgres, Pool: pool}, nil
}

func buildRedis(client *redis.Client) (*LeadStore, error) {
	if client == nil {
		return nil, fmt.Errorf("bootstrap: redis is not available for the redis store")
	}
	return &LeadStore{Repo: leads.NewRedisRepository(client), Backend: appconfig.StoreRedis}, nil
}

func buildFile(cfg *appconfig.Config) (*LeadStore, error) {
	repo, err := leads.NewFileRepository(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &LeadStore{Repo: repo, Backend: appconfig.StoreFile}, nil
}

func memoryStore() *LeadStore {
	return &LeadStore{Repo: leads.NewInMemoryRepository(), Backend: appconfig.StoreMemory}
}
