package xqbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/xiangqi-tutor/internal/analysis"
	"github.com/park285/xiangqi-tutor/internal/cache"
	"github.com/park285/xiangqi-tutor/internal/config"
	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/msgcat"
	"github.com/park285/xiangqi-tutor/internal/resolver"
	"github.com/park285/xiangqi-tutor/internal/server"
	"go.uber.org/zap"
)

// Deps holds everything built from an AppConfig. Close releases it.
type Deps struct {
	Pool     *uci.Pool
	Cache    *cache.AnalysisCache
	Remote   *resolver.Client
	Messages *msgcat.Catalog
	Analyzer *analysis.Analyzer
	Server   *server.Server
}

// New builds the engine pool, the optional cache and resolver client, and
// the server on top of them. An empty ENGINE_PATH is an error.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.RequireEngine(); err != nil {
		return nil, err
	}

	msgs, err := msgcat.New(cfg.MsgcatDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath: cfg.EnginePath,
		Options: uci.Options{
			Threads:     cfg.EngineThreads,
			HashMB:      cfg.EngineHashMB,
			ShowWDL:     cfg.EngineShowWDL,
			StopTimeout: cfg.EngineStopTimeout,
		},
		Capacity: cfg.EnginePoolSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init engine pool: %w", err)
	}
	deps := &Deps{Pool: pool, Messages: msgs}

	// Cache (Redis optional)
	var resultCache analysis.ResultCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		deps.Cache, err = cache.Open(pctx, cfg.RedisURL, cfg.AnalysisCacheTTL)
		cancel()
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("init cache: %w", err)
		}
		resultCache = deps.Cache
	} else {
		logger.Info("analysis_cache_disabled")
	}

	var remote resolver.Interpreter
	if strings.TrimSpace(cfg.ResolverURL) != "" {
		deps.Remote = resolver.NewClient(cfg.ResolverURL,
			resolver.WithAPIKey(cfg.ResolverAPIKey),
			resolver.WithModel(cfg.ResolverModel),
		)
		remote = deps.Remote
	}

	deps.Analyzer = analysis.NewAnalyzer(pool, resultCache, logger)
	deps.Server = server.New(server.Deps{
		Pool:     pool,
		Cache:    resultCache,
		Remote:   remote,
		Messages: msgs,
		Logger:   logger,
		Options: server.Options{
			DefaultDepth: cfg.AnalysisDefaultDepth,
			MaxDepth:     cfg.AnalysisMaxDepth,
		},
	})
	return deps, nil
}

func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Pool != nil {
		errs = append(errs, d.Pool.Close())
	}
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	return errors.Join(errs...)
}
