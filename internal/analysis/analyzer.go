package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

// ResultCache stores finished analyses. Implementations must treat a miss
// as (zero, false, nil).
type ResultCache interface {
	Get(ctx context.Context, fen string, depth, multipv int) (uci.AnalysisResult, bool, error)
	Set(ctx context.Context, fen string, depth, multipv int, res uci.AnalysisResult) error
}

// Analyzer answers one-shot analysis requests from the engine pool,
// consulting the cache first when one is configured.
type Analyzer struct {
	pool  EnginePool
	cache ResultCache
	log   *zap.Logger
}

func NewAnalyzer(pool EnginePool, cache ResultCache, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{pool: pool, cache: cache, log: logger}
}

func (a *Analyzer) Analyse(ctx context.Context, pos xiangqi.Position, depth, multipv int) (uci.AnalysisResult, error) {
	if multipv <= 0 {
		multipv = 1
	}
	fen := pos.FEN()
	if a.cache != nil {
		res, ok, err := a.cache.Get(ctx, fen, depth, multipv)
		if err != nil {
			a.log.Warn("analysis_cache_get_failed", zap.String("fen", fen), zap.Error(err))
		} else if ok {
			a.log.Debug("analysis_cache_hit", zap.String("fen", fen), zap.Int("depth", depth))
			return res, nil
		}
	}

	sess, err := a.pool.Acquire(ctx)
	if err != nil {
		return uci.AnalysisResult{}, err
	}
	res, err := sess.Analyse(ctx, pos, depth, multipv)
	a.pool.Release(sess, err)
	if err != nil {
		return uci.AnalysisResult{}, err
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, fen, depth, multipv, res); err != nil {
			a.log.Warn("analysis_cache_set_failed", zap.String("fen", fen), zap.Error(err))
		}
	}
	return res, nil
}
