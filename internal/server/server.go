package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/park285/xiangqi-tutor/internal/analysis"
	"github.com/park285/xiangqi-tutor/internal/msgcat"
	"github.com/park285/xiangqi-tutor/internal/resolver"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DefaultMaxMultiPV bounds the number of principal variations per request
// unless Options.MaxMultiPV says otherwise.
const DefaultMaxMultiPV = 5

type Options struct {
	DefaultDepth   int
	MaxDepth       int
	MaxMultiPV     int
	MaxReviewMoves int
	RequestTimeout time.Duration
	ReviewTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.DefaultDepth <= 0 {
		o.DefaultDepth = 20
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 40
	}
	if o.MaxMultiPV <= 0 {
		o.MaxMultiPV = DefaultMaxMultiPV
	}
	if o.MaxReviewMoves <= 0 {
		o.MaxReviewMoves = 300
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.ReviewTimeout <= 0 {
		o.ReviewTimeout = 5 * time.Minute
	}
	return o
}

// Deps wires the server. Pool may be nil, in which case every engine
// endpoint answers engine_unavailable. Cache and Remote are optional.
type Deps struct {
	Pool     analysis.EnginePool
	Cache    analysis.ResultCache
	Remote   resolver.Interpreter
	Messages *msgcat.Catalog
	Logger   *zap.Logger
	Options  Options
}

type Server struct {
	opt      Options
	pool     analysis.EnginePool
	analyzer *analysis.Analyzer
	reviewer *analysis.Reviewer
	resolver *resolver.Resolver
	msgs     *msgcat.Catalog
	log      *zap.Logger
	base     context.Context
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		opt:      d.Options.withDefaults(),
		pool:     d.Pool,
		resolver: resolver.New(d.Remote, logger),
		msgs:     d.Messages,
		log:      logger,
		base:     context.Background(),
	}
	if d.Pool != nil {
		s.analyzer = analysis.NewAnalyzer(d.Pool, d.Cache, logger)
		s.reviewer = analysis.NewReviewer(s.analyzer)
	}
	return s
}

// clampDepth maps a requested depth onto [1, MaxDepth]; zero or less
// selects the default.
func (s *Server) clampDepth(depth int) int {
	if depth <= 0 {
		return min(s.opt.DefaultDepth, s.opt.MaxDepth)
	}
	return min(depth, s.opt.MaxDepth)
}

// Handler routes the REST API.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		path := string(ctx.Path())
		switch path {
		case "/api/health":
			s.route(ctx, fasthttp.MethodGet, s.handleHealth)
		case "/api/game/starting-fen":
			s.route(ctx, fasthttp.MethodGet, s.handleStartingFEN)
		case "/api/game/legal-moves":
			s.route(ctx, fasthttp.MethodPost, s.handleLegalMoves)
		case "/api/game/move":
			s.route(ctx, fasthttp.MethodPost, s.handleMove)
		case "/api/game/parse-move":
			s.route(ctx, fasthttp.MethodPost, s.handleParseMove)
		case "/api/analysis":
			s.route(ctx, fasthttp.MethodPost, s.handleAnalysis)
		case "/api/review":
			s.route(ctx, fasthttp.MethodPost, s.handleReview)
		default:
			s.fail(ctx, &apiError{status: fasthttp.StatusNotFound, code: xqdto.CodeNotFound})
		}
		s.log.Debug("http_request",
			zap.ByteString("method", ctx.Method()),
			zap.String("path", path),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx, method string, h func(*fasthttp.RequestCtx) (any, error)) {
	if string(ctx.Method()) != method {
		ctx.Response.Header.Set(fasthttp.HeaderAllow, method)
		s.fail(ctx, &apiError{status: fasthttp.StatusMethodNotAllowed, code: xqdto.CodeMethodNotAllowed})
		return
	}
	out, err := h(ctx)
	if err != nil {
		s.fail(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) fail(ctx *fasthttp.RequestCtx, err error) {
	ae := classify(err)
	if ae.status >= fasthttp.StatusInternalServerError {
		s.log.Warn("http_request_failed", zap.ByteString("path", ctx.Path()), zap.String("code", ae.code), zap.Error(err))
	}
	s.writeJSON(ctx, ae.status, s.describe(ae))
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("http_encode_failed", zap.Error(err))
		ctx.Error("internal error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetBody(body)
}

func decode(ctx *fasthttp.RequestCtx, v any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return badRequest("empty body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// position parses fen, with an empty string meaning the starting position.
func position(fen string) (xiangqi.Position, error) {
	if strings.TrimSpace(fen) == "" {
		return xiangqi.StartPosition(), nil
	}
	return xiangqi.ParseFEN(fen)
}

func (s *Server) engineReady() error {
	if s.analyzer == nil {
		return &apiError{status: fasthttp.StatusServiceUnavailable, code: xqdto.CodeEngineUnavailable, retryable: true, cause: errors.New("no engine configured")}
	}
	return nil
}

func (s *Server) handleHealth(*fasthttp.RequestCtx) (any, error) {
	return xqdto.HealthResponse{
		Status:   "ok",
		Engine:   s.pool != nil,
		Resolver: s.resolver.Configured(),
	}, nil
}

func (s *Server) handleStartingFEN(*fasthttp.RequestCtx) (any, error) {
	return xqdto.FENResponse{FEN: xiangqi.StartPosition().FEN()}, nil
}

func (s *Server) handleLegalMoves(ctx *fasthttp.RequestCtx) (any, error) {
	var req xqdto.LegalMovesRequest
	if err := decode(ctx, &req); err != nil {
		return nil, err
	}
	pos, err := position(req.FEN)
	if err != nil {
		return nil, err
	}
	out := xiangqi.Evaluate(pos)
	return xqdto.LegalMovesResponse{
		FEN:      pos.FEN(),
		Moves:    xiangqi.MoveStrings(xiangqi.LegalMoves(pos)),
		InCheck:  xiangqi.InCheck(pos),
		Terminal: out.Terminal(),
		Result:   out.Label(),
	}, nil
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) (any, error) {
	var req xqdto.MoveRequest
	if err := decode(ctx, &req); err != nil {
		return nil, err
	}
	pos, err := position(req.FEN)
	if err != nil {
		return nil, err
	}
	m, err := xiangqi.ParseMove(strings.TrimSpace(req.Move))
	if err != nil {
		return nil, &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeBadMoveToken, fields: map[string]any{"Move": req.Move}, cause: err}
	}
	if !xiangqi.IsLegal(pos, m) {
		return nil, &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeIllegalMove, fields: map[string]any{"Move": m.String()}}
	}
	next := pos.Apply(m)
	out := xiangqi.Evaluate(next)
	return xqdto.MoveResponse{
		FEN:      next.FEN(),
		Move:     m.String(),
		Notation: xiangqi.Notation(m, pos),
		InCheck:  xiangqi.InCheck(next),
		Terminal: out.Terminal(),
		Result:   out.Label(),
	}, nil
}

func (s *Server) handleParseMove(ctx *fasthttp.RequestCtx) (any, error) {
	var req xqdto.ParseMoveRequest
	if err := decode(ctx, &req); err != nil {
		return nil, err
	}
	pos, err := position(req.FEN)
	if err != nil {
		return nil, err
	}
	rctx, cancel := context.WithTimeout(s.base, s.opt.RequestTimeout)
	defer cancel()
	res, err := s.resolver.Resolve(rctx, pos, req.Text, req.LegalMoves)
	if err != nil {
		if errors.Is(err, resolver.ErrUnresolved) {
			return nil, &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeUnresolved, fields: map[string]any{"Text": strings.TrimSpace(req.Text)}, cause: err}
		}
		return nil, err
	}
	out := xqdto.ParseMoveResponse{Move: res.Move, Method: string(res.Method)}
	if m, err := xiangqi.ParseMove(res.Move); err == nil {
		out.Notation = xiangqi.Notation(m, pos)
	}
	return out, nil
}

func (s *Server) handleAnalysis(ctx *fasthttp.RequestCtx) (any, error) {
	if err := s.engineReady(); err != nil {
		return nil, err
	}
	var req xqdto.AnalysisRequest
	if err := decode(ctx, &req); err != nil {
		return nil, err
	}
	pos, err := position(req.FEN)
	if err != nil {
		return nil, err
	}
	multipv := min(max(req.MultiPV, 1), s.opt.MaxMultiPV)

	rctx, cancel := context.WithTimeout(s.base, s.opt.RequestTimeout)
	defer cancel()
	res, err := s.analyzer.Analyse(rctx, pos, s.clampDepth(req.Depth), multipv)
	if err != nil {
		return nil, err
	}
	return AnalysisResponse(pos, res), nil
}

func (s *Server) handleReview(ctx *fasthttp.RequestCtx) (any, error) {
	if err := s.engineReady(); err != nil {
		return nil, err
	}
	var req xqdto.ReviewRequest
	if err := decode(ctx, &req); err != nil {
		return nil, err
	}
	if len(req.Moves) > s.opt.MaxReviewMoves {
		return nil, badRequest("too many moves")
	}
	pos, err := position(req.FEN)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(s.base, s.opt.ReviewTimeout)
	defer cancel()
	rev, err := s.reviewer.Review(rctx, pos, req.Moves, s.clampDepth(req.Depth))
	if err != nil {
		return nil, err
	}
	return ReviewResponse(rev), nil
}

// ListenAndServe serves the REST API on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.base = ctx
	srv := &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "xqtutor",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       s.opt.ReviewTimeout + 10*time.Second,
		IdleTimeout:        time.Minute,
		MaxRequestBodySize: 1 << 20,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()
	s.log.Info("http_listen", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.ShutdownWithContext(shutdownCtx)
	}
}
