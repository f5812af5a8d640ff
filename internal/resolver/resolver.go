package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-tutor/internal/xiangqi"
)

// ErrUnresolved is the "could not interpret" outcome. It is a normal
// answer to the caller, not a fault.
var ErrUnresolved = errors.New("could not interpret move text")

type Method string

const (
	MethodToken    Method = "token"
	MethodStandard Method = "standard"
	MethodLLM      Method = "llm"
)

type Resolution struct {
	Move   string
	Method Method
}

// Interpreter turns free text into a move token; *Client implements it.
type Interpreter interface {
	Interpret(ctx context.Context, fen, text string, legal []string) (string, error)
}

// Resolver maps free text to one legal move: a literal token first, then
// traditional notation, then the remote interpreter when configured.
type Resolver struct {
	remote Interpreter
	log    *zap.Logger
}

func New(remote Interpreter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{remote: remote, log: logger}
}

// Resolve answers with a move from legal. When legal is empty the moves
// legal in pos are used. Every answer is also legal in pos.
func (r *Resolver) Resolve(ctx context.Context, pos xiangqi.Position, text string, legal []string) (Resolution, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Resolution{}, fmt.Errorf("%w: empty input", ErrUnresolved)
	}
	if len(legal) == 0 {
		legal = xiangqi.MoveStrings(xiangqi.LegalMoves(pos))
	}
	accept := func(tok string) bool {
		if !slices.Contains(legal, tok) {
			return false
		}
		m, err := xiangqi.ParseMove(tok)
		return err == nil && xiangqi.IsLegal(pos, m)
	}

	if tok := strings.ToLower(text); accept(tok) {
		return Resolution{Move: tok, Method: MethodToken}, nil
	}
	if m, err := xiangqi.ParseNotation(text, pos); err == nil && accept(m.String()) {
		return Resolution{Move: m.String(), Method: MethodStandard}, nil
	}

	if r.remote == nil {
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnresolved, text)
	}
	answer, err := r.remote.Interpret(ctx, pos.FEN(), text, legal)
	if err != nil {
		r.log.Warn("resolver_remote_failed", zap.String("text", text), zap.Error(err))
		return Resolution{}, fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	if !accept(answer) {
		r.log.Info("resolver_remote_rejected", zap.String("text", text), zap.String("answer", answer))
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnresolved, text)
	}
	return Resolution{Move: answer, Method: MethodLLM}, nil
}

// Configured reports whether a remote interpreter is wired.
func (r *Resolver) Configured() bool { return r.remote != nil }
