package server

import (
	"context"
	"errors"
	"maps"

	"github.com/park285/xiangqi-tutor/internal/analysis"
	"github.com/park285/xiangqi-tutor/internal/engine/uci"
	"github.com/park285/xiangqi-tutor/internal/resolver"
	"github.com/park285/xiangqi-tutor/internal/xiangqi"
	"github.com/park285/xiangqi-tutor/pkg/xqdto"
	"github.com/valyala/fasthttp"
)

// apiError is a failure already mapped onto a status and a message code.
type apiError struct {
	status    int
	code      string
	retryable bool
	fields    map[string]any
	cause     error
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return e.code + ": " + e.cause.Error()
	}
	return e.code
}

func (e *apiError) Unwrap() error { return e.cause }

func badRequest(reason string) *apiError {
	return &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeBadRequest, fields: map[string]any{"Reason": reason}}
}

// classify maps domain and engine errors onto API errors.
func classify(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}

	var mp *xiangqi.MalformedPositionError
	var im *xiangqi.IllegalMoveError
	var le *uci.EngineLaunchError
	switch {
	case errors.As(err, &mp):
		return &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeMalformedPosition, fields: map[string]any{"Reason": mp.Reason}, cause: err}
	case errors.As(err, &im):
		return &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeIllegalMove, fields: map[string]any{"Move": im.Move.String()}, cause: err}
	case errors.Is(err, xiangqi.ErrBadMoveToken):
		return &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeBadMoveToken, cause: err}
	case errors.Is(err, resolver.ErrUnresolved):
		return &apiError{status: fasthttp.StatusBadRequest, code: xqdto.CodeUnresolved, cause: err}
	case errors.As(err, &le),
		errors.Is(err, uci.ErrPoolClosed),
		errors.Is(err, analysis.ErrDispatcherClosed),
		errors.Is(err, context.DeadlineExceeded):
		return &apiError{status: fasthttp.StatusServiceUnavailable, code: xqdto.CodeEngineUnavailable, retryable: true, cause: err}
	default:
		return &apiError{status: fasthttp.StatusBadGateway, code: xqdto.CodeEngineFailed, retryable: true, cause: err}
	}
}

// describe renders the user-facing body for e.
func (s *Server) describe(e *apiError) xqdto.ErrorResponse {
	data := map[string]any{"Reason": "", "Move": "", "Text": ""}
	maps.Copy(data, e.fields)
	fallback := e.code
	if e.cause != nil {
		fallback = e.cause.Error()
	}
	return xqdto.ErrorResponse{
		Code:      e.code,
		Message:   s.msgs.Text("error."+e.code, data, fallback),
		Retryable: e.retryable,
	}
}
