package xqdto

// Error codes carried by ErrorResponse and websocket error frames.
const (
	CodeBadRequest        = "bad_request"
	CodeMalformedPosition = "malformed_position"
	CodeIllegalMove       = "illegal_move"
	CodeBadMoveToken      = "bad_move_token"
	CodeUnresolved        = "unresolved"
	CodeEngineUnavailable = "engine_unavailable"
	CodeEngineFailed      = "engine_failed"
	CodeReviewFailed      = "review_failed"
	CodeNotFound          = "not_found"
	CodeMethodNotAllowed  = "method_not_allowed"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e ErrorResponse) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "xiangqi service error"
}
