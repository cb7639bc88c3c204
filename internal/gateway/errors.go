package gateway

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Callers branch on these with errors.Is/errors.As:
// - ErrAuth: bad credentials, fatal until config is fixed, never retried.
// - ErrTimeout / ErrUnavailable: transient, retried by the stale-request
//   poller, never by the synchronous initiation call.
// - UserError: terminal user-side outcome inside a successful HTTP exchange
//   (cancelled, insufficient funds, wrong PIN); surfaced verbatim.
var (
	ErrAuth          = errors.New("gateway: authentication failed")
	ErrTimeout       = errors.New("gateway: request timed out")
	ErrUnavailable   = errors.New("gateway: service unavailable")
	ErrInvalidAmount = errors.New("gateway: amount must be a whole number of major units")
)

// Provider result codes carried inside successful HTTP responses.
const (
	ResultCodeSuccess           = 0
	ResultCodeInsufficientFunds = 1
	ResultCodeUserCancelled     = 1032
	ResultCodeUnreachable       = 1037
	ResultCodeWrongPIN          = 2001
)

type UserError struct {
	Code        int
	Description string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("gateway: user-side failure %d: %s", e.Code, e.Description)
}

// IsRetryable reports whether the poller may retry after this error.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}

// IsUserFailure reports whether a result code is a terminal user-side
// outcome rather than a provider/network fault.
func IsUserFailure(code int) bool {
	switch code {
	case ResultCodeInsufficientFunds, ResultCodeUserCancelled, ResultCodeWrongPIN:
		return true
	default:
		return false
	}
}
