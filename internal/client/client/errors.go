package client

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okatkov/mxkeeper/internal/common"
)

var (
	// ErrUnavailable marks transport-level failures: no response, timeout,
	// connection refused. Recoverable by caller retry; never retried here.
	ErrUnavailable = errors.New("homeserver unavailable")

	// ErrRegistrationFlowFailed marks a registration that still demanded
	// interactive stages after the dummy-stage retry.
	ErrRegistrationFlowFailed = errors.New("registration flow not satisfied")
)

// decodeServerError turns a non-2xx homeserver response body into a
// *common.ServerError, falling back to M_UNKNOWN when the body is not a
// well-formed Matrix error.
func decodeServerError(status int, raw []byte) error {
	var me matrixError
	if err := json.Unmarshal(raw, &me); err != nil || me.ErrCode == "" {
		return &common.ServerError{
			Code:       "M_UNKNOWN",
			Message:    http.StatusText(status),
			HTTPStatus: status,
		}
	}
	return &common.ServerError{
		Code:       me.ErrCode,
		Message:    me.Error,
		HTTPStatus: status,
	}
}
