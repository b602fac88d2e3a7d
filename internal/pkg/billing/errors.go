package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced user, plan or subscription does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest marks caller mistakes such as cancelling without an agreement.
	ErrBadRequest = errors.New("bad request")
)

// GatewayError wraps a failed call to the payment gateway.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err carries a *GatewayError.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
