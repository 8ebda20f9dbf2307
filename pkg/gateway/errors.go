package gateway

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotConfigured is returned by Send when no conversation handle exists.
	ErrNotConfigured = errors.New("model gateway not configured, please provide an API key")
	ErrEmptyAPIKey   = errors.New("API key is empty")
	ErrNoFactory     = errors.New("model gateway has no chat factory")
)

// GatewayError wraps a transport or upstream failure of the external model
// service. It works with both errors.Cause and errors.Unwrap.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Cause() error {
	return e.Err
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
