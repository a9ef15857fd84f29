package visa

import (
	"net"

	"codeberg.org/mutker/smuctl/internal/errors"
)

const (
	// Resource errors
	ErrInvalidResource = errors.ErrorCode("visa_invalid_resource")
	ErrUnsupported     = errors.ErrorCode("visa_unsupported_interface")

	// Session errors
	ErrConnectFailed = errors.ErrorCode("visa_connect_failed")
	ErrSessionClosed = errors.ErrorCode("visa_session_closed")
	ErrWriteFailed   = errors.ErrorCode("visa_write_failed")
	ErrQueryFailed   = errors.ErrorCode("visa_query_failed")
	ErrCloseFailed   = errors.ErrorCode("visa_close_failed")
)

var errFactory = errors.New()

// wrapIO wraps a channel error, classifying deadline hits under the
// shared timeout code so callers can tell a slow instrument from a
// broken channel.
func wrapIO(code errors.ErrorCode, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errFactory.Wrap(errors.ErrTimeout, err)
	}

	return errFactory.Wrap(code, err)
}
