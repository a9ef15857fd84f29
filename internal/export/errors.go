package export

import "codeberg.org/mutker/smuctl/internal/errors"

const (
	ErrWriteFailed = errors.ErrorCode("export_write_failed")
	ErrReadFailed  = errors.ErrorCode("export_read_failed")
	ErrBadHeader   = errors.ErrorCode("export_bad_header")
	ErrBadRow      = errors.ErrorCode("export_bad_row")
)

var errFactory = errors.New()
