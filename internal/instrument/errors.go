package instrument

import "codeberg.org/mutker/smuctl/internal/errors"

const (
	// Identification errors
	ErrIdentifyFailed = errors.ErrorCode("instrument_identify_failed")
	ErrEmptyIdentity  = errors.ErrorCode("instrument_empty_identity")

	// Configuration errors
	ErrConfigureFailed = errors.ErrorCode("instrument_configure_failed")

	// Output control errors
	ErrOutputFailed = errors.ErrorCode("instrument_output_failed")

	// Measurement errors
	ErrReadFailed  = errors.ErrorCode("instrument_read_failed")
	ErrParseFailed = errors.ErrorCode("instrument_parse_failed")
)

var errFactory = errors.New()
