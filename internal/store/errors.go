package store

import "codeberg.org/mutker/smuctl/internal/errors"

const (
	// Configuration Errors
	ErrInvalidDBPath = errors.ErrorCode("store_invalid_db_path")

	// Storage Errors
	ErrStorageInit   = errors.ErrorCode("store_init_failed")
	ErrStorageAccess = errors.ErrorCode("store_access_failed")
	ErrStorageClose  = errors.ErrorCode("store_close_failed")

	// Lookup Errors
	ErrSessionNotFound = errors.ErrorCode("store_session_not_found")
)

var errFactory = errors.New()
