package storage

import "errors"

var (
	ErrNotFound    = errors.New("storage: object not found")
	ErrInvalidCID  = errors.New("storage: undefined or malformed cid")
	ErrCIDMismatch = errors.New("storage: stored bytes do not match cid")
	ErrImmutable   = errors.New("storage: object exists with different bytes")
	ErrNoStores    = errors.New("storage: no stores configured")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
