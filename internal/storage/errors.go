package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrUnknownBackend    = errors.New("unknown history backend")
	ErrCorruptHistory    = errors.New("corrupt history data")
)
