package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrShutdown = errors.New("engine is shutting down")
	ErrUnknown  = errors.New("unknown")
)
