package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed run request (rejected before execution).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownProtocol signals a protocol name outside the closed set.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrInvalidConfig signals an unusable protocol configuration.
	ErrInvalidConfig = errors.New("invalid protocol config")
	// ErrModelProvider signals a model API failure.
	ErrModelProvider = errors.New("model provider error")
	// ErrRetrievalIndex signals a retrieval index failure.
	ErrRetrievalIndex = errors.New("retrieval index error")
)
