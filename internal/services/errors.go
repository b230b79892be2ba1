package services

import "errors"

// Service errors
var (
	// Dataset errors
	ErrUnknownDataset       = errors.New("unknown dataset")
	ErrSourceNotConfigured  = errors.New("dataset source not configured")
	ErrUnsupportedExtension = errors.New("unsupported file type")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("too many open sessions")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
