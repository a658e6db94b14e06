package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceFetch       = errors.New("source fetch failed")
	ErrReindexInProgress = errors.New("reindex already in progress")
)
