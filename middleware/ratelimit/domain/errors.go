package domain

import "errors"

var ErrInvalidConfig = errors.New("invalid rate limit config")

func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// ErrNoSlot indica que o pool de concorrência não liberou vaga a tempo.
var ErrNoSlot = errors.New("no concurrency slot available")
