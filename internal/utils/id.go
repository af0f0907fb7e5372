package utils

import "github.com/google/uuid"

// NewID returns a random identifier used for live connections.
func NewID() string {
	return uuid.NewString()
}
