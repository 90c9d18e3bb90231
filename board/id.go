package board

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID generates a short opaque entity ID: 12 lowercase hex characters drawn
// from a random UUID. Agent responses are scanned for tokens of exactly this
// shape, so the length is part of the external contract.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:6])
}
