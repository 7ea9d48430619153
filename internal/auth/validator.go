package auth

import (
	"context"

	"github.com/google/uuid"
)

// Validator resolves a bearer credential to the owning user. Credential
// issuance lives in the auth service; this is the consumed side of that
// contract.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}
