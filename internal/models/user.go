package models

import "github.com/google/uuid"

// User is the caller identity attached to a request context by the auth
// middleware. Credential issuance and storage live in the auth service;
// this service only ever sees a validated identifier.
type User struct {
	UserID uuid.UUID `json:"user_id"`
}
