package models

import "github.com/google/uuid"

// User is the identity-provider account resolved from a bearer token. Users
// are never persisted here; the provider owns the account records.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider,omitempty"`
}
