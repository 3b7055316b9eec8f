package domain

import "github.com/google/uuid"

// User is the authenticated principal attached to each request. Account
// management lives in the auth collaborator; the pipeline only needs the
// identity for ownership checks and entity scoping.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}
