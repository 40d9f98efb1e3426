package envelope

import "time"

// Service identifies the backend service this client is attached to.
type Service struct {
	ID         int       `json:"id" desc:"The unique identifier for the service."`
	Name       string    `json:"name" desc:"The name of the service."`
	InsertedAt time.Time `json:"inserted_at" desc:"The date and time the service was inserted."`
	UpdatedAt  time.Time `json:"updated_at" desc:"The date and time the service was last updated."`
}

// Description implements the describable contract for nested descriptors.
func (Service) Description() string {
	return "Represents a service with a unique identifier and a name."
}

// Token holds the session credential. All fields default to nil; the secret
// Value is supplied locally at connect time and the remaining metadata is
// filled in from the join reply.
type Token struct {
	ID         *int       `json:"id" desc:"The unique identifier for the token." default:"null"`
	Context    *string    `json:"context" desc:"The context for the token." default:"null"`
	Value      *string    `json:"value" desc:"The value for the token." default:"null"`
	ServiceID  *int       `json:"service_id" desc:"The ID of the service associated with the token." default:"null"`
	InsertedAt *time.Time `json:"inserted_at" desc:"The date and time the token was inserted." default:"null"`
	ExpiresAt  *time.Time `json:"expires_at" desc:"The date and time the token expires." default:"null"`
}

// Description implements the describable contract for nested descriptors.
func (Token) Description() string {
	return "Represents a token with a unique identifier, context, value, service id, and inserted and expiration date."
}
