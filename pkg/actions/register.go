package actions

import (
	"context"
	"errors"

	"github.com/AdrianLSY/vera-go-service/pkg/auth"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
)

// Register creates an account and returns a signed token for it.
type Register struct {
	Username    string  `json:"username" desc:"The username for the new account" constraints:"required,min=3,max=50"`
	Password    string  `json:"password" desc:"The password for the new account" constraints:"required,min=8,max=128"`
	Name        *string `json:"name" desc:"The display name for the new account" default:"null"`
	Email       *string `json:"email" desc:"The email address for the new account" default:"null" constraints:"email"`
	PhoneNumber *string `json:"phone_number" desc:"The phone number for the new account" default:"null" constraints:"phone"`
	NotBefore   *int64  `json:"not_before" desc:"Unix time before which the issued token is not valid" default:"null"`
	ExpiresAt   *int64  `json:"expires_at" desc:"Unix time at which the issued token expires" default:"null"`

	deps Deps
}

func (a *Register) Description() string {
	return "Registers a new user account and returns a signed token for it"
}

func (a *Register) Run(ctx context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	if a.NotBefore != nil && a.ExpiresAt != nil && *a.NotBefore > *a.ExpiresAt {
		return &capability.Result{StatusCode: 400, Message: "not_before cannot be after expires_at"}, nil
	}

	digest, err := auth.HashPassword(a.Password)
	if err != nil {
		return nil, err
	}

	user, err := a.deps.Repo.CreateUser(ctx, db.CreateUserParams{
		Username:       a.Username,
		Name:           a.Name,
		Email:          a.Email,
		PhoneNumber:    a.PhoneNumber,
		PasswordDigest: digest,
	})
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return &capability.Result{StatusCode: 409, Message: "Username, email or phone number already taken"}, nil
		}
		return nil, err
	}

	token, err := a.deps.Auth.Issue(subject(user.ID), a.NotBefore, a.ExpiresAt)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"jwt": token}
	if a.ExpiresAt != nil {
		fields["expires_at"] = *a.ExpiresAt
	}
	return &capability.Result{StatusCode: 201, Message: "User successfully registered", Fields: fields}, nil
}
