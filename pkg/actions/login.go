package actions

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/auth"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
)

// Login authenticates an account by exactly one identifier and returns
// a signed token for it.
type Login struct {
	Username    *string `json:"username" desc:"The username to log in with" default:"null"`
	Email       *string `json:"email" desc:"The email address to log in with" default:"null" constraints:"email"`
	PhoneNumber *string `json:"phone_number" desc:"The phone number to log in with" default:"null" constraints:"phone"`
	Password    string  `json:"password" desc:"The account password" constraints:"required"`
	NotBefore   *int64  `json:"not_before" desc:"Unix time before which the issued token is not valid" default:"null"`
	ExpiresAt   *int64  `json:"expires_at" desc:"Unix time at which the issued token expires" default:"null"`

	deps Deps
}

func (a *Login) Description() string {
	return "Authenticates a user and returns a signed token"
}

func (a *Login) Run(ctx context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	if countSet(a.Username, a.Email, a.PhoneNumber) != 1 {
		return &capability.Result{StatusCode: 400, Message: "Exactly one of username, email or phone_number must be provided"}, nil
	}
	if a.NotBefore != nil && a.ExpiresAt != nil && *a.NotBefore > *a.ExpiresAt {
		return &capability.Result{StatusCode: 400, Message: "not_before cannot be after expires_at"}, nil
	}

	var (
		user *db.User
		err  error
	)
	switch {
	case a.Username != nil:
		user, err = a.deps.Repo.GetUserByUsername(ctx, *a.Username)
	case a.Email != nil:
		user, err = a.deps.Repo.GetUserByEmail(ctx, *a.Email)
	default:
		user, err = a.deps.Repo.GetUserByPhoneNumber(ctx, *a.PhoneNumber)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &capability.Result{StatusCode: 404, Message: "User not found"}, nil
	}

	if !auth.CheckPassword(user.PasswordDigest, a.Password) {
		return &capability.Result{StatusCode: 401, Message: "Invalid credentials"}, nil
	}

	token, err := a.deps.Auth.Issue(subject(user.ID), a.NotBefore, a.ExpiresAt)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{"jwt": token}
	if a.ExpiresAt != nil {
		fields["expires_at"] = *a.ExpiresAt
	}
	return &capability.Result{StatusCode: 200, Message: "Login successful", Fields: fields}, nil
}
