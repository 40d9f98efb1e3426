package actions

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
)

// Delete soft-deletes an account, identified either by a token or
// directly by id. Exactly one of the two must be given.
type Delete struct {
	JWT    *string `json:"jwt" desc:"A signed token identifying the account to delete" default:"null"`
	UserID *int64  `json:"user_id" desc:"The id of the account to delete" default:"null"`

	deps Deps
}

func (a *Delete) Description() string {
	return "Soft-deletes a user account"
}

func (a *Delete) Run(ctx context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	var userID int64
	switch {
	case a.JWT != nil && a.UserID != nil, a.JWT == nil && a.UserID == nil:
		return &capability.Result{StatusCode: 400, Message: "Exactly one of jwt or user_id must be provided"}, nil
	case a.JWT != nil:
		user, _, fail := authenticate(ctx, a.deps, *a.JWT)
		if fail != nil {
			return fail, nil
		}
		userID = user.ID
	default:
		userID = *a.UserID
	}

	deleted, err := a.deps.Repo.SoftDeleteUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return &capability.Result{StatusCode: 404, Message: "User not found"}, nil
	}
	return &capability.Result{
		StatusCode: 200,
		Message:    "User successfully deleted",
		Fields:     map[string]any{"user_id": userID},
	}, nil
}
