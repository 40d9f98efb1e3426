package actions

import (
	"context"
	"errors"

	"github.com/AdrianLSY/vera-go-service/pkg/auth"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
)

// Edit updates the profile of an account, identified by a token, by id,
// or by both when they agree. Omitted fields keep their stored values;
// at least one editable field must be given.
type Edit struct {
	JWT         *string `json:"jwt" desc:"A signed token identifying the account to edit" default:"null"`
	UserID      *int64  `json:"user_id" desc:"The id of the account to edit" default:"null"`
	Username    *string `json:"username" desc:"The new username" default:"null" constraints:"min=3,max=50"`
	Password    *string `json:"password" desc:"The new password" default:"null" constraints:"min=8,max=128"`
	Name        *string `json:"name" desc:"The new display name" default:"null"`
	Email       *string `json:"email" desc:"The new email address" default:"null" constraints:"email"`
	PhoneNumber *string `json:"phone_number" desc:"The new phone number" default:"null" constraints:"phone"`

	deps Deps
}

func (a *Edit) Description() string {
	return "Updates the profile of a user account"
}

func (a *Edit) Run(ctx context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	if a.JWT == nil && a.UserID == nil {
		return &capability.Result{StatusCode: 400, Message: "Either jwt or user_id must be provided"}, nil
	}
	if countSet(a.Username, a.Password, a.Name, a.Email, a.PhoneNumber) == 0 {
		return &capability.Result{StatusCode: 400, Message: "At least one of username, password, name, email or phone_number must be provided"}, nil
	}

	var userID int64
	if a.JWT != nil {
		user, _, fail := authenticate(ctx, a.deps, *a.JWT)
		if fail != nil {
			return fail, nil
		}
		// Both identifiers given: they must name the same account.
		if a.UserID != nil && user.ID != *a.UserID {
			return &capability.Result{StatusCode: 401, Message: "User id is not consistent between jwt and user_id"}, nil
		}
		userID = user.ID
	} else {
		userID = *a.UserID
	}

	params := db.UpdateUserParams{
		Username:    a.Username,
		Name:        a.Name,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
	}
	if a.Password != nil {
		digest, err := auth.HashPassword(*a.Password)
		if err != nil {
			return nil, err
		}
		params.PasswordDigest = &digest
	}

	updated, err := a.deps.Repo.UpdateUser(ctx, userID, params)
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return &capability.Result{StatusCode: 409, Message: "Username, email or phone number already taken"}, nil
		}
		return nil, err
	}
	if updated == nil {
		return &capability.Result{StatusCode: 404, Message: "User not found"}, nil
	}
	return &capability.Result{
		StatusCode: 200,
		Message:    "User successfully updated",
		Fields:     map[string]any{"user": userFields(updated)},
	}, nil
}
