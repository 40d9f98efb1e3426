package actions

import (
	"context"
	"errors"

	"github.com/AdrianLSY/vera-go-service/pkg/auth"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
)

// Logout revokes a token by recording its jti. The token must still
// verify; an expired or tampered token cannot be revoked.
type Logout struct {
	JWT string `json:"jwt" desc:"The signed token to revoke" constraints:"required"`

	deps Deps
}

func (a *Logout) Description() string {
	return "Revokes a signed token so it can no longer be used"
}

func (a *Logout) Run(ctx context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	claims, err := a.deps.Auth.Verify(a.JWT)
	if err != nil {
		return &capability.Result{StatusCode: 401, Message: "Invalid token"}, nil
	}
	jti, err := auth.JTI(claims)
	if err != nil {
		return &capability.Result{StatusCode: 401, Message: "Invalid token"}, nil
	}

	if err := a.deps.Repo.InsertRevocation(ctx, jti, expiryFromClaims(claims)); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return &capability.Result{StatusCode: 409, Message: "Token already revoked"}, nil
		}
		return nil, err
	}
	return &capability.Result{StatusCode: 200, Message: "Token successfully revoked"}, nil
}
