package actions

import (
	"context"

	"github.com/AdrianLSY/vera-go-service/pkg/capability"
)

// Show returns the profile of the account a token belongs to, along
// with the token's claims.
type Show struct {
	JWT string `json:"jwt" desc:"The signed token identifying the account" constraints:"required"`

	deps Deps
}

func (a *Show) Description() string {
	return "Returns the account profile a signed token belongs to"
}

func (a *Show) Run(ctx context.Context, _ capability.Connection, _ capability.Transport) (*capability.Result, error) {
	user, claims, fail := authenticate(ctx, a.deps, a.JWT)
	if fail != nil {
		return fail, nil
	}
	return &capability.Result{
		StatusCode: 200,
		Fields: map[string]any{
			"user":   userFields(user),
			"claims": claims,
		},
	}, nil
}
