// Package actions implements the account operations this service
// advertises on join: registration, login, token revocation, profile
// reads and edits, and account deletion.
package actions

import (
	"context"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AdrianLSY/vera-go-service/pkg/auth"
	"github.com/AdrianLSY/vera-go-service/pkg/capability"
	"github.com/AdrianLSY/vera-go-service/pkg/db"
)

// Store is the slice of the repository the actions depend on.
type Store interface {
	CreateUser(ctx context.Context, params db.CreateUserParams) (*db.User, error)
	GetUserByID(ctx context.Context, id int64) (*db.User, error)
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByPhoneNumber(ctx context.Context, phoneNumber string) (*db.User, error)
	UpdateUser(ctx context.Context, id int64, params db.UpdateUserParams) (*db.User, error)
	SoftDeleteUser(ctx context.Context, id int64) (bool, error)
	InsertRevocation(ctx context.Context, jti uuid.UUID, expiresAt *time.Time) error
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}

// Deps carries the collaborators every action runs against.
type Deps struct {
	Repo Store
	Auth *auth.Issuer
}

// NewRegistry returns the action registry advertised on join. Each
// factory closes over deps; the unexported field survives the request
// unmarshal.
func NewRegistry(deps Deps) *capability.Registry {
	r := capability.NewRegistry()
	r.Register(func() capability.Action { return &Register{deps: deps} })
	r.Register(func() capability.Action { return &Login{deps: deps} })
	r.Register(func() capability.Action { return &Logout{deps: deps} })
	r.Register(func() capability.Action { return &Show{deps: deps} })
	r.Register(func() capability.Action { return &Edit{deps: deps} })
	r.Register(func() capability.Action { return &Delete{deps: deps} })
	return r
}

// userFields is the profile shape returned to callers; timestamps are
// unix seconds and the password digest never leaves the store.
func userFields(u *db.User) map[string]any {
	return map[string]any{
		"id":           u.ID,
		"username":     u.Username,
		"name":         u.Name,
		"email":        u.Email,
		"phone_number": u.PhoneNumber,
		"created_at":   u.CreatedAt.Unix(),
		"updated_at":   u.UpdatedAt.Unix(),
	}
}

// authenticate verifies a token, rejects revoked ones, and loads the
// subject account. A non-nil Result is the failure response to return
// as-is.
func authenticate(ctx context.Context, deps Deps, token string) (*db.User, jwt.MapClaims, *capability.Result) {
	claims, err := deps.Auth.Verify(token)
	if err != nil {
		return nil, nil, &capability.Result{StatusCode: 401, Message: "Invalid token"}
	}
	jti, err := auth.JTI(claims)
	if err != nil {
		return nil, nil, &capability.Result{StatusCode: 401, Message: "Invalid token"}
	}
	revoked, err := deps.Repo.IsRevoked(ctx, jti)
	if err != nil {
		return nil, nil, &capability.Result{StatusCode: 500, Message: "Internal server error"}
	}
	if revoked {
		return nil, nil, &capability.Result{StatusCode: 401, Message: "Token has been revoked"}
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, nil, &capability.Result{StatusCode: 401, Message: "Invalid token"}
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, nil, &capability.Result{StatusCode: 401, Message: "Invalid token"}
	}
	user, err := deps.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, nil, &capability.Result{StatusCode: 500, Message: "Internal server error"}
	}
	if user == nil {
		return nil, nil, &capability.Result{StatusCode: 404, Message: "User not found"}
	}
	return user, claims, nil
}

// expiryFromClaims pulls the exp claim as a timestamp, if present.
func expiryFromClaims(claims jwt.MapClaims) *time.Time {
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

// countSet reports how many of the given optional strings are present.
func countSet(fields ...*string) int {
	n := 0
	for _, f := range fields {
		if f != nil {
			n++
		}
	}
	return n
}

func subject(id int64) string {
	return strconv.FormatInt(id, 10)
}
