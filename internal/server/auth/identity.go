package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
)

// UserFinder looks users up by username. Implementations return
// common.ErrorNotFound for unknown names.
type UserFinder interface {
	FindByUserName(ctx context.Context, userName string) (*models.User, error)
}

// IdentityResolver turns a bearer token into the current user.
type IdentityResolver struct {
	tokens *TokenService
	users  UserFinder
}

func NewIdentityResolver(tokens *TokenService, users UserFinder) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users}
}

// Resolve validates token and loads its subject. Every token problem and an
// unknown subject yield the same common.ErrorUnauthorized.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorUnauthorized
	}

	claims, err := r.tokens.Validate(token)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	user, err := r.users.FindByUserName(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: load user: %v", common.ErrorInternal, err)
	}

	return user, nil
}
