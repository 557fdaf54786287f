// Package services contains server-side business logic. This file implements
// UserService: registration, login, profile management and the admin user
// operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/audiokeeper/internal/common"
	"github.com/dmitrijs2005/audiokeeper/internal/dbx"
	"github.com/dmitrijs2005/audiokeeper/internal/logging"
	"github.com/dmitrijs2005/audiokeeper/internal/server/auth"
	"github.com/dmitrijs2005/audiokeeper/internal/server/config"
	"github.com/dmitrijs2005/audiokeeper/internal/server/models"
	"github.com/dmitrijs2005/audiokeeper/internal/server/repositories/repomanager"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	maxUserNameLength = 64
	resetPasswordSize = 6
)

// Token is the result of a successful login.
type Token struct {
	AccessToken string
	TokenType   string
}

type RegisterInput struct {
	UserName string
	Password string
	Profile  models.Profile
}

type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	tokens                      *auth.TokenService
	accessTokenValidityDuration time.Duration
	bootstrapAdmin              string
	logger                      logging.Logger
	now                         func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		tokens:                      tokens,
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		bootstrapAdmin:              cfg.BootstrapAdmin,
		logger:                      logger,
		now:                         time.Now,
	}
}

// Register creates a user. The bootstrap username becomes an admin.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.UserName)
	if name == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrorInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxUserNameLength {
		return nil, fmt.Errorf("%w: username is too long", common.ErrorInvalidInput)
	}

	digest, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	role := models.RoleUser
	if s.bootstrapAdmin != "" && name == s.bootstrapAdmin {
		role = models.RoleAdmin
	}

	user := &models.User{
		UserName:     name,
		PasswordHash: digest,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	user.ApplyProfile(in.Profile)

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.FindByUserName(ctx, name)
		switch {
		case err == nil:
			return common.ErrorConflict
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		_, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, internalErr("create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName, "role", string(user.Role))
	return user, nil
}

// dummyDigest keeps the unknown-user path as slow as a real verification.
var dummyDigest, _ = auth.HashPassword("audiokeeper-dummy")

// Login verifies credentials and issues an access token. Unknown users and
// wrong passwords are indistinguishable.
func (s *UserService) Login(ctx context.Context, userName, password string) (*Token, error) {
	user, err := s.repomanager.Users(s.db).FindByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = auth.VerifyPassword(password, dummyDigest)
			return nil, common.ErrorUnauthorized
		}
		return nil, internalErr("find user", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, internalErr("verify password", err)
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	access, err := s.tokens.Issue(user.UserName, s.accessTokenValidityDuration)
	if err != nil {
		return nil, internalErr("issue token", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &Token{AccessToken: access, TokenType: common.TokenType}, nil
}

// FindByUserName makes UserService usable as the identity resolver's user
// source.
func (s *UserService) FindByUserName(ctx context.Context, userName string) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByUserName(ctx, userName)
}

func (s *UserService) UpdateOwnProfile(ctx context.Context, actor *models.User, p models.Profile) (*models.User, error) {
	if err := auth.Authorize(actor, auth.UpdateOwnProfile, nil); err != nil {
		return nil, err
	}
	return s.updateProfile(ctx, actor.ID, p)
}

// ChangeOwnPassword replaces the actor's password after checking the old one.
func (s *UserService) ChangeOwnPassword(ctx context.Context, actor *models.User, oldPassword, newPassword string) error {
	if err := auth.Authorize(actor, auth.ChangeOwnPassword, nil); err != nil {
		return err
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", common.ErrorInvalidInput)
	}

	ok, err := auth.VerifyPassword(oldPassword, actor.PasswordHash)
	if err != nil {
		return internalErr("verify password", err)
	}
	if !ok {
		return fmt.Errorf("%w: incorrect old password", common.ErrorInvalidInput)
	}

	if err := s.setPassword(ctx, actor.ID, newPassword); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", actor.ID)
	return nil
}

// List returns users ordered by id. limit <= 0 means DefaultListLimit and
// is capped at MaxListLimit.
func (s *UserService) List(ctx context.Context, actor *models.User, skip, limit int) ([]*models.User, error) {
	if err := auth.Authorize(actor, auth.ListUsers, nil); err != nil {
		return nil, err
	}
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", common.ErrorInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	users, err := s.repomanager.Users(s.db).List(ctx, skip, limit)
	if err != nil {
		return nil, internalErr("list users", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// Delete removes a user. Their artifacts are kept.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id int64) error {
	if err := auth.Authorize(actor, auth.DeleteUser, &id); err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internalErr("delete user", err)
	}

	s.logger.Info(ctx, "user deleted", "user_id", id, "by", actor.ID)
	return nil
}

// ResetPassword sets a random password on user id and returns it. The
// value is not stored anywhere else.
func (s *UserService) ResetPassword(ctx context.Context, actor *models.User, id int64) (string, error) {
	if err := auth.Authorize(actor, auth.ResetPassword, &id); err != nil {
		return "", err
	}

	password, err := common.MakeRandHexString(resetPasswordSize)
	if err != nil {
		return "", internalErr("generate password", err)
	}

	if err := s.setPassword(ctx, id, password); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "password reset", "user_id", id, "by", actor.ID)
	return password, nil
}

// UpdateProfile edits another user's profile (admin).
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, id int64, p models.Profile) (*models.User, error) {
	if err := auth.Authorize(actor, auth.UpdateUser, &id); err != nil {
		return nil, err
	}
	return s.updateProfile(ctx, id, p)
}

func (s *UserService) updateProfile(ctx context.Context, id int64, p models.Profile) (*models.User, error) {
	var user *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		if err := repo.UpdateProfile(ctx, id, p); err != nil {
			return err
		}
		var err error
		user, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, internalErr("update profile", err)
	}

	return user, nil
}

func (s *UserService) setPassword(ctx context.Context, id int64, password string) error {
	digest, err := auth.HashPassword(password)
	if err != nil {
		return internalErr("hash password", err)
	}

	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, id, digest); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return internalErr("update password", err)
	}
	return nil
}

func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}
