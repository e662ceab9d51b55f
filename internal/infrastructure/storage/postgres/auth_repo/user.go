// Package auth_repo provides the PostgreSQL implementation of the user
// repository. Lookups are not shop-scoped: authentication happens before
// a shop scope exists.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
	"florist/internal/domain/auth"
	"florist/internal/infrastructure/storage/postgres"
)

const usersTable = "users"

var userColumns = []string{
	"id", "shop_id", "email", "password_hash", "role", "enabled", "created_at",
}

// UserRepo implements auth.Repository.
type UserRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txm *postgres.TxManager) *UserRepo {
	return &UserRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByEmail returns a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"email": email})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user auth.User
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", email)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// GetByID returns a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	q := r.builder.Select(userColumns...).
		From(usersTable).
		Where(squirrel.Eq{"id": userID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user auth.User
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &user, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("user", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// Create inserts a user.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	q := r.builder.Insert(usersTable).
		Columns(userColumns...).
		Values(
			user.ID, user.ShopID, user.Email, user.PasswordHash,
			user.Role, user.Enabled, user.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ auth.Repository = (*UserRepo)(nil)
