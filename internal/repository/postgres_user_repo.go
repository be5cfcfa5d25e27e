package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/confsite/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByLogin はログインIDでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, firstname, lastname, email, created_at FROM users WHERE id = $1`,
		login,
	).Scan(&user.ID, &user.Firstname, &user.Lastname, &user.Email, &user.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by login: %w", err)
	}

	return user, nil
}

// Save はユーザーを保存する。
// 並行した初回ログインで同じIDが挿入された場合も1レコードのみが残り、
// 先に保存されたユーザーを返す。
func (r *PostgresUserRepo) Save(ctx context.Context, user *model.User) (*model.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, firstname, lastname, email, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		user.ID, user.Firstname, user.Lastname, user.Email, user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	saved, err := r.FindByLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("user %q vanished after insert", user.ID)
	}
	return saved, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
