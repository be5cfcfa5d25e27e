// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/confsite/internal/model"
	"github.com/hitoshi/confsite/internal/session"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByLogin はログインID（プロバイダーの外部ID）でユーザーを取得する。
	// 見つからない場合はnilを返す。
	FindByLogin(ctx context.Context, login string) (*model.User, error)

	// Save はユーザーを保存し、保存済みのユーザーを返す。
	// 同一IDのユーザーがすでに存在する場合は既存のユーザーを返す。
	Save(ctx context.Context, user *model.User) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	session.Backend

	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
