package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/confsite/internal/metrics"
	"github.com/hitoshi/confsite/internal/model"
	"github.com/hitoshi/confsite/internal/repository"
	"golang.org/x/sync/singleflight"
)

const defaultPersistenceTimeout = 5 * time.Second

// Resolver は外部IDからローカルユーザーを解決する。
// 未登録の場合はプロフィールが空のユーザーを作成する。
type Resolver struct {
	users   repository.UserRepository
	metrics metrics.MetricsCollector
	timeout time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository, collector metrics.MetricsCollector, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultPersistenceTimeout
	}
	return &Resolver{
		users:   users,
		metrics: collector,
		timeout: timeout,
		now:     time.Now,
	}
}

// ResolveUser はexternalIDのユーザーを検索し、存在しなければ作成して返す。
// 同一externalIDの並行呼び出しは1回の検索・作成にまとめられる。
// 重複作成はリポジトリの一意制約でも防がれる。
func (r *Resolver) ResolveUser(ctx context.Context, externalID string) (*model.User, error) {
	v, err, _ := r.group.Do(externalID, func() (any, error) {
		// 呼び出し元のキャンセルが待機中の他リクエストに波及しないよう切り離す
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.findOrCreate(ctx, externalID)
	})
	if err != nil {
		return nil, err
	}

	user := *v.(*model.User)
	return &user, nil
}

func (r *Resolver) findOrCreate(ctx context.Context, externalID string) (*model.User, error) {
	user, err := r.users.FindByLogin(ctx, externalID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "find", Err: withContextErr(ctx, err)}
	}
	if user != nil {
		return user, nil
	}

	saved, err := r.users.Save(ctx, model.NewUser(externalID, r.now()))
	if err != nil {
		return nil, &model.PersistenceError{Op: "save", Err: fmt.Errorf("failed to create user: %w", withContextErr(ctx, err))}
	}

	r.metrics.RecordUserCreated()
	slog.Info("new user created",
		slog.String("user_id", saved.ID),
	)
	return saved, nil
}

// withContextErr はタイムアウト時にドライバー固有のエラーへctx.Err()を付与する。
// 呼び出し側はerrors.Is(err, context.DeadlineExceeded)で判定できる。
func withContextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}
