// Package handler は認証フローのハンドラーとHTTPルーターを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/confsite/internal/auth"
	"github.com/hitoshi/confsite/internal/metrics"
	"github.com/hitoshi/confsite/internal/model"
	"github.com/hitoshi/confsite/internal/route"
	"github.com/hitoshi/confsite/internal/session"
)

// ビュー名
const (
	viewHome  = "home"
	viewLogin = "login"
)

// StrategyFactory はプロバイダー名からOAuthストラテジーを解決する。
type StrategyFactory interface {
	Create(provider string) (auth.Strategy, error)
	Providers() []string
}

// UserResolver は外部IDに対応するユーザーを取得または作成する。
type UserResolver interface {
	ResolveUser(ctx context.Context, externalID string) (*model.User, error)
}

// AuthHandler はログイン・ログアウト・OAuthコールバックのハンドラー。
// セッションはroute.Requestで明示的に受け取る。
type AuthHandler struct {
	strategies StrategyFactory
	users      UserResolver
	metrics    metrics.MetricsCollector
	now        func() time.Time
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(strategies StrategyFactory, users UserResolver, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		strategies: strategies,
		users:      users,
		metrics:    collector,
		now:        time.Now,
	}
}

// LoginView はログインページを描画する。
// GET /login
func (h *AuthHandler) LoginView(req *route.Request) (route.Result, error) {
	return h.loginView(), nil
}

// Login はログインフォームの送信を処理する。
// providerが空の場合はemailをそのままユーザー名としてセッションに保存する（検証なし）。
// providerが指定された場合はプロバイダーの認可URLへ303でリダイレクトする。
// POST /login
func (h *AuthHandler) Login(req *route.Request) (route.Result, error) {
	provider := req.FormValue("provider")
	if provider == "" {
		email := req.FormValue("email")
		if email == "" {
			return h.loginView(), nil
		}
		// パスワード等の検証は行わない
		req.Session.Set(session.KeyUsername, email)
		return route.Render(viewHome, nil), nil
	}

	strategy, err := h.strategies.Create(provider)
	if err != nil {
		return nil, err
	}

	uri, err := strategy.AuthorizationRedirectURI(req.HTTP)
	if err != nil {
		return nil, err
	}

	return route.SeeOther(uri), nil
}

// Logout はセッションからユーザー名を削除してホームを描画する。
// GET /logout
func (h *AuthHandler) Logout(req *route.Request) (route.Result, error) {
	req.Session.Remove(session.KeyUsername)
	return route.Render(viewHome, nil), nil
}

// OAuthCallback はプロバイダーからのコールバックを処理する。
// 交換の失敗・拒否・タイムアウトはエラーページにせずログインページに戻す。
// GET /oauth/{provider}
func (h *AuthHandler) OAuthCallback(req *route.Request) (route.Result, error) {
	provider := req.Var("provider")

	strategy, err := h.strategies.Create(provider)
	if err != nil {
		return nil, err
	}

	start := h.now()
	identity, err := strategy.ResolveIdentity(req.HTTP)
	h.metrics.RecordOAuthLatency(provider, h.now().Sub(start))
	if err != nil {
		slog.Warn("oauth exchange failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordOAuthExchange(provider, metrics.ExchangeFailure)
		return h.loginView(), nil
	}
	if identity == nil {
		h.metrics.RecordOAuthExchange(provider, metrics.ExchangeDenied)
		return h.loginView(), nil
	}

	user, err := h.users.ResolveUser(req.Context(), identity.ExternalID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("user resolution timed out",
				slog.String("provider", provider),
				slog.String("error", err.Error()),
			)
			h.metrics.RecordOAuthExchange(provider, metrics.ExchangeFailure)
			return h.loginView(), nil
		}
		return nil, err
	}

	req.Session.Set(session.KeyUsername, user.Firstname)
	h.metrics.RecordOAuthExchange(provider, metrics.ExchangeSuccess)

	slog.Info("user signed in",
		slog.String("provider", provider),
		slog.String("user_id", user.ID),
	)

	return route.Render(viewHome, nil), nil
}

func (h *AuthHandler) loginView() *route.View {
	return route.Render(viewLogin, map[string]any{"providers": h.strategies.Providers()})
}

// Routes は認証ルートのContributorを返す。
// ページ遷移はtext/htmlのテーブル、フォーム送信はContent-Typeのテーブルに登録する。
func (h *AuthHandler) Routes() route.Contributor {
	return route.ContributorFunc(func() ([]*route.Table, error) {
		pages, err := route.NewTable(route.Accept("text/html")).
			Get("/login", h.LoginView).
			Get("/logout", h.Logout).
			Get("/oauth/{provider}", h.OAuthCallback).
			Build()
		if err != nil {
			return nil, err
		}

		forms, err := route.NewTable(route.ContentType("application/x-www-form-urlencoded")).
			Post("/login", h.Login).
			Build()
		if err != nil {
			return nil, err
		}

		return []*route.Table{pages, forms}, nil
	})
}
