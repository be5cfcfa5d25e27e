// Package auth はOAuthプロバイダー戦略とユーザー解決を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/confsite/internal/model"
	"golang.org/x/oauth2"
)

const (
	defaultOAuthTimeout = 10 * time.Second
	maxUserInfoBytes    = 1 << 20
)

// Identity はプロバイダーがコールバックで返した外部IDを表す。
// 永続化されず、すぐにユーザー検索のキーとして使われる。
type Identity struct {
	Provider   string
	ExternalID string
}

// Strategy はOAuthプロバイダーごとの認可フローを表す。
type Strategy interface {
	// Name はプロバイダー名を返す（例: "google"）。
	Name() string

	// AuthorizationRedirectURI はブラウザをリダイレクトさせる認可URLを返す。
	// クライアント認証情報が未設定の場合はErrMissingCredentialsをラップして返す。
	AuthorizationRedirectURI(r *http.Request) (string, error)

	// ResolveIdentity はコールバックリクエストを検証し、外部IDを解決する。
	// 同意拒否やcode欠落の場合は(nil, nil)を返す。
	// プロバイダーとの交換失敗は*model.OAuthExchangeErrorを返す。再試行はしない。
	ResolveIdentity(r *http.Request) (*Identity, error)
}

// ProviderConfig はOAuthプロバイダーの設定。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string        // コールバックURLの基点（空の場合はリクエストから導出）
	Timeout      time.Duration // コード交換とユーザー情報取得を合わせた上限
	HTTPClient   *http.Client

	// テスト用にオーバーライド可能なURL
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

// oauthStrategy は認可コードフローの共通実装。
// プロバイダー差分はエンドポイントとユーザー情報のデコードのみ。
type oauthStrategy struct {
	name        string
	config      oauth2.Config
	baseURL     string
	userInfoURL string
	timeout     time.Duration
	httpClient  *http.Client
	decodeID    func(body []byte) (string, error)
}

func newOAuthStrategy(name string, endpoint oauth2.Endpoint, userInfoURL string, scopes []string, cfg ProviderConfig, decodeID func([]byte) (string, error)) *oauthStrategy {
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	if cfg.UserInfoURL != "" {
		userInfoURL = cfg.UserInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOAuthTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	return &oauthStrategy{
		name: name,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		baseURL:     baseURL,
		userInfoURL: userInfoURL,
		timeout:     cfg.Timeout,
		httpClient:  cfg.HTTPClient,
		decodeID:    decodeID,
	}
}

func (s *oauthStrategy) Name() string {
	return s.name
}

// AuthorizationRedirectURI は認可URLを生成する。セッションには依存しない。
// stateパラメータは付与しない（CSRF対策は未実装）。
func (s *oauthStrategy) AuthorizationRedirectURI(r *http.Request) (string, error) {
	if err := s.checkCredentials(); err != nil {
		return "", err
	}

	cfg := s.config
	cfg.RedirectURL = s.callbackURL(r)
	return cfg.AuthCodeURL(""), nil
}

// ResolveIdentity は認可コードをトークンに交換し、ユーザー情報から外部IDを取得する。
func (s *oauthStrategy) ResolveIdentity(r *http.Request) (*Identity, error) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		slog.Info("oauth authorization was declined",
			slog.String("provider", s.name),
			slog.String("reason", reason),
		)
		return nil, nil
	}

	code := q.Get("code")
	if code == "" {
		return nil, nil
	}

	if err := s.checkCredentials(); err != nil {
		return nil, &model.OAuthExchangeError{Provider: s.name, Err: err}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	cfg := s.config
	cfg.RedirectURL = s.callbackURL(r)

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &model.OAuthExchangeError{Provider: s.name, Err: fmt.Errorf("failed to exchange code: %w", err)}
	}

	externalID, err := s.fetchExternalID(ctx, cfg.Client(ctx, token))
	if err != nil {
		return nil, &model.OAuthExchangeError{Provider: s.name, Err: err}
	}

	return &Identity{Provider: s.name, ExternalID: externalID}, nil
}

// fetchExternalID はアクセストークン付きクライアントでユーザー情報を取得する。
func (s *oauthStrategy) fetchExternalID(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read user info response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user info fetch failed with status %d", resp.StatusCode)
	}

	id, err := s.decodeID(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse user info response: %w", err)
	}
	if id == "" {
		return "", errors.New("empty id in user info response")
	}
	return id, nil
}

func (s *oauthStrategy) checkCredentials() error {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return fmt.Errorf("%s: %w", s.name, model.ErrMissingCredentials)
	}
	return nil
}

// callbackURL は /oauth/{provider} を指すコールバックURLを返す。
func (s *oauthStrategy) callbackURL(r *http.Request) string {
	base := s.baseURL
	if base == "" && r != nil {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/oauth/" + s.name
}
