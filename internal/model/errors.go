// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// プロバイダー固有の失敗内容はMessageに含めない。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, routing, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodePersistence         = "PERSISTENCE_ERROR"
	ErrCodeSession             = "SESSION_ERROR"
	ErrCodeRendering           = "RENDERING_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

var (
	// ErrNoRouteMatched はどのルートテーブルにも一致しなかったことを示す。
	ErrNoRouteMatched = errors.New("no route matched")

	// ErrMissingCredentials はOAuthクライアントの認証情報が未設定であることを示す。
	ErrMissingCredentials = errors.New("oauth client credentials are not configured")
)

// UnsupportedProviderError は未知のOAuthプロバイダー名が指定された場合のエラー。
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported oauth provider: %q", e.Provider)
}

// OAuthExchangeError はプロバイダーとの認可コード交換が失敗した場合のエラー。
// 呼び出し側はログ出力のうえ未認証のビューに戻す。
type OAuthExchangeError struct {
	Provider string
	Err      error
}

func (e *OAuthExchangeError) Error() string {
	return fmt.Sprintf("oauth exchange with %s failed: %v", e.Provider, e.Err)
}

func (e *OAuthExchangeError) Unwrap() error { return e.Err }

// PersistenceError はユーザーの検索・作成に失敗した場合のエラー。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SessionAccessError はセッションストアの読み書きに失敗した場合のエラー。
// そのリクエストは致命的エラーとして扱う。
type SessionAccessError struct {
	Op  string
	Err error
}

func (e *SessionAccessError) Error() string {
	return fmt.Sprintf("session %s failed: %v", e.Op, e.Err)
}

func (e *SessionAccessError) Unwrap() error { return e.Err }

// RenderingError はテンプレートの描画に失敗した場合のエラー。
type RenderingError struct {
	View string
	Err  error
}

func (e *RenderingError) Error() string {
	return fmt.Sprintf("rendering view %q failed: %v", e.View, e.Err)
}

func (e *RenderingError) Unwrap() error { return e.Err }

// StatusOf はエラーに対応するHTTPステータスコードを返す。
func StatusOf(err error) int {
	var unsupported *UnsupportedProviderError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoRouteMatched):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ToAPIError はエラーをユーザー向けのAPIErrorに変換する。
// 内部の詳細はログのみに記録し、ここでは一般的なメッセージを返す。
func ToAPIError(err error) *APIError {
	var (
		unsupported *UnsupportedProviderError
		persistence *PersistenceError
		sessionErr  *SessionAccessError
		rendering   *RenderingError
	)
	switch {
	case errors.As(err, &unsupported):
		return &APIError{
			Code:     ErrCodeUnsupportedProvider,
			Message:  fmt.Sprintf("Unsupported login provider: %s", unsupported.Provider),
			Category: "auth",
			Action:   "Choose one of the login providers listed on the login page.",
		}
	case errors.Is(err, ErrNoRouteMatched):
		return &APIError{
			Code:     ErrCodeNotFound,
			Message:  "The requested page does not exist.",
			Category: "routing",
			Action:   "Check the URL.",
		}
	case errors.Is(err, ErrMissingCredentials):
		return &APIError{
			Code:     ErrCodeConfiguration,
			Message:  "This login provider is not available.",
			Category: "system",
			Action:   "Use another login method.",
		}
	case errors.As(err, &persistence):
		return &APIError{
			Code:     ErrCodePersistence,
			Message:  "The user account could not be loaded.",
			Category: "system",
			Action:   "Reload the page to retry.",
		}
	case errors.As(err, &sessionErr):
		return &APIError{
			Code:     ErrCodeSession,
			Message:  "The session could not be accessed.",
			Category: "system",
			Action:   "Please try again later.",
		}
	case errors.As(err, &rendering):
		return &APIError{
			Code:     ErrCodeRendering,
			Message:  "The page could not be displayed.",
			Category: "system",
			Action:   "Please try again later.",
		}
	default:
		return &APIError{
			Code:     ErrCodeInternal,
			Message:  "An internal error occurred.",
			Category: "system",
			Action:   "Please try again later.",
		}
	}
}
