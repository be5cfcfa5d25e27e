package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/hitoshi/confsite/internal/model"
)

// DefaultCookieName はセッションIDを運ぶCookieの既定名。
const DefaultCookieName = "session_id"

// Backend はセッション属性の永続化先。
// 期限切れのセッションは見つからなかったものとして扱う。
type Backend interface {
	// Load は属性を取得する。存在しない場合はfoundがfalseになる。
	Load(ctx context.Context, id string) (values map[string]string, found bool, err error)
	// Save は属性全体を上書き保存する（last-write-wins）。
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
}

// StoreConfig はセッションストアの設定。
type StoreConfig struct {
	CookieName   string
	HashKey      []byte        // Cookie署名用の鍵（32バイト以上を推奨）
	MaxAge       time.Duration // セッションとCookieの有効期間
	Timeout      time.Duration // バックエンド呼び出し1回あたりのタイムアウト
	CookieSecure bool
	CookieDomain string
}

// Store はリクエスト単位のセッション取得と保存を担う。
type Store struct {
	backend Backend
	codec   *securecookie.SecureCookie
	config  StoreConfig
	newID   func() string
}

// NewStore はStoreを生成する。
func NewStore(backend Backend, config StoreConfig) *Store {
	if config.CookieName == "" {
		config.CookieName = DefaultCookieName
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 24 * time.Hour
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	codec := securecookie.New(config.HashKey, nil)
	codec.MaxAge(int(config.MaxAge.Seconds()))

	return &Store{
		backend: backend,
		codec:   codec,
		config:  config,
		newID:   uuid.NewString,
	}
}

// Acquire はリクエストのCookieからセッションを取得する。
// Cookieが無い・署名が不正・バックエンドに存在しない場合は新しいセッションを返す。
// 新しいセッションは属性が変更されるまで保存されない。
func (st *Store) Acquire(r *http.Request) (*Session, error) {
	id, ok := st.decodeCookie(r)
	if !ok {
		return newSession(st.newID(), nil, true), nil
	}

	ctx, cancel := context.WithTimeout(r.Context(), st.config.Timeout)
	defer cancel()

	values, found, err := st.backend.Load(ctx, id)
	if err != nil {
		return nil, &model.SessionAccessError{Op: "load", Err: err}
	}
	if !found {
		return newSession(st.newID(), nil, true), nil
	}

	return newSession(id, values, false), nil
}

// Commit は変更された属性をバックエンドに保存し、セッションCookieを設定する。
// 変更が無い場合は何もしない。
func (st *Store) Commit(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.Dirty() {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, st.config.Timeout)
	defer cancel()

	if err := st.backend.Save(ctx, s.ID(), s.Snapshot(), st.config.MaxAge); err != nil {
		return &model.SessionAccessError{Op: "save", Err: err}
	}

	encoded, err := st.codec.Encode(st.config.CookieName, s.ID())
	if err != nil {
		return &model.SessionAccessError{Op: "encode", Err: err}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     st.config.CookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   st.config.CookieDomain,
		MaxAge:   int(st.config.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   st.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	s.markClean()
	return nil
}

// Scope はセッションを取得してfnを実行し、fnの終了経路に関わらず
// 最終状態をCommitする。Cookieはfnの後に設定されるため、
// fnはレスポンスボディを書き込んではならない。
// fnのエラーはCommitのエラーより優先して返す。
func (st *Store) Scope(w http.ResponseWriter, r *http.Request, fn func(*Session) error) (err error) {
	s, err := st.Acquire(r)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := st.Commit(r.Context(), w, s); cerr != nil {
			slog.Error("failed to commit session",
				slog.String("error", cerr.Error()),
			)
			if err == nil {
				err = cerr
			}
		}
	}()

	return fn(s)
}

// decodeCookie は署名付きCookieからセッションIDを取り出す。
func (st *Store) decodeCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(st.config.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var id string
	if err := st.codec.Decode(st.config.CookieName, cookie.Value, &id); err != nil {
		slog.Debug("discarding invalid session cookie",
			slog.String("error", err.Error()),
		)
		return "", false
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// String はログ出力用にバックエンドの種別を返す。
func (st *Store) String() string {
	return fmt.Sprintf("session.Store(%T)", st.backend)
}
