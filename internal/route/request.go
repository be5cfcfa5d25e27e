package route

import (
	"context"
	"net/http"

	"github.com/hitoshi/confsite/internal/session"
)

// Request はハンドラーに渡されるリクエスト。
// セッションは暗黙の状態ではなくこの値として明示的に受け渡す。
type Request struct {
	HTTP    *http.Request
	Vars    map[string]string
	Session *session.Session
}

// Var はパス変数の値を返す。存在しない場合は空文字。
func (r *Request) Var(name string) string {
	return r.Vars[name]
}

// Context はリクエストのcontextを返す。
func (r *Request) Context() context.Context {
	return r.HTTP.Context()
}

// FormValue はフォームボディの値を返す。
func (r *Request) FormValue(key string) string {
	return r.HTTP.PostFormValue(key)
}

// HandlerFunc はルートに紐づくハンドラー。
// ボディを直接書き込まず、Resultとして返す。
type HandlerFunc func(req *Request) (Result, error)

// Filter はディスパッチ全体を包むデコレーター。nextを呼んで結果を加工する。
type Filter func(req *Request, next HandlerFunc) (Result, error)

// Contributor は機能領域ごとのルートテーブルを提供する。
type Contributor interface {
	Tables() ([]*Table, error)
}

// ContributorFunc は関数をContributorとして扱うアダプター。
type ContributorFunc func() ([]*Table, error)

// Tables はf()を返す。
func (f ContributorFunc) Tables() ([]*Table, error) {
	return f()
}
