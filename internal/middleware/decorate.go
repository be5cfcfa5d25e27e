package middleware

import (
	"strings"

	"github.com/hitoshi/confsite/internal/locale"
	"github.com/hitoshi/confsite/internal/route"
	"github.com/hitoshi/confsite/internal/session"
)

// モデル装飾で追加される属性のキー
const (
	AttrBaseURI  = "baseUri"
	AttrPath     = "path"
	AttrURI      = "uri"
	AttrLocale   = "locale"
	AttrLang     = "lang"
	AttrSession  = "session"
	AttrUsername = "username"
)

// NewModelDecorator はディスパッチ全体を包み、描画対象のViewにのみ
// リクエスト文脈（ロケール・パス・ベースURI・セッション）を追加するフィルターを返す。
// Redirect・Statusやエラーはそのまま通す。
func NewModelDecorator(baseURI string, locales *locale.Resolver) route.Filter {
	baseURI = strings.TrimRight(baseURI, "/")

	return func(req *route.Request, next route.HandlerFunc) (route.Result, error) {
		path := req.HTTP.URL.Path
		tag := locales.Resolve(req.HTTP.Header.Get("Accept-Language"))

		result, err := next(req)
		if err != nil {
			return nil, err
		}

		view, ok := result.(*route.View)
		if !ok {
			return result, nil
		}

		// セッションはハンドラーによる変更を反映するため実行後に読む
		snapshot := map[string]string{}
		if req.Session != nil {
			snapshot = req.Session.Snapshot()
		}

		base, _ := tag.Base()
		attrs := map[string]any{
			AttrBaseURI: baseURI,
			AttrPath:    path,
			AttrURI:     baseURI + path,
			AttrLocale:  tag.String(),
			AttrLang:    base.String(),
			AttrSession: snapshot,
		}
		if username, ok := snapshot[session.KeyUsername]; ok {
			attrs[AttrUsername] = username
		}

		return view.WithAttributes(attrs), nil
	}
}
