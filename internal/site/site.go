// Package site は会議サイトの公開ページとレガシーURLのルートテーブルを提供する。
package site

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/hitoshi/confsite/internal/route"
)

// Topics はトークの分類。年ごとの一覧に対するリテラルルートとして登録される。
var Topics = []string{"makers", "aliens", "tech", "design", "hacktivism", "learn"}

// Contributor はWebサイトのページルートを提供する。
type Contributor struct {
	years []int
}

// compile-time interface check
var _ route.Contributor = (*Contributor)(nil)

// NewContributor は開催年の一覧からContributorを生成する。
func NewContributor(years []int) *Contributor {
	return &Contributor{years: slices.Clone(years)}
}

// Tables はHTMLページのテーブルを返す。
// 年ごとのルートは起動時に一度だけ展開され、トピックのリテラルは
// スラッグ変数より先に登録される。
func (c *Contributor) Tables() ([]*route.Table, error) {
	b := route.NewTable(route.Accept("text/html")).
		Get("/", page("home")).
		Get("/about", page("about")).
		Get("/news", page("news")).
		Get("/ticketing", page("ticketing"))

	for _, year := range c.years {
		prefix := fmt.Sprintf("/%d", year)
		b.Get(prefix, talksView(year, ""))
		for _, topic := range Topics {
			b.Get(prefix+"/"+topic, talksView(year, topic))
		}
		b.Get(prefix+"/{slug}", talkView(year))
	}

	b.Handle(http.MethodGet, []string{"/user/{login}", "/sponsor/{login}"}, userView).
		Get("/sponsors", page("sponsors")).
		Nest("/blog", func(b *route.Builder) {
			b.Get("/", page("blog"))
			b.Get("/{slug}", postView)
		})

	table, err := b.Build()
	if err != nil {
		return nil, err
	}
	return []*route.Table{table}, nil
}

// page はモデルを持たない静的なページを描画する。
func page(name string) route.HandlerFunc {
	return func(req *route.Request) (route.Result, error) {
		return route.Render(name, nil), nil
	}
}

func talksView(year int, topic string) route.HandlerFunc {
	return func(req *route.Request) (route.Result, error) {
		return route.Render("talks", map[string]any{
			"year":   year,
			"topic":  topic,
			"topics": Topics,
		}), nil
	}
}

func talkView(year int) route.HandlerFunc {
	return func(req *route.Request) (route.Result, error) {
		return route.Render("talk", map[string]any{
			"year": year,
			"slug": req.Var("slug"),
		}), nil
	}
}

func userView(req *route.Request) (route.Result, error) {
	return route.Render("user", map[string]any{"login": req.Var("login")}), nil
}

func postView(req *route.Request) (route.Result, error) {
	return route.Render("post", map[string]any{"slug": req.Var("slug")}), nil
}

// Redirects は旧サイトのURLを現在のページへ恒久リダイレクトする。
type Redirects struct {
	baseURI string
	years   []int
}

// compile-time interface check
var _ route.Contributor = (*Redirects)(nil)

// NewRedirects はRedirectsを生成する。リダイレクト先はbaseURIからの絶対URL。
func NewRedirects(baseURI string, years []int) *Redirects {
	return &Redirects{baseURI: strings.TrimRight(baseURI, "/"), years: slices.Clone(years)}
}

// Tables はレガシーURLのテーブルを返す。リダイレクトはAcceptを問わず適用する。
func (rd *Redirects) Tables() ([]*route.Table, error) {
	b := route.NewTable(route.Any()).
		Get("/articles/", rd.to("/blog"))

	for _, year := range rd.years {
		b.Get(fmt.Sprintf("/%d/", year), rd.to(fmt.Sprintf("/%d", year)))
	}

	b.Handle(http.MethodGet, []string{
		"/member/{login}",
		"/profile/{login}",
		"/member/sponsor/{login}",
		"/member/member/{login}",
	}, rd.toUser).
		Get("/sponsors/", rd.to("/sponsors")).
		Get("/about/", rd.to("/about"))

	table, err := b.Build()
	if err != nil {
		return nil, err
	}
	return []*route.Table{table}, nil
}

func (rd *Redirects) to(path string) route.HandlerFunc {
	location := rd.baseURI + path
	return func(req *route.Request) (route.Result, error) {
		return route.PermanentRedirect(location), nil
	}
}

func (rd *Redirects) toUser(req *route.Request) (route.Result, error) {
	return route.PermanentRedirect(rd.baseURI + "/user/" + url.PathEscape(req.Var("login"))), nil
}
