// Package render は埋め込みテンプレートによるHTMLビューの描画を提供する。
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/hitoshi/confsite/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutFile = "layout.html"

// Renderer は名前付きビューをレイアウトと組み合わせて描画する。
// テンプレートは起動時に1回だけ解析する。
type Renderer struct {
	views map[string]*template.Template
}

// New は埋め込みテンプレートからRendererを生成する。
func New() (*Renderer, error) {
	return NewFromFS(templatesFS, "templates")
}

// NewFromFS はfsysのdir配下のテンプレートからRendererを生成する。
// layout.html以外の各ファイルがファイル名（拡張子なし）のビューになる。
func NewFromFS(fsys fs.FS, dir string) (*Renderer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	layout := path.Join(dir, layoutFile)
	views := make(map[string]*template.Template)

	for _, e := range entries {
		if e.IsDir() || e.Name() == layoutFile || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".html")
		tmpl, err := template.New(layoutFile).Funcs(funcs).ParseFS(fsys, layout, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to parse view %q: %w", name, err)
		}
		views[name] = tmpl
	}

	return &Renderer{views: views}, nil
}

var funcs = template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// Render はビューをwに描画する。未知のビューや実行時エラーは*model.RenderingErrorを返す。
func (r *Renderer) Render(w io.Writer, name string, data map[string]any) error {
	tmpl, ok := r.views[name]
	if !ok {
		return &model.RenderingError{View: name, Err: fmt.Errorf("unknown view")}
	}
	if err := tmpl.ExecuteTemplate(w, layoutFile, data); err != nil {
		return &model.RenderingError{View: name, Err: err}
	}
	return nil
}

// Views は登録済みのビュー名を返す。
func (r *Renderer) Views() []string {
	names := make([]string, 0, len(r.views))
	for name := range r.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
