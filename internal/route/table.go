// Package route はメディアタイプ条件付きのルートテーブルとディスパッチャーを提供する。
//
// ルートテーブルは起動時に1回だけ構築され、以後は読み取り専用として
// 並行リクエストから参照される。
package route

import (
	"errors"
	"fmt"
	"net/http"
)

// Rule はメソッド・パスパターン・ハンドラーの組。
type Rule struct {
	Method  string
	Pattern string
	Handler HandlerFunc

	pattern pattern
}

// matches はメソッドとパスが一致すればパス変数を返す。
// GETのルールはHEADリクエストにも一致する。
func (rule *Rule) matches(r *http.Request) (map[string]string, bool) {
	if rule.Method != r.Method && !(rule.Method == http.MethodGet && r.Method == http.MethodHead) {
		return nil, false
	}
	return rule.pattern.match(r.URL.EscapedPath())
}

// Table はメディアタイプ条件と、登録順に評価されるルールの列。
// 最初に一致したルールが採用される（最長一致ではない）。
type Table struct {
	predicate Predicate
	rules     []Rule
}

// Predicate はテーブルの選択条件を返す。
func (t *Table) Predicate() Predicate {
	return t.predicate
}

// Rules は登録順のルールのコピーを返す。
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match は最初に一致したルールとパス変数を返す。
func (t *Table) Match(r *http.Request) (*Rule, map[string]string, bool) {
	for i := range t.rules {
		if vars, ok := t.rules[i].matches(r); ok {
			return &t.rules[i], vars, true
		}
	}
	return nil, nil, false
}

// Builder はTableを組み立てる。
// 同じプレフィックスを持つパターンは、より具体的なものを先に登録すること。
type Builder struct {
	predicate Predicate
	prefix    string
	rules     []Rule
	errs      []error
}

// NewTable はpredicateを条件とするテーブルのBuilderを返す。
func NewTable(predicate Predicate) *Builder {
	return &Builder{predicate: predicate}
}

// Get はGETルールを追加する。
func (b *Builder) Get(pattern string, h HandlerFunc) *Builder {
	return b.Handle(http.MethodGet, []string{pattern}, h)
}

// Post はPOSTルールを追加する。
func (b *Builder) Post(pattern string, h HandlerFunc) *Builder {
	return b.Handle(http.MethodPost, []string{pattern}, h)
}

// Handle は同じハンドラーに対する代替パターンを、それぞれ独立したルールとして追加する。
func (b *Builder) Handle(method string, patterns []string, h HandlerFunc) *Builder {
	if h == nil {
		b.errs = append(b.errs, fmt.Errorf("%s %v: nil handler", method, patterns))
		return b
	}
	for _, raw := range patterns {
		full := joinPattern(b.prefix, raw)
		p, err := parsePattern(full)
		if err != nil {
			b.errs = append(b.errs, err)
			continue
		}
		b.rules = append(b.rules, Rule{Method: method, Pattern: full, Handler: h, pattern: p})
	}
	return b
}

// Nest はprefix配下のルールをfnで追加する。ルールの順序はNestを呼んだ位置に挿入される。
func (b *Builder) Nest(prefix string, fn func(*Builder)) *Builder {
	child := &Builder{predicate: b.predicate, prefix: joinPattern(b.prefix, prefix)}
	fn(child)
	b.rules = append(b.rules, child.rules...)
	b.errs = append(b.errs, child.errs...)
	return b
}

// Build はイミュータブルなTableを返す。不正なパターンがあればエラーを返す。
func (b *Builder) Build() (*Table, error) {
	if b.predicate == nil {
		b.errs = append(b.errs, errors.New("route table requires a predicate"))
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}
	rules := make([]Rule, len(b.rules))
	copy(rules, b.rules)
	return &Table{predicate: b.predicate, rules: rules}, nil
}

// MustBuild はBuildに失敗した場合panicする。静的に定義したテーブル向け。
func (b *Builder) MustBuild() *Table {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}
