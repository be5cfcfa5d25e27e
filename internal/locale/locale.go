// Package locale はAccept-Languageヘッダーから表示ロケールを解決する。
package locale

import (
	"fmt"

	"golang.org/x/text/language"
)

// Resolver はサポート対象ロケールの中から最適なものを選ぶ。
// 解決は失敗せず、判定できない場合は既定ロケールを返す。
type Resolver struct {
	supported []language.Tag
	matcher   language.Matcher
}

// NewResolver はResolverを生成する。defaultLocaleは候補の先頭に置かれ、フォールバック先になる。
func NewResolver(defaultLocale string, locales []string) (*Resolver, error) {
	def, err := language.Parse(defaultLocale)
	if err != nil {
		return nil, fmt.Errorf("invalid default locale %q: %w", defaultLocale, err)
	}

	supported := []language.Tag{def}
	for _, l := range locales {
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", l, err)
		}
		if tag == def {
			continue
		}
		supported = append(supported, tag)
	}

	return &Resolver{
		supported: supported,
		matcher:   language.NewMatcher(supported),
	}, nil
}

// Resolve はAccept-Languageの値に最も合うロケールを返す。
func (r *Resolver) Resolve(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return r.supported[0]
	}

	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return r.supported[0]
	}

	_, index, confidence := r.matcher.Match(prefs...)
	if confidence == language.No {
		return r.supported[0]
	}
	return r.supported[index]
}

// Default は既定ロケールを返す。
func (r *Resolver) Default() language.Tag {
	return r.supported[0]
}
