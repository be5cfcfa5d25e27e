package auth

import (
	"github.com/hitoshi/confsite/internal/model"
)

// Factory はプロバイダー名からStrategyを解決する。起動時に構築し、以後は読み取り専用。
type Factory struct {
	strategies map[string]Strategy
	names      []string
}

// NewFactory は与えられたStrategyでFactoryを生成する。
// 同名のStrategyが複数ある場合は後勝ち。
func NewFactory(strategies ...Strategy) *Factory {
	f := &Factory{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		if _, dup := f.strategies[s.Name()]; !dup {
			f.names = append(f.names, s.Name())
		}
		f.strategies[s.Name()] = s
	}
	return f
}

// Create はプロバイダー名に対応するStrategyを返す。
// 空文字や未知の名前は*model.UnsupportedProviderErrorを返す。
func (f *Factory) Create(provider string) (Strategy, error) {
	s, ok := f.strategies[provider]
	if !ok || provider == "" {
		return nil, &model.UnsupportedProviderError{Provider: provider}
	}
	return s, nil
}

// Providers は登録順のプロバイダー名一覧を返す。
func (f *Factory) Providers() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}
