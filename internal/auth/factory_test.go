package auth

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hitoshi/confsite/internal/model"
)

func newTestFactory() *Factory {
	cfg := ProviderConfig{ClientID: "id", ClientSecret: "secret", BaseURL: "https://mixitconf.org"}
	return NewFactory(NewGoogleStrategy(cfg), NewGitHubStrategy(cfg))
}

func TestFactory_Create_KnownProviders(t *testing.T) {
	f := newTestFactory()

	for _, name := range []string{ProviderGoogle, ProviderGitHub} {
		t.Run(name, func(t *testing.T) {
			s, err := f.Create(name)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if s.Name() != name {
				t.Errorf("Name() = %q, want %q", s.Name(), name)
			}
		})
	}
}

func TestFactory_Create_UnknownProvider_ReturnsUnsupportedProviderError(t *testing.T) {
	f := newTestFactory()

	for _, name := range []string{"", "myspace", "Google", " google"} {
		t.Run(name, func(t *testing.T) {
			s, err := f.Create(name)

			var unsupported *model.UnsupportedProviderError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedProviderError, got %v", err)
			}
			if unsupported.Provider != name {
				t.Errorf("Provider = %q, want %q", unsupported.Provider, name)
			}
			if s != nil {
				t.Error("strategy must be nil on failure")
			}
		})
	}
}

func TestFactory_Providers_KeepsRegistrationOrder(t *testing.T) {
	f := newTestFactory()

	got := f.Providers()
	if want := []string{ProviderGoogle, ProviderGitHub}; !reflect.DeepEqual(got, want) {
		t.Errorf("Providers() = %v, want %v", got, want)
	}

	got[0] = "mutated"
	if f.Providers()[0] != ProviderGoogle {
		t.Error("Providers() should return a copy")
	}
}
