package auth

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"
)

// ProviderGitHub はGitHubプロバイダー名。
const ProviderGitHub = "github"

const defaultGitHubUserInfoURL = "https://api.github.com/user"

// githubUser はGitHubの /user レスポンス。idは数値で返る。
type githubUser struct {
	ID json.Number `json:"id"`
}

// NewGitHubStrategy はGitHub OAuthのStrategyを生成する。
func NewGitHubStrategy(cfg ProviderConfig) Strategy {
	return newOAuthStrategy(
		ProviderGitHub,
		endpoints.GitHub,
		defaultGitHubUserInfoURL,
		[]string{"read:user"},
		cfg,
		func(body []byte) (string, error) {
			var u githubUser
			if err := json.Unmarshal(body, &u); err != nil {
				return "", err
			}
			return u.ID.String(), nil
		},
	)
}
