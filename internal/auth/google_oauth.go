package auth

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"
)

// ProviderGoogle はGoogleプロバイダー名。
const ProviderGoogle = "google"

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleUserInfo はGoogleのユーザー情報エンドポイントのレスポンス。
type googleUserInfo struct {
	Sub string `json:"sub"`
}

// NewGoogleStrategy はGoogle OAuth 2.0のStrategyを生成する。
// 外部IDにはuserinfoのsubを使用する。
func NewGoogleStrategy(cfg ProviderConfig) Strategy {
	return newOAuthStrategy(
		ProviderGoogle,
		endpoints.Google,
		defaultGoogleUserInfoURL,
		[]string{"openid", "email", "profile"},
		cfg,
		func(body []byte) (string, error) {
			var info googleUserInfo
			if err := json.Unmarshal(body, &info); err != nil {
				return "", err
			}
			return info.Sub, nil
		},
	)
}
