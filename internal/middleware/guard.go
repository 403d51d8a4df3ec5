// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/hitoshi/storeadmin/internal/credential"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// credentialContextKey はリクエストコンテキストにアクセストークンを格納するためのキー。
var credentialContextKey = contextKey("access_token")

// GuardConfig はルートガードの設定を保持する。
type GuardConfig struct {
	// ProtectedPrefixes は認証必須のページパスのプレフィックス。
	ProtectedPrefixes []string
	// AuthRoutes は認証済みユーザーを追い返すページパス（完全一致）。
	AuthRoutes []string
	// APIPrefix は未認証時に401 JSONを返すパスのプレフィックス。
	APIPrefix string
	// APIExemptPrefix はAPIPrefix配下でも未認証アクセスを許可するプレフィックス。
	APIExemptPrefix string
	// LoginPath は未認証リダイレクトの遷移先。
	LoginPath string
	// HomePath は認証済みユーザーをAuthRoutesから追い返す遷移先。
	HomePath string
}

// DefaultGuardConfig はデフォルトのルートガード設定を返す。
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		ProtectedPrefixes: []string{"/products", "/profile", "/dashboard"},
		AuthRoutes:        []string{"/login", "/register"},
		APIPrefix:         "/api/",
		APIExemptPrefix:   "/api/auth/",
		LoginPath:         "/login",
		HomePath:          "/products",
	}
}

// staticExtensions はガード評価から除外する静的アセットの拡張子。
var staticExtensions = map[string]bool{
	".css":  true,
	".js":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".webp": true,
	".ico":  true,
	".map":  true,
}

// infrastructurePaths はガード評価から除外するパス。
var infrastructurePaths = map[string]bool{
	"/health":      true,
	"/healthcheck": true,
	"/metrics":     true,
	"/favicon.ico": true,
}

// NewRouteGuardMiddleware はアクセストークンCookieの有無でページ遷移とAPI
// アクセスを制御するミドルウェアを返す。
// 評価順序:
//  1. 保護対象プレフィックス + Cookieなし → /login?redirect=<元パス> へ307
//  2. 認証ルート（完全一致） + Cookieあり → HomePathへ307
//  3. APIプレフィックス（認可除外を除く） + Cookieなし → 401 JSON
//  4. それ以外は素通し
//
// 最初に一致したルールで判定が確定する。静的アセットとインフラパスは
// 評価対象外。
func NewRouteGuardMiddleware(config GuardConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path

			if isExcludedPath(p) {
				next.ServeHTTP(w, r)
				return
			}

			token := readAccessToken(r)
			authenticated := token != ""

			// 認証済みの場合はトークンをコンテキストに注入する
			if authenticated {
				r = r.WithContext(ContextWithCredential(r.Context(), token))
			}

			// 1. 保護対象ページ: 未認証ならログインへリダイレクト
			if hasAnyPrefix(p, config.ProtectedPrefixes) {
				if !authenticated {
					redirectURL := config.LoginPath + "?redirect=" + url.QueryEscape(p)
					http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// 2. 認証ルート: 認証済みならホームへリダイレクト
			for _, route := range config.AuthRoutes {
				if p == route {
					if authenticated {
						http.Redirect(w, r, config.HomePath, http.StatusTemporaryRedirect)
						return
					}
					next.ServeHTTP(w, r)
					return
				}
			}

			// 3. API: 未認証なら401 JSON（認可除外プレフィックスを除く）
			if strings.HasPrefix(p, config.APIPrefix) && !strings.HasPrefix(p, config.APIExemptPrefix) {
				if !authenticated {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Unauthorized",
					})
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// 4. 素通し
			next.ServeHTTP(w, r)
		})
	}
}

// isExcludedPath は静的アセットとインフラパスを判定する。
func isExcludedPath(p string) bool {
	if infrastructurePaths[p] {
		return true
	}
	if strings.HasPrefix(p, "/static/") {
		return true
	}
	return staticExtensions[strings.ToLower(path.Ext(p))]
}

// readAccessToken はリクエストからアクセストークンCookieを読み取る。
func readAccessToken(r *http.Request) string {
	cookie, err := r.Cookie(credential.NameAccessToken)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// hasAnyPrefix はパスがいずれかのプレフィックスで始まるかを判定する。
func hasAnyPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// CredentialFromContext はリクエストコンテキストからアクセストークンを取得する。
// ルートガードを通過した認証済みリクエストでのみ有効。
func CredentialFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(credentialContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("access token not found in context")
	}
	return token, nil
}

// ContextWithCredential はコンテキストにアクセストークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialContextKey, token)
}
