// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/credential"
	"github.com/hitoshi/storeadmin/internal/middleware"
	"github.com/hitoshi/storeadmin/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login はリモート認証APIへログインする。
	Login(ctx context.Context, creds *model.LoginCredentials) (*model.AuthPayload, error)
	// CurrentUser は現在のユーザー情報を取得する。
	CurrentUser(ctx context.Context, creds apiclient.Credentials) (*model.AuthPayload, error)
	// Logout はセッション台帳からセッションを削除する。
	Logout(ctx context.Context, token string) error
}

// ViewRemover はログアウト時にビュー状態を破棄するためのインターフェース。
type ViewRemover interface {
	Remove(token string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // クレデンシャルCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウト関連のHTTPハンドラー。
// 成功したログインはクレデンシャルCookie一式（token, access, accessToken）を
// 書き込み、ログアウトはそれらをすべて削除する。
type AuthHandler struct {
	service AuthServiceInterface
	views   ViewRemover
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
// viewsにはnilを渡してよい（ビュー状態管理を使わない構成）。
func NewAuthHandler(service AuthServiceInterface, views ViewRemover, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		views:   views,
		config:  config,
	}
}

// cookieConfig はCookieStore用の環境依存属性を返す。
func (h *AuthHandler) cookieConfig() credential.CookieConfig {
	return credential.CookieConfig{
		Secure: h.config.CookieSecure,
		Domain: h.config.CookieDomain,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Success  bool   `json:"success"`
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

// Login はログインを処理する。
// POST /api/auth/login?redirect=/products
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if req.Identity == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("IDとパスワードは必須です"))
		return
	}

	payload, err := h.service.Login(r.Context(), &model.LoginCredentials{
		Identity: req.Identity,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, h.cookieConfig(), err)
		return
	}

	// クレデンシャルCookie一式を書き込む。
	// accessTokenはRoute Guardが存在確認に使う名前。
	store := credential.NewCookieStore(w, r, h.cookieConfig())
	opts := credential.Options{MaxAge: h.config.SessionMaxAge}
	store.Set(credential.NameToken, payload.Token, opts)
	store.Set(credential.NameAccessToken, payload.Token, opts)
	if payload.Access != "" {
		store.Set(credential.NameAccess, payload.Access, opts)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Success:  true,
		Role:     payload.Role,
		Redirect: sanitizeRedirect(r.URL.Query().Get("redirect")),
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	creds := requestCredentials(r)
	if creds.Token == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	payload, err := h.service.CurrentUser(r.Context(), creds)
	if err != nil {
		writeServiceError(w, r, h.cookieConfig(), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"role":    payload.Role,
	})
}

// Logout はセッションを破棄しクレデンシャルCookieを全削除する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store := credential.NewCookieStore(w, r, h.cookieConfig())

	if token, ok := store.Get(credential.NameToken); ok && token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
		if h.views != nil {
			h.views.Remove(token)
		}
	}

	store.RemoveAll()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"success": true})
}

// requestCredentials はリクエストからリモートAPI呼び出し用クレデンシャルを組み立てる。
// 一次クレデンシャルはRoute Guardがコンテキストに注入した値を優先し、
// 直接Cookieからのフォールバックも許す（ガード対象外のパス用）。
func requestCredentials(r *http.Request) apiclient.Credentials {
	creds := apiclient.Credentials{}

	if token, err := middleware.CredentialFromContext(r.Context()); err == nil {
		creds.Token = token
	} else if c, cerr := r.Cookie(credential.NameToken); cerr == nil {
		creds.Token = c.Value
	}

	if c, err := r.Cookie(credential.NameAccess); err == nil {
		creds.Access = c.Value
	}

	return creds
}

// sanitizeRedirect はリダイレクト先をアプリ内パスに制限する。
// 外部URLやプロトコル相対URLはデフォルトの/productsに落とす。
func sanitizeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/products"
	}
	return target
}
