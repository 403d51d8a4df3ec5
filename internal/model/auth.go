package model

import "time"

// LoginCredentials はリモート認証APIへのログイン要求body。
type LoginCredentials struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

// AuthPayload はリモート認証APIが返す認証データ。
// tokenが一次クレデンシャル、accessが二次アクセス制御トークン。
// roleは共有シークレットで署名されたJWTであり、内容は不透明として扱う。
type AuthPayload struct {
	Role   string `json:"role"`
	Token  string `json:"token"`
	Access string `json:"access"`
}

// AuthResponse はリモート認証APIのレスポンス共通形。
// POST /auth/login と GET /auth/me の両方がこの形を返す。
type AuthResponse struct {
	Success bool        `json:"success"`
	Data    AuthPayload `json:"data"`
	Message string      `json:"message"`
}

// Session はログイン成功時にBFF側で記録するセッション行を表す。
// 失効・監査のためのサーバー側台帳であり、認可判定の主体はあくまで
// リモートAPIが検証するトークン。
type Session struct {
	ID        string
	Identity  string
	Role      string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
