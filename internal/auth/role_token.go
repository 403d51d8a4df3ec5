package auth

import (
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

// RoleVerifier は共有シークレットで署名されたロールJWTを検証する。
type RoleVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewRoleVerifier はRoleVerifierを生成する。
func NewRoleVerifier(secret string, logger *slog.Logger) *RoleVerifier {
	return &RoleVerifier{
		secret: []byte(secret),
		logger: logger,
	}
}

// roleClaims はロールJWTのクレーム。
type roleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ExtractRole はロールJWTを検証し、roleクレームを取り出す。
// 署名不正・形式不正の場合は空文字を返す（エラーにはしない）。
// ロールが取れないだけで画面遷移を壊さないための仕様。
func (v *RoleVerifier) ExtractRole(tokenString string) string {
	if tokenString == "" {
		return ""
	}

	var claims roleClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		v.logger.Warn("role token verification failed",
			slog.String("error", fmt.Sprintf("%v", err)),
		)
		return ""
	}

	return claims.Role
}
