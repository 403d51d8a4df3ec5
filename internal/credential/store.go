// Package credential はクライアント可視ストレージ（Cookie）に保存される
// 名前付きクレデンシャルの読み書きを提供する。
// グローバルなCookieアクセスではなく、リクエスト/レスポンス対に束縛された
// 明示的なStoreとして注入する。
package credential

import "net/http"

// 既知のクレデンシャル名。
// RemoveAllは列挙時点で見えているCookieに加えて必ずこのリストも削除する
// （列挙と書き込みの競合で消し漏れが起きないようにするための下限リスト）。
const (
	NameToken        = "token"
	NameAccess       = "access"
	NameAccessToken  = "accessToken"
	NameRefreshToken = "refreshToken"
)

// KnownNames は既知のクレデンシャル名の一覧を返す。
func KnownNames() []string {
	return []string{NameToken, NameAccess, NameAccessToken, NameRefreshToken}
}

// Options はクレデンシャル書き込み時のCookie属性を指定する。
// ゼロ値のフィールドにはデフォルトが適用される:
// MaxAge 604800秒（7日）、Path "/"、SameSite Strict。
// SecureとHttpOnlyは未指定（nil）の場合true。
type Options struct {
	MaxAge   int
	Path     string
	Secure   *bool
	HttpOnly *bool
	SameSite http.SameSite
}

// DefaultMaxAge はクレデンシャルCookieのデフォルト有効期間（秒）。
const DefaultMaxAge = 604800

// normalize はゼロ値フィールドへデフォルトを適用した設定を返す。
func (o Options) normalize() Options {
	if o.MaxAge == 0 {
		o.MaxAge = DefaultMaxAge
	}
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteStrictMode
	}
	if o.Secure == nil {
		t := true
		o.Secure = &t
	}
	if o.HttpOnly == nil {
		t := true
		o.HttpOnly = &t
	}
	return o
}

// Store は名前付きクレデンシャルの読み書きインターフェース。
// 実装はネットワーク呼び出しを行わない。
// 値が存在しないことは正常な結果でありエラーではない。
type Store interface {
	// Set は名前付きクレデンシャルを書き込む。
	// ストレージへ書き込めないコンテキスト（非対話的レンダリング等）では
	// 黙って何もしない。
	Set(name, value string, opts Options)
	// Get は保存された値を返す。存在しない場合はok=false。
	Get(name string) (value string, ok bool)
	// Remove は1つのクレデンシャルを削除する。冪等。
	Remove(name string)
	// RemoveAll は見えている全クレデンシャルと既知名リストを削除する。
	RemoveAll()
}
