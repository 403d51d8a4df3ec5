package credential

import "net/http"

// CookieConfig はCookieStoreが書き込むCookieの環境依存属性。
type CookieConfig struct {
	Secure bool
	Domain string
}

// CookieStore は1つのHTTPリクエスト/レスポンス対に束縛されたStore実装。
// 読み取りはリクエストCookieと同一リクエスト内の書き込みオーバーレイから行い、
// 書き込みはSet-Cookieヘッダーとして発行する。
// レスポンスライターがnilの場合（非対話的コンテキスト）、書き込み系は無言で
// no-opになる。読み取りは常に可能。
type CookieStore struct {
	r      *http.Request
	w      http.ResponseWriter
	config CookieConfig

	// 同一リクエスト内での書き込み・削除を読み取りに反映するオーバーレイ。
	written map[string]string
	removed map[string]bool
}

// NewCookieStore はリクエスト/レスポンス対に束縛されたCookieStoreを生成する。
// wにはnilを渡してよい（読み取り専用の非対話的コンテキスト）。
func NewCookieStore(w http.ResponseWriter, r *http.Request, config CookieConfig) *CookieStore {
	return &CookieStore{
		r:       r,
		w:       w,
		config:  config,
		written: make(map[string]string),
		removed: make(map[string]bool),
	}
}

// Set は名前付きクレデンシャルをSet-Cookieとして書き込む。
func (s *CookieStore) Set(name, value string, opts Options) {
	if s.w == nil {
		return
	}

	o := opts.normalize()
	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   s.config.Domain,
		MaxAge:   o.MaxAge,
		Secure:   *o.Secure && s.config.Secure,
		HttpOnly: *o.HttpOnly,
		SameSite: o.SameSite,
	})

	s.written[name] = value
	delete(s.removed, name)
}

// Get は保存された値を返す。同一リクエスト内の書き込みが優先される。
func (s *CookieStore) Get(name string) (string, bool) {
	if s.removed[name] {
		return "", false
	}
	if v, ok := s.written[name]; ok {
		return v, true
	}
	if s.r == nil {
		return "", false
	}
	c, err := s.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Remove は1つのクレデンシャルを失効Cookieの書き込みで削除する。
// 存在しない名前の削除はエラーにならない。
func (s *CookieStore) Remove(name string) {
	if s.w == nil {
		return
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   s.config.Domain,
		MaxAge:   -1,
		Secure:   s.config.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	s.removed[name] = true
	delete(s.written, name)
}

// RemoveAll は現在見えている全Cookieと既知クレデンシャル名を削除する。
// 列挙ベースの削除だけでは列挙後に追加されたCookieを取り逃がすため、
// 既知名リストを削除対象の下限として必ず含める。
func (s *CookieStore) RemoveAll() {
	if s.w == nil {
		return
	}

	seen := make(map[string]bool)

	if s.r != nil {
		for _, c := range s.r.Cookies() {
			seen[c.Name] = true
		}
	}
	for name := range s.written {
		seen[name] = true
	}
	for _, name := range KnownNames() {
		seen[name] = true
	}

	for name := range seen {
		s.Remove(name)
	}
}

// compile-time interface check
var _ Store = (*CookieStore)(nil)
