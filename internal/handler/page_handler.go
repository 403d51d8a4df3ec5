package handler

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/credential"
	"github.com/hitoshi/storeadmin/internal/listing"
	"github.com/hitoshi/storeadmin/internal/model"
	"github.com/hitoshi/storeadmin/internal/product"
)

//go:embed templates/*.html
var templatesFS embed.FS

// PageHandler は管理画面のサーバーレンダリングを担当するHTTPハンドラー。
// レイアウトは最小限で、画面の構造（フィルタ・ページネーション・行番号・
// エラーパネル）のみを提供する。
type PageHandler struct {
	gateway   ProductGatewayInterface
	tmpl      *template.Template
	cookieCfg credential.CookieConfig
}

// NewPageHandler はテンプレートを読み込んだPageHandlerを生成する。
func NewPageHandler(gateway ProductGatewayInterface, cookieCfg credential.CookieConfig) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{
		gateway:   gateway,
		tmpl:      tmpl,
		cookieCfg: cookieCfg,
	}, nil
}

// productRow は一覧テーブルの1行。Ordinalは全件通しの行番号。
type productRow struct {
	Ordinal int
	Product model.Product
}

// pageLink はページネーションの1ボタン。
type pageLink struct {
	Number  int
	URL     string
	Current bool
}

// productsPageData は商品一覧ページのテンプレートデータ。
type productsPageData struct {
	Filter     listing.FilterState
	Paginator  listing.Paginator
	Rows       []productRow
	Categories []string
	Pages      []pageLink
	PrevURL    string // 先頭ページでは空
	NextURL    string // 末尾ページでは空
	Error      string

	PerPageChoices []int
}

// formPageData は商品フォームページのテンプレートデータ。
type formPageData struct {
	Product    *model.Product
	Categories []string
	IsEdit     bool
	Error      string
}

// LoginPage はログインページを表示する。
// GET /login?redirect=/products
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", map[string]string{
		"Redirect": sanitizeRedirect(r.URL.Query().Get("redirect")),
	})
}

// RegisterPage は登録ページ（シェル）を表示する。
// GET /register
func (h *PageHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "register.html", nil)
}

// ProductsPage は商品一覧ページを表示する。
// フィルタ状態はクエリパラメータが正である（URLが永続表現）。
// 取得失敗時はページ内エラーパネルに表示し、ページ自体は返す。
// GET /products?q=&category=&page=&per_page=
func (h *PageHandler) ProductsPage(w http.ResponseWriter, r *http.Request) {
	state := listing.ParseFilterState(r.URL.Query())
	creds := requestCredentials(r)

	data := productsPageData{
		Filter:         state,
		PerPageChoices: listing.PerPageChoices(),
	}

	list, err := h.gateway.Fetch(r.Context(), fetchParamsFromFilter(state), creds)
	if err != nil {
		if h.redirectIfUnauthorized(w, r, err) {
			return
		}
		data.Error = userFacingMessage(err)
		data.Paginator = listing.NewPaginator(0, state.Page, state.PerPage)
		h.render(w, "products.html", data)
		return
	}

	data.Paginator = listing.NewPaginator(list.Total, state.Page, state.PerPage)
	data.Rows = make([]productRow, 0, len(list.Products))
	for i, p := range list.Products {
		data.Rows = append(data.Rows, productRow{
			Ordinal: data.Paginator.RowOrdinal(i),
			Product: p,
		})
	}

	for _, n := range data.Paginator.Window() {
		data.Pages = append(data.Pages, pageLink{
			Number:  n,
			URL:     urlForPage(state, n),
			Current: n == data.Paginator.Page,
		})
	}
	if data.Paginator.HasPrev() {
		data.PrevURL = urlForPage(state, data.Paginator.Page-1)
	}
	if data.Paginator.HasNext() {
		data.NextURL = urlForPage(state, data.Paginator.Page+1)
	}

	// カテゴリ取得の失敗は一覧表示を妨げない。
	if categories, catErr := h.gateway.Categories(r.Context(), creds); catErr == nil {
		data.Categories = categories
	}

	h.render(w, "products.html", data)
}

// urlForPage はページ番号だけ差し替えた正規一覧URLを返す。
func urlForPage(state listing.FilterState, page int) string {
	state.Page = page
	return state.URL()
}

// ProductNewPage は商品作成フォームを表示する。
// GET /products/new
func (h *PageHandler) ProductNewPage(w http.ResponseWriter, r *http.Request) {
	data := formPageData{}
	if categories, err := h.gateway.Categories(r.Context(), requestCredentials(r)); err == nil {
		data.Categories = categories
	}
	h.render(w, "product_form.html", data)
}

// ProductEditPage は商品編集フォームを表示する。
// GET /products/{id}/edit
func (h *PageHandler) ProductEditPage(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromRequest(w, r)
	if !ok {
		return
	}

	creds := requestCredentials(r)
	data := formPageData{IsEdit: true}

	p, err := h.gateway.Get(r.Context(), id, creds)
	if err != nil {
		if h.redirectIfUnauthorized(w, r, err) {
			return
		}
		data.Error = userFacingMessage(err)
		h.render(w, "product_form.html", data)
		return
	}
	data.Product = p

	if categories, catErr := h.gateway.Categories(r.Context(), creds); catErr == nil {
		data.Categories = categories
	}

	h.render(w, "product_form.html", data)
}

// redirectIfUnauthorized はリモートAPIが401を返した場合に、
// 無効な資格情報Cookieを破棄してログインページへ誘導する。
// ガードを通過した後でセッションが失効しているケースに対応する。
func (h *PageHandler) redirectIfUnauthorized(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	credential.NewCookieStore(w, r, h.cookieCfg).RemoveAll()
	http.Redirect(w, r, "/login?redirect="+url.QueryEscape(r.URL.RequestURI()), http.StatusTemporaryRedirect)
	return true
}

// render はテンプレートを実行する。失敗時は500を返す。
func (h *PageHandler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("template execution failed",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// userFacingMessage はエラーからユーザー表示用メッセージを取り出す。
func userFacingMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "エラーが発生しました。しばらく待ってから再度お試しください。"
}

// fetchParamsFromFilter はフィルタ状態をゲートウェイの取得パラメータに変換する。
func fetchParamsFromFilter(state listing.FilterState) product.FetchParams {
	return product.FetchParams{
		Query:    state.Search,
		Category: state.Category,
		Limit:    state.PerPage,
		Skip:     state.Skip(),
	}
}
