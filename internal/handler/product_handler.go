package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/credential"
	"github.com/hitoshi/storeadmin/internal/listing"
	"github.com/hitoshi/storeadmin/internal/middleware"
	"github.com/hitoshi/storeadmin/internal/model"
	"github.com/hitoshi/storeadmin/internal/product"
)

// ProductGatewayInterface は商品ハンドラーが必要とするゲートウェイインターフェース。
type ProductGatewayInterface interface {
	// Fetch はフィルタ状態に応じた優先順位（検索→カテゴリ→一覧）で商品を取得する。
	Fetch(ctx context.Context, params product.FetchParams, creds apiclient.Credentials) (*model.ProductList, error)
	// Get は商品1件を取得する。
	Get(ctx context.Context, id int, creds apiclient.Credentials) (*model.Product, error)
	// Create は商品を作成する。
	Create(ctx context.Context, input *model.ProductInput, creds apiclient.Credentials) (*model.Product, error)
	// Update は商品を部分更新する。
	Update(ctx context.Context, id int, patch *model.ProductPatch, creds apiclient.Credentials) (*model.Product, error)
	// Delete は商品を削除する。
	Delete(ctx context.Context, id int, creds apiclient.Credentials) error
	// Categories はカテゴリ一覧を取得する。
	Categories(ctx context.Context, creds apiclient.Credentials) ([]string, error)
}

// InputValidator は商品フォーム入力のバリデーションインターフェース。
type InputValidator interface {
	// ValidateInput はフィールド名→日本語メッセージのマップを返す。正常時は空。
	ValidateInput(input *model.ProductInput) map[string]string
}

// ProductHandler は商品管理APIのHTTPハンドラー。
// すべての操作をリモート商品APIへ中継する。
type ProductHandler struct {
	gateway   ProductGatewayInterface
	validator InputValidator
	cookieCfg credential.CookieConfig
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(gateway ProductGatewayInterface, validator InputValidator, cookieCfg credential.CookieConfig) *ProductHandler {
	return &ProductHandler{
		gateway:   gateway,
		validator: validator,
		cookieCfg: cookieCfg,
	}
}

// validationErrorResponse はバリデーション失敗時のレスポンス。
type validationErrorResponse struct {
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// List は商品一覧を返す。検索・カテゴリ・ページングはクエリパラメータで指定する。
// GET /api/products?q=&category=&page=&per_page=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	state := listing.ParseFilterState(r.URL.Query())

	list, err := h.gateway.Fetch(r.Context(), fetchParamsFromFilter(state), requestCredentials(r))
	if err != nil {
		writeServiceError(w, r, h.cookieCfg, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Get は商品詳細を返す。
// GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromRequest(w, r)
	if !ok {
		return
	}

	p, err := h.gateway.Get(r.Context(), id, requestCredentials(r))
	if err != nil {
		writeServiceError(w, r, h.cookieCfg, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// Categories はカテゴリ一覧を返す。
// GET /api/products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.gateway.Categories(r.Context(), requestCredentials(r))
	if err != nil {
		writeServiceError(w, r, h.cookieCfg, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(categories)
}

// Create は商品を作成する。バリデーション失敗時はフィールド別メッセージを返し、
// リモートAPIへの送信は行わない。
// POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input model.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	if fields := h.validator.ValidateInput(&input); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	created, err := h.gateway.Create(r.Context(), &input, requestCredentials(r))
	if err != nil {
		writeServiceError(w, r, h.cookieCfg, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// Update は商品を部分更新する。
// PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromRequest(w, r)
	if !ok {
		return
	}

	var patch model.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	updated, err := h.gateway.Update(r.Context(), id, &patch, requestCredentials(r))
	if err != nil {
		writeServiceError(w, r, h.cookieCfg, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// Delete は商品を削除する。
// DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.gateway.Delete(r.Context(), id, requestCredentials(r)); err != nil {
		writeServiceError(w, r, h.cookieCfg, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// productIDFromRequest はURLパラメータから商品IDを取り出す。
// 不正な場合はエラーレスポンスを書き込みfalseを返す。
func productIDFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("商品IDが不正です: "+raw))
		return 0, false
	}
	return id, true
}

// writeValidationError はフィールド別バリデーションエラーを書き込む。
func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(validationErrorResponse{
		Code:   model.ErrCodeValidationFailed,
		Fields: fields,
	})
}
