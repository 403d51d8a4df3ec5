package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/storeadmin/internal/listing"
	"github.com/hitoshi/storeadmin/internal/middleware"
	"github.com/hitoshi/storeadmin/internal/model"
)

// ViewProvider はセッション単位のビュー状態を提供するインターフェース。
type ViewProvider interface {
	GetOrCreate(token string) *listing.ViewState
}

// ViewHandler は一覧ページのフィルタ状態マシンを駆動するHTTPハンドラー。
// 検索イベントはデバウンスされるため202を即答し、確定したURLは次の
// locationポーリングで取得される。即時確定するイベントは確定URLを直接返す。
type ViewHandler struct {
	views ViewProvider
}

// NewViewHandler はViewHandlerを生成する。
func NewViewHandler(views ViewProvider) *ViewHandler {
	return &ViewHandler{views: views}
}

// フィルタイベント種別。
const (
	eventSearch   = "search"
	eventCategory = "category"
	eventPerPage  = "per_page"
	eventPage     = "page"
	eventClear    = "clear"
)

// filterEventRequest はフィルタイベントのボディ。
// Valueは常に文字列で受け、数値イベントはハンドラー側で解釈する。
type filterEventRequest struct {
	Event string `json:"event"`
	Value string `json:"value"`
}

// commitResponse は確定したフィルタ状態のレスポンス。
type commitResponse struct {
	URL        string `json:"url"`
	Generation uint64 `json:"generation"`
}

// FilterEvent はフィルタ操作イベントを処理する。
// POST /api/view/filter
func (h *ViewHandler) FilterEvent(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.CredentialFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req filterEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	view := h.views.GetOrCreate(token)

	var (
		url        string
		generation uint64
	)

	switch req.Event {
	case eventSearch:
		// デバウンスにより非同期で確定する。確定URLはlocationポーリングで拾う。
		view.SetSearch(req.Value)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
		return
	case eventCategory:
		url, generation = view.SetCategory(req.Value)
	case eventPerPage:
		n, convErr := strconv.Atoi(req.Value)
		if convErr != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("per_pageの値が不正です: "+req.Value))
			return
		}
		url, generation = view.SetPerPage(n)
	case eventPage:
		n, convErr := strconv.Atoi(req.Value)
		if convErr != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("pageの値が不正です: "+req.Value))
			return
		}
		url, generation = view.SetPage(n)
	case eventClear:
		url, generation = view.Clear()
	default:
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("未知のイベントです: "+req.Event))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commitResponse{URL: url, Generation: generation})
}

// Location は最新の確定済み一覧URLを返す。
// クライアントは既知の世代番号をgenerationクエリで渡し、
// それより新しい確定がない場合は204を受け取る（古い応答の破棄）。
// GET /api/view/location?generation=N
func (h *ViewHandler) Location(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.CredentialFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	view := h.views.GetOrCreate(token)
	url, generation := view.Location()

	if url == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if raw := r.URL.Query().Get("generation"); raw != "" {
		known, convErr := strconv.ParseUint(raw, 10, 64)
		if convErr == nil && generation <= known {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commitResponse{URL: url, Generation: generation})
}
