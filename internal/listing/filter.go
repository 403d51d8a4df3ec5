// Package listing は商品一覧の絞り込み・ページング状態を管理する。
// URLクエリが状態の正であり、構造体はその解釈結果にすぎない。
package listing

import (
	"net/url"
	"strconv"
)

// DefaultPerPage は1ページあたりの既定表示件数。
const DefaultPerPage = 10

// allowedPerPage は選択可能な表示件数。
var allowedPerPage = []int{10, 20, 30, 50}

// PerPageChoices は選択可能な表示件数の一覧を返す。
func PerPageChoices() []int {
	return append([]int(nil), allowedPerPage...)
}

// FilterState は一覧画面の絞り込み条件を表す。
type FilterState struct {
	Search   string
	Category string
	Page     int // 1始まり
	PerPage  int // {10, 20, 30, 50}のいずれか
}

// DefaultFilterState は既定の絞り込み状態を返す。
func DefaultFilterState() FilterState {
	return FilterState{Page: 1, PerPage: DefaultPerPage}
}

// ParseFilterState はURLクエリから絞り込み状態を解釈する。
// 不正な値は既定値に丸める（page>=1、per_pageは許可リスト内のみ）。
func ParseFilterState(query url.Values) FilterState {
	state := DefaultFilterState()

	state.Search = query.Get("q")
	state.Category = query.Get("category")

	if page, err := strconv.Atoi(query.Get("page")); err == nil && page >= 1 {
		state.Page = page
	}

	if perPage, err := strconv.Atoi(query.Get("per_page")); err == nil && isAllowedPerPage(perPage) {
		state.PerPage = perPage
	}

	return state
}

// Encode は絞り込み状態をURLクエリに変換する。空の値は省略し、
// 既定値（page=1、per_page=10）も省略して正規形を保つ。
func (f FilterState) Encode() url.Values {
	query := url.Values{}

	if f.Search != "" {
		query.Set("q", f.Search)
	}
	if f.Category != "" {
		query.Set("category", f.Category)
	}
	if f.Page > 1 {
		query.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage != DefaultPerPage && isAllowedPerPage(f.PerPage) {
		query.Set("per_page", strconv.Itoa(f.PerPage))
	}

	return query
}

// URL は一覧ページの正規URLを返す。
func (f FilterState) URL() string {
	encoded := f.Encode().Encode()
	if encoded == "" {
		return "/products"
	}
	return "/products?" + encoded
}

// Skip はリモートAPIに渡すオフセットを返す。
func (f FilterState) Skip() int {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

// isAllowedPerPage は表示件数が許可リストに含まれるかを判定する。
func isAllowedPerPage(n int) bool {
	for _, allowed := range allowedPerPage {
		if n == allowed {
			return true
		}
	}
	return false
}
