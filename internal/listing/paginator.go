package listing

// windowSize はページ番号ボタンの最大表示数。
const windowSize = 5

// Paginator は一覧のページング計算を提供する。
type Paginator struct {
	Total   int // 総件数
	Page    int // 現在ページ（1始まり、範囲内に丸め済み）
	PerPage int
}

// NewPaginator はPaginatorを生成する。ページは有効範囲に丸める。
func NewPaginator(total, page, perPage int) Paginator {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	p := Paginator{Total: total, Page: page, PerPage: perPage}
	if last := p.TotalPages(); page > last {
		p.Page = last
	}
	return p
}

// TotalPages は総ページ数を返す。0件でも最低1ページ。
func (p Paginator) TotalPages() int {
	if p.Total <= 0 {
		return 1
	}
	pages := (p.Total + p.PerPage - 1) / p.PerPage
	if pages < 1 {
		return 1
	}
	return pages
}

// Window は現在ページを中心とした最大5個のページ番号を返す。
// 端ではウィンドウを範囲内にずらす。
func (p Paginator) Window() []int {
	last := p.TotalPages()

	size := windowSize
	if last < size {
		size = last
	}

	start := p.Page - size/2
	if start < 1 {
		start = 1
	}
	if start+size-1 > last {
		start = last - size + 1
	}

	window := make([]int, size)
	for i := range window {
		window[i] = start + i
	}
	return window
}

// HasPrev は前ページの有無を返す。
func (p Paginator) HasPrev() bool {
	return p.Page > 1
}

// HasNext は次ページの有無を返す。
func (p Paginator) HasNext() bool {
	return p.Page < p.TotalPages()
}

// RowOrdinal はページ内インデックス（0始まり）の通し行番号を返す。
func (p Paginator) RowOrdinal(index int) int {
	return (p.Page-1)*p.PerPage + index + 1
}

// ShowingFrom は表示中の先頭件数（1始まり）を返す。0件なら0。
func (p Paginator) ShowingFrom() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.PerPage + 1
}

// ShowingTo は表示中の末尾件数を返す。
func (p Paginator) ShowingTo() int {
	to := p.Page * p.PerPage
	if to > p.Total {
		to = p.Total
	}
	return to
}
