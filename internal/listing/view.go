package listing

import (
	"strconv"
	"sync"
	"time"
)

// Phase は一覧ビューの状態機械のフェーズを表す。
type Phase int

const (
	// PhaseIdle は何も保留していない静止状態。
	PhaseIdle Phase = iota
	// PhasePendingSearch は検索キーワードのデバウンス待ち。
	PhasePendingSearch
	// PhaseNavigating はコミット済みURLへの遷移がまだ取得されていない状態。
	PhaseNavigating
)

// String はフェーズ名を返す。
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePendingSearch:
		return "pending_search"
	case PhaseNavigating:
		return "navigating"
	default:
		return "unknown(" + strconv.Itoa(int(p)) + ")"
	}
}

// ViewState は1セッション分の一覧ビュー状態機械。
// 検索キーワードはデバウンスされ、静止期間の経過後にコミットされる。
// それ以外の遷移（カテゴリ・表示件数・ページ）は即時コミットされる。
// コミットのたびに世代番号が単調増加し、古い世代の応答は破棄対象になる。
type ViewState struct {
	mu sync.Mutex

	debounce time.Duration
	filter   FilterState
	phase    Phase

	// timer は保留中の検索コミット用タイマー。常に最大1つ。
	timer         *time.Timer
	pendingSearch string

	generation   uint64
	committedURL string
}

// NewViewState はViewStateを生成する。初期状態は既定の絞り込みでIdle。
func NewViewState(debounce time.Duration) *ViewState {
	f := DefaultFilterState()
	return &ViewState{
		debounce:     debounce,
		filter:       f,
		phase:        PhaseIdle,
		committedURL: f.URL(),
	}
}

// SetSearch は検索キーワードの変更を受け付ける。
// 即時にはコミットせず、デバウンス期間の静止後にpage=1でコミットする。
// 期間内に再度呼ばれるとタイマーは破棄・再作成される。
func (v *ViewState) SetSearch(keyword string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelTimerLocked()
	v.pendingSearch = keyword
	v.phase = PhasePendingSearch

	v.timer = time.AfterFunc(v.debounce, v.commitPendingSearch)
}

// commitPendingSearch はデバウンス満了時に保留中の検索をコミットする。
func (v *ViewState) commitPendingSearch() {
	v.mu.Lock()
	defer v.mu.Unlock()

	// タイマー満了とキャンセルの競合: 保留中でなければ何もしない
	if v.phase != PhasePendingSearch {
		return
	}

	v.filter.Search = v.pendingSearch
	v.filter.Page = 1
	v.commitLocked()
}

// SetCategory はカテゴリ変更を即時コミットする。page=1に戻す。
// 保留中の検索は破棄される。
func (v *ViewState) SetCategory(category string) (string, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelTimerLocked()
	v.filter.Category = category
	v.filter.Page = 1
	v.commitLocked()
	return v.committedURL, v.generation
}

// SetPerPage は表示件数変更を即時コミットする。page=1に戻す。
// 許可リスト外の値は既定値に丸める。
func (v *ViewState) SetPerPage(perPage int) (string, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !isAllowedPerPage(perPage) {
		perPage = DefaultPerPage
	}

	v.cancelTimerLocked()
	v.filter.PerPage = perPage
	v.filter.Page = 1
	v.commitLocked()
	return v.committedURL, v.generation
}

// SetPage はページ遷移を即時コミットする。他の条件は変更しない。
func (v *ViewState) SetPage(page int) (string, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if page < 1 {
		page = 1
	}

	v.cancelTimerLocked()
	v.filter.Page = page
	v.commitLocked()
	return v.committedURL, v.generation
}

// Clear は絞り込みを既定状態に戻して即時コミットする。
func (v *ViewState) Clear() (string, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelTimerLocked()
	v.filter = DefaultFilterState()
	v.commitLocked()
	return v.committedURL, v.generation
}

// commitLocked は現在の絞り込みを正規URLとして確定し、世代を進める。
// 呼び出し側がロックを保持していること。
func (v *ViewState) commitLocked() {
	v.generation++
	v.committedURL = v.filter.URL()
	v.phase = PhaseNavigating
}

// cancelTimerLocked は保留中の検索タイマーを破棄する。
func (v *ViewState) cancelTimerLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.pendingSearch = ""
}

// Location は現在のコミット済みURLと世代を返す。
// 遷移中フェーズはポーリングされた時点でIdleに戻る。
func (v *ViewState) Location() (string, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.phase == PhaseNavigating {
		v.phase = PhaseIdle
	}
	return v.committedURL, v.generation
}

// Phase は現在のフェーズを返す。
func (v *ViewState) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Generation は現在の世代番号を返す。
func (v *ViewState) Generation() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation
}

// IsCurrent は世代番号が最新かを判定する。
// 古い世代に紐づく取得結果は描画せず破棄する。
func (v *ViewState) IsCurrent(generation uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return generation == v.generation
}

// Snapshot は現在の絞り込み状態のコピーを返す。
func (v *ViewState) Snapshot() FilterState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}
