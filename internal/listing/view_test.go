package listing

import (
	"testing"
	"time"
)

// テスト用の短いデバウンス期間。
const testDebounce = 30 * time.Millisecond

// waitForCommit はデバウンス満了とコミットを待つ。
func waitForCommit() {
	time.Sleep(testDebounce * 4)
}

func TestViewState_InitialState(t *testing.T) {
	v := NewViewState(testDebounce)

	if v.Phase() != PhaseIdle {
		t.Errorf("phase = %v, want idle", v.Phase())
	}

	url, gen := v.Location()
	if url != "/products" {
		t.Errorf("url = %q, want %q", url, "/products")
	}
	if gen != 0 {
		t.Errorf("generation = %d, want 0", gen)
	}
}

func TestViewState_SetSearch_DoesNotCommitImmediately(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetSearch("phone")

	if v.Phase() != PhasePendingSearch {
		t.Errorf("phase = %v, want pending_search", v.Phase())
	}

	// デバウンス満了前はURLは変わらない
	url, gen := v.Location()
	if url != "/products" {
		t.Errorf("url = %q, want unchanged %q", url, "/products")
	}
	if gen != 0 {
		t.Errorf("generation = %d, want 0 before debounce expiry", gen)
	}
}

func TestViewState_SetSearch_CommitsAfterQuiescence(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetSearch("phone")
	waitForCommit()

	url, gen := v.Location()
	if url != "/products?q=phone" {
		t.Errorf("url = %q, want %q", url, "/products?q=phone")
	}
	if gen != 1 {
		t.Errorf("generation = %d, want 1", gen)
	}
}

func TestViewState_SetSearch_RapidKeystrokes_OnlyLastCommits(t *testing.T) {
	v := NewViewState(testDebounce)

	// 高速タイプ: タイマーは都度破棄・再作成される
	v.SetSearch("p")
	v.SetSearch("ph")
	v.SetSearch("pho")
	v.SetSearch("phone")
	waitForCommit()

	url, gen := v.Location()
	if url != "/products?q=phone" {
		t.Errorf("url = %q, want %q (only final keystroke commits)", url, "/products?q=phone")
	}
	// コミットは1回だけ
	if gen != 1 {
		t.Errorf("generation = %d, want 1 (single commit)", gen)
	}
}

func TestViewState_SearchCommit_ResetsPageToOne(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetPage(5)
	v.SetSearch("laptop")
	waitForCommit()

	state := v.Snapshot()
	if state.Page != 1 {
		t.Errorf("page = %d, want 1 after search commit", state.Page)
	}
	if state.Search != "laptop" {
		t.Errorf("search = %q, want %q", state.Search, "laptop")
	}
}

func TestViewState_SetCategory_CommitsImmediatelyWithPageReset(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetPage(3)
	url, gen := v.SetCategory("beauty")

	if url != "/products?category=beauty" {
		t.Errorf("url = %q, want %q", url, "/products?category=beauty")
	}
	if gen != 2 {
		t.Errorf("generation = %d, want 2", gen)
	}
}

func TestViewState_SetPerPage_CommitsImmediatelyWithPageReset(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetPage(4)
	url, _ := v.SetPerPage(50)

	if url != "/products?per_page=50" {
		t.Errorf("url = %q, want %q (page reset to 1)", url, "/products?per_page=50")
	}
}

func TestViewState_SetPerPage_InvalidValueFallsBackToDefault(t *testing.T) {
	v := NewViewState(testDebounce)

	url, _ := v.SetPerPage(25)

	if url != "/products" {
		t.Errorf("url = %q, want %q (default per_page omitted)", url, "/products")
	}
}

func TestViewState_SetPage_LeavesOtherFiltersUntouched(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetCategory("laptops")
	url, _ := v.SetPage(3)

	if url != "/products?category=laptops&page=3" {
		t.Errorf("url = %q, want %q", url, "/products?category=laptops&page=3")
	}
}

func TestViewState_ImmediateTransition_CancelsPendingSearch(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetSearch("pho")
	v.SetCategory("smartphones") // 保留中の検索は破棄される
	waitForCommit()

	state := v.Snapshot()
	if state.Search != "" {
		t.Errorf("search = %q, want empty (pending search discarded)", state.Search)
	}
	if state.Category != "smartphones" {
		t.Errorf("category = %q, want %q", state.Category, "smartphones")
	}

	// 破棄済み検索が後からコミットされないこと
	url, _ := v.Location()
	if url != "/products?category=smartphones" {
		t.Errorf("url = %q, want %q", url, "/products?category=smartphones")
	}
}

func TestViewState_Clear_ResetsToDefaults(t *testing.T) {
	v := NewViewState(testDebounce)

	v.SetCategory("beauty")
	v.SetPage(3)
	url, _ := v.Clear()

	if url != "/products" {
		t.Errorf("url = %q, want %q", url, "/products")
	}
}

func TestViewState_GenerationIsMonotonic(t *testing.T) {
	v := NewViewState(testDebounce)

	_, gen1 := v.SetCategory("a")
	_, gen2 := v.SetPage(2)
	_, gen3 := v.SetPerPage(20)

	if !(gen1 < gen2 && gen2 < gen3) {
		t.Errorf("generations should be monotonic: %d, %d, %d", gen1, gen2, gen3)
	}
}

func TestViewState_StaleGenerationIsDiscarded(t *testing.T) {
	v := NewViewState(testDebounce)

	// 取得開始時点の世代を記録
	_, staleGen := v.SetCategory("laptops")

	// 応答が返る前に次の遷移が発生
	_, currentGen := v.SetPage(2)

	// 古い世代の応答は破棄対象
	if v.IsCurrent(staleGen) {
		t.Error("stale generation should not be current")
	}
	if !v.IsCurrent(currentGen) {
		t.Error("latest generation should be current")
	}
}

func TestViewState_PhaseTransitions(t *testing.T) {
	v := NewViewState(testDebounce)

	if v.Phase() != PhaseIdle {
		t.Fatalf("initial phase = %v, want idle", v.Phase())
	}

	v.SetSearch("x")
	if v.Phase() != PhasePendingSearch {
		t.Errorf("phase after SetSearch = %v, want pending_search", v.Phase())
	}

	waitForCommit()
	if v.Phase() != PhaseNavigating {
		t.Errorf("phase after commit = %v, want navigating", v.Phase())
	}

	v.Location()
	if v.Phase() != PhaseIdle {
		t.Errorf("phase after poll = %v, want idle", v.Phase())
	}
}

// --- Registry ---

func TestRegistry_GetOrCreate_ReturnsSameViewPerToken(t *testing.T) {
	r := NewRegistry(testDebounce)
	defer r.Stop()

	v1 := r.GetOrCreate("token-a")
	v2 := r.GetOrCreate("token-a")
	v3 := r.GetOrCreate("token-b")

	if v1 != v2 {
		t.Error("same token should return the same view state")
	}
	if v1 == v3 {
		t.Error("different tokens should have isolated view states")
	}
	if r.Count() != 2 {
		t.Errorf("count = %d, want 2", r.Count())
	}
}

func TestRegistry_Remove_DropsViewState(t *testing.T) {
	r := NewRegistry(testDebounce)
	defer r.Stop()

	v1 := r.GetOrCreate("token-a")
	v1.SetCategory("beauty")

	r.Remove("token-a")

	// 再取得すると初期状態から始まる
	v2 := r.GetOrCreate("token-a")
	if state := v2.Snapshot(); state.Category != "" {
		t.Errorf("category = %q, want empty after removal", state.Category)
	}
}
