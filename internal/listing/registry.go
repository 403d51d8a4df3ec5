package listing

import (
	"sync"
	"time"
)

// defaultRegistryTTL はビュー状態を保持する最長アイドル時間。
const defaultRegistryTTL = 30 * time.Minute

// viewEntry はセッションごとのビュー状態とアクセス時刻を保持する。
type viewEntry struct {
	view       *ViewState
	lastAccess time.Time
}

// Registry はセッション（アクセストークン）ごとのビュー状態を管理する。
type Registry struct {
	mu       sync.Mutex
	views    map[string]*viewEntry
	debounce time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
}

// NewRegistry はRegistryを生成し、バックグラウンドで
// 期限切れエントリのクリーンアップを開始する。
func NewRegistry(debounce time.Duration) *Registry {
	r := &Registry{
		views:    make(map[string]*viewEntry),
		debounce: debounce,
		ttl:      defaultRegistryTTL,
		stopCh:   make(chan struct{}),
	}

	go r.cleanupLoop()

	return r
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (r *Registry) Stop() {
	close(r.stopCh)
}

// GetOrCreate はセッションのビュー状態を取得する。未登録なら新規作成する。
func (r *Registry) GetOrCreate(token string) *ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.views[token]; ok {
		entry.lastAccess = time.Now()
		return entry.view
	}

	view := NewViewState(r.debounce)
	r.views[token] = &viewEntry{
		view:       view,
		lastAccess: time.Now(),
	}
	return view
}

// Remove はセッションのビュー状態を破棄する。ログアウト時に呼ぶ。
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, token)
}

// Count は現在管理されているビュー状態の数を返す。テストおよびメトリクス用。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCh:
			return
		}
	}
}

// cleanup は最終アクセスからTTLを超えたエントリを削除する。
func (r *Registry) cleanup() {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for token, entry := range r.views {
		if now.Sub(entry.lastAccess) > r.ttl {
			delete(r.views, token)
		}
	}
}
