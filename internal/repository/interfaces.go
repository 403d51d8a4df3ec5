// Package repository はデータ永続化層のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/hitoshi/storeadmin/internal/model"
)

// SessionRepository はログインセッション台帳の永続化インターフェース。
type SessionRepository interface {
	// Create はセッション行を作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByToken は一次クレデンシャルに対応する有効なセッションを返す。
	// 期限切れ・不存在の場合はnilを返す（エラーではない）。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByToken は一次クレデンシャルに対応するセッションを削除する。冪等。
	DeleteByToken(ctx context.Context, token string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
