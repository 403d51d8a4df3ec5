// Package auth はリモート認証APIとの連携とセッション台帳の管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/model"
	"github.com/hitoshi/storeadmin/internal/repository"
)

// LoginRecorder はログイン結果とセッション破棄のメトリクスを記録する。
// metrics.Collector の部分集合として定義する。
type LoginRecorder interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordSessionTeardown()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// apiclient.Invalidator を実装し、401検出時のセッション破棄を担う。
type Service struct {
	client      *apiclient.Client
	sessionRepo repository.SessionRepository
	verifier    *RoleVerifier
	metrics     LoginRecorder
	logger      *slog.Logger
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	client *apiclient.Client,
	sessionRepo repository.SessionRepository,
	verifier *RoleVerifier,
	metrics LoginRecorder,
	logger *slog.Logger,
	config ServiceConfig,
) *Service {
	return &Service{
		client:      client,
		sessionRepo: sessionRepo,
		verifier:    verifier,
		metrics:     metrics,
		logger:      logger,
		config:      config,
	}
}

// Login はリモート認証APIへログインし、成功時にセッション行を記録する。
// 認証失敗（400/401相当）はINVALID_CREDENTIALSとして返す。
func (s *Service) Login(ctx context.Context, creds *model.LoginCredentials) (*model.AuthPayload, error) {
	var resp model.AuthResponse
	err := s.client.Post(ctx, "/auth/login", creds, &resp, apiclient.Credentials{})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}

		var reqErr *apiclient.RequestError
		if errors.As(err, &reqErr) && (reqErr.Status == 400 || reqErr.Status == 401) {
			s.logger.Warn("login rejected by upstream",
				slog.String("identity", creds.Identity),
				slog.Int("http_status", reqErr.Status),
			)
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, fmt.Errorf("ログイン要求に失敗しました: %w", err)
	}

	if !resp.Success || resp.Data.Token == "" {
		if s.metrics != nil {
			s.metrics.RecordLoginFailure()
		}
		return nil, model.NewInvalidCredentialsError()
	}

	payload := resp.Data

	// ロールJWTを検証してセッション台帳に記録する。検証失敗はロール空として続行。
	role := ""
	if s.verifier != nil {
		role = s.verifier.ExtractRole(payload.Role)
	}

	now := time.Now()
	session := &model.Session{
		ID:        uuid.New().String(),
		Identity:  creds.Identity,
		Role:      role,
		Token:     payload.Token,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		// 台帳の書き込み失敗はログインを妨げない（台帳は監査用）
		s.logger.Error("failed to record session",
			slog.String("identity", creds.Identity),
			slog.String("error", err.Error()),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordLoginSuccess()
	}
	s.logger.Info("user logged in",
		slog.String("identity", creds.Identity),
		slog.String("role", role),
	)

	return &payload, nil
}

// CurrentUser はリモート認証APIから現在の認証状態を取得する。
func (s *Service) CurrentUser(ctx context.Context, creds apiclient.Credentials) (*model.AuthPayload, error) {
	var resp model.AuthResponse
	if err := s.client.Get(ctx, "/auth/me", nil, &resp, creds); err != nil {
		return nil, fmt.Errorf("認証状態の取得に失敗しました: %w", err)
	}
	if !resp.Success {
		return nil, model.NewUnauthorizedError()
	}
	return &resp.Data, nil
}

// Logout はセッション台帳から行を削除する。冪等。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	s.logger.Info("user logged out")
	return nil
}

// Teardown は401検出時のセッション破棄を行う。apiclient.Invalidatorの実装。
// 台帳の削除失敗はログに残すのみで呼び出し元へは伝播しない。
func (s *Service) Teardown(ctx context.Context, token string) {
	if s.metrics != nil {
		s.metrics.RecordSessionTeardown()
	}

	if token == "" {
		return
	}

	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		s.logger.Error("failed to delete session on teardown",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Warn("session torn down after upstream 401")
}

// CleanupExpired は期限切れセッション行を削除する。ワーカーから定期実行される。
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("期限切れセッションの削除に失敗しました: %w", err)
	}

	if count > 0 {
		s.logger.Info("expired sessions cleaned up", slog.Int64("deleted_count", count))
	}
	return count, nil
}

// compile-time interface check
var _ apiclient.Invalidator = (*Service)(nil)
