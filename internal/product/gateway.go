// Package product はリモート商品APIへのゲートウェイを提供する。
// 一覧・検索・カテゴリ絞り込みの取得優先順位と、表示前の
// 説明文サニタイズをここで一元化する。
package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/model"
)

// APIClient はゲートウェイが必要とするリモートAPI呼び出しのインターフェース。
// apiclient.Client の部分集合として定義する。
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error
	Post(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error
	Put(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error
	Delete(ctx context.Context, path string, out any, creds apiclient.Credentials) error
}

// Sanitizer はHTMLサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// Gateway はリモート商品APIのゲートウェイサービス。
type Gateway struct {
	client    APIClient
	sanitizer Sanitizer
	logger    *slog.Logger
}

// NewGateway はGatewayの新しいインスタンスを生成する。
func NewGateway(client APIClient, sanitizer Sanitizer, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:    client,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// FetchParams は一覧取得の条件を表す。
type FetchParams struct {
	Query    string // 検索キーワード
	Category string // カテゴリ絞り込み
	Limit    int
	Skip     int
}

// Fetch は条件に応じた商品一覧を取得する。
// 優先順位: 検索キーワード > カテゴリ > 通常一覧。検索がある場合は
// カテゴリを無視する。
func (g *Gateway) Fetch(ctx context.Context, params FetchParams, creds apiclient.Credentials) (*model.ProductList, error) {
	switch {
	case params.Query != "":
		return g.Search(ctx, params.Query, params.Limit, params.Skip, creds)
	case params.Category != "":
		return g.ByCategory(ctx, params.Category, params.Limit, params.Skip, creds)
	default:
		return g.List(ctx, params.Limit, params.Skip, creds)
	}
}

// List は商品一覧を取得する。
func (g *Gateway) List(ctx context.Context, limit, skip int, creds apiclient.Credentials) (*model.ProductList, error) {
	var list model.ProductList
	if err := g.client.Get(ctx, "/products", pageQuery(limit, skip), &list, creds); err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}

	g.sanitizeList(&list)
	return &list, nil
}

// Search はキーワードで商品を検索する。
func (g *Gateway) Search(ctx context.Context, keyword string, limit, skip int, creds apiclient.Credentials) (*model.ProductList, error) {
	query := pageQuery(limit, skip)
	query.Set("q", keyword)

	var list model.ProductList
	if err := g.client.Get(ctx, "/products/search", query, &list, creds); err != nil {
		return nil, fmt.Errorf("商品検索に失敗しました: %w", err)
	}

	g.sanitizeList(&list)
	return &list, nil
}

// ByCategory はカテゴリで商品を絞り込む。
func (g *Gateway) ByCategory(ctx context.Context, category string, limit, skip int, creds apiclient.Credentials) (*model.ProductList, error) {
	var list model.ProductList
	path := "/products/category/" + url.PathEscape(category)
	if err := g.client.Get(ctx, path, pageQuery(limit, skip), &list, creds); err != nil {
		return nil, fmt.Errorf("カテゴリ別商品の取得に失敗しました: %w", err)
	}

	g.sanitizeList(&list)
	return &list, nil
}

// Categories はカテゴリ一覧を取得する。
func (g *Gateway) Categories(ctx context.Context, creds apiclient.Credentials) ([]string, error) {
	var categories []string
	if err := g.client.Get(ctx, "/products/category-list", nil, &categories, creds); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// Get は商品をIDで取得する。存在しない場合はPRODUCT_NOT_FOUNDを返す。
func (g *Gateway) Get(ctx context.Context, id int, creds apiclient.Credentials) (*model.Product, error) {
	var p model.Product
	if err := g.client.Get(ctx, "/products/"+strconv.Itoa(id), nil, &p, creds); err != nil {
		if isNotFound(err) {
			return nil, model.NewProductNotFoundError(id)
		}
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}

	g.sanitizeProduct(&p)
	return &p, nil
}

// Create は商品を新規作成する。
func (g *Gateway) Create(ctx context.Context, input *model.ProductInput, creds apiclient.Credentials) (*model.Product, error) {
	var created model.Product
	if err := g.client.Post(ctx, "/products/add", input, &created, creds); err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}

	g.sanitizeProduct(&created)
	g.logger.Info("product created",
		slog.Int("product_id", created.ID),
		slog.String("title", created.Title),
	)
	return &created, nil
}

// Update は商品を部分更新する。nilフィールドは変更されない。
func (g *Gateway) Update(ctx context.Context, id int, patch *model.ProductPatch, creds apiclient.Credentials) (*model.Product, error) {
	var updated model.Product
	if err := g.client.Put(ctx, "/products/"+strconv.Itoa(id), patch, &updated, creds); err != nil {
		if isNotFound(err) {
			return nil, model.NewProductNotFoundError(id)
		}
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}

	g.sanitizeProduct(&updated)
	g.logger.Info("product updated", slog.Int("product_id", id))
	return &updated, nil
}

// Delete は商品を削除する。
func (g *Gateway) Delete(ctx context.Context, id int, creds apiclient.Credentials) error {
	if err := g.client.Delete(ctx, "/products/"+strconv.Itoa(id), nil, creds); err != nil {
		if isNotFound(err) {
			return model.NewProductNotFoundError(id)
		}
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}

	g.logger.Info("product deleted", slog.Int("product_id", id))
	return nil
}

// sanitizeList は一覧内の全商品の説明文をサニタイズする。
func (g *Gateway) sanitizeList(list *model.ProductList) {
	for i := range list.Products {
		g.sanitizeProduct(&list.Products[i])
	}
}

// sanitizeProduct は表示前に説明文とタイトルをサニタイズする。
func (g *Gateway) sanitizeProduct(p *model.Product) {
	if g.sanitizer == nil {
		return
	}
	p.Title = g.sanitizer.Sanitize(p.Title)
	p.Description = g.sanitizer.Sanitize(p.Description)
}

// pageQuery はlimit/skipのページングクエリを構築する。
func pageQuery(limit, skip int) url.Values {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if skip > 0 {
		query.Set("skip", strconv.Itoa(skip))
	}
	return query
}

// isNotFound はリモートAPIの404レスポンスを判定する。
func isNotFound(err error) bool {
	var reqErr *apiclient.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Status == 404
	}
	return false
}
