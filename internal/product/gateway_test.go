package product

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/hitoshi/storeadmin/internal/apiclient"
	"github.com/hitoshi/storeadmin/internal/model"
)

// mockAPIClient はAPIClientのモック。
type mockAPIClient struct {
	getFn    func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error
	postFn   func(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error
	putFn    func(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error
	deleteFn func(ctx context.Context, path string, out any, creds apiclient.Credentials) error
}

func (m *mockAPIClient) Get(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
	if m.getFn != nil {
		return m.getFn(ctx, path, query, out, creds)
	}
	return nil
}

func (m *mockAPIClient) Post(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error {
	if m.postFn != nil {
		return m.postFn(ctx, path, body, out, creds)
	}
	return nil
}

func (m *mockAPIClient) Put(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error {
	if m.putFn != nil {
		return m.putFn(ctx, path, body, out, creds)
	}
	return nil
}

func (m *mockAPIClient) Delete(ctx context.Context, path string, out any, creds apiclient.Credentials) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, path, out, creds)
	}
	return nil
}

// passthroughSanitizer は入力をそのまま返すサニタイザー。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string { return raw }

// markingSanitizer はサニタイズ呼び出しを可視化するサニタイザー。
type markingSanitizer struct{}

func (markingSanitizer) Sanitize(raw string) string { return "clean:" + raw }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func fillList(out any, products ...model.Product) {
	list := out.(*model.ProductList)
	list.Products = products
	list.Total = len(products)
}

// --- Fetch の優先順位 ---

func TestGateway_Fetch_SearchTakesPrecedenceOverCategory(t *testing.T) {
	var calledPath string
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			calledPath = path
			if query.Get("q") != "phone" {
				t.Errorf("q = %q, want %q", query.Get("q"), "phone")
			}
			fillList(out)
			return nil
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	params := FetchParams{Query: "phone", Category: "smartphones", Limit: 10, Skip: 0}
	if _, err := g.Fetch(context.Background(), params, apiclient.Credentials{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calledPath != "/products/search" {
		t.Errorf("path = %q, want %q (search wins over category)", calledPath, "/products/search")
	}
}

func TestGateway_Fetch_CategoryWhenNoQuery(t *testing.T) {
	var calledPath string
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			calledPath = path
			fillList(out)
			return nil
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	params := FetchParams{Category: "laptops", Limit: 10}
	if _, err := g.Fetch(context.Background(), params, apiclient.Credentials{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calledPath != "/products/category/laptops" {
		t.Errorf("path = %q, want %q", calledPath, "/products/category/laptops")
	}
}

func TestGateway_Fetch_PlainListWhenNoFilters(t *testing.T) {
	var calledPath string
	var gotQuery url.Values
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			calledPath = path
			gotQuery = query
			fillList(out)
			return nil
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	params := FetchParams{Limit: 20, Skip: 40}
	if _, err := g.Fetch(context.Background(), params, apiclient.Credentials{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calledPath != "/products" {
		t.Errorf("path = %q, want %q", calledPath, "/products")
	}
	if gotQuery.Get("limit") != "20" {
		t.Errorf("limit = %q, want %q", gotQuery.Get("limit"), "20")
	}
	if gotQuery.Get("skip") != "40" {
		t.Errorf("skip = %q, want %q", gotQuery.Get("skip"), "40")
	}
}

// --- サニタイズ ---

func TestGateway_List_SanitizesDescriptions(t *testing.T) {
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			fillList(out,
				model.Product{ID: 1, Title: "A", Description: "desc-a"},
				model.Product{ID: 2, Title: "B", Description: "desc-b"},
			)
			return nil
		},
	}

	g := NewGateway(client, markingSanitizer{}, testLogger())

	list, err := g.List(context.Background(), 10, 0, apiclient.Credentials{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, p := range list.Products {
		if p.Description[:6] != "clean:" {
			t.Errorf("product %d description not sanitized: %q", i, p.Description)
		}
		if p.Title[:6] != "clean:" {
			t.Errorf("product %d title not sanitized: %q", i, p.Title)
		}
	}
}

// --- Get と404マッピング ---

func TestGateway_Get_ReturnsProduct(t *testing.T) {
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			if path != "/products/42" {
				t.Errorf("path = %q, want %q", path, "/products/42")
			}
			p := out.(*model.Product)
			p.ID = 42
			p.Title = "iPhone 15"
			return nil
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	p, err := g.Get(context.Background(), 42, apiclient.Credentials{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 42 {
		t.Errorf("id = %d, want 42", p.ID)
	}
}

func TestGateway_Get_NotFound_ReturnsProductNotFoundError(t *testing.T) {
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			return &apiclient.RequestError{Message: "not found", Status: 404}
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	_, err := g.Get(context.Background(), 999, apiclient.Credentials{})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != "PRODUCT_NOT_FOUND" {
		t.Errorf("code = %q, want %q", apiErr.Code, "PRODUCT_NOT_FOUND")
	}
}

// --- Create / Update / Delete ---

func TestGateway_Create_PostsToAddEndpoint(t *testing.T) {
	var calledPath string
	client := &mockAPIClient{
		postFn: func(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error {
			calledPath = path
			p := out.(*model.Product)
			p.ID = 101
			return nil
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	input := &model.ProductInput{Title: "New Product", Description: "A new product here", Category: "misc"}
	created, err := g.Create(context.Background(), input, apiclient.Credentials{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calledPath != "/products/add" {
		t.Errorf("path = %q, want %q", calledPath, "/products/add")
	}
	if created.ID != 101 {
		t.Errorf("id = %d, want 101", created.ID)
	}
}

func TestGateway_Update_PutsToProductPath(t *testing.T) {
	var calledPath string
	client := &mockAPIClient{
		putFn: func(ctx context.Context, path string, body any, out any, creds apiclient.Credentials) error {
			calledPath = path
			patch := body.(*model.ProductPatch)
			if patch.Title == nil || *patch.Title != "Updated" {
				t.Error("expected title in patch body")
			}
			return nil
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	title := "Updated"
	if _, err := g.Update(context.Background(), 7, &model.ProductPatch{Title: &title}, apiclient.Credentials{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calledPath != "/products/7" {
		t.Errorf("path = %q, want %q", calledPath, "/products/7")
	}
}

func TestGateway_Delete_NotFound_ReturnsProductNotFoundError(t *testing.T) {
	client := &mockAPIClient{
		deleteFn: func(ctx context.Context, path string, out any, creds apiclient.Credentials) error {
			return &apiclient.RequestError{Message: "gone", Status: 404}
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	err := g.Delete(context.Background(), 5, apiclient.Credentials{})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != "PRODUCT_NOT_FOUND" {
		t.Errorf("code = %q, want %q", apiErr.Code, "PRODUCT_NOT_FOUND")
	}
}

// --- エラー伝播 ---

func TestGateway_List_WrapsUpstreamError(t *testing.T) {
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			return &apiclient.RequestError{Message: "server blew up", Status: 500}
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	_, err := g.List(context.Background(), 10, 0, apiclient.Credentials{})
	if err == nil {
		t.Fatal("expected error")
	}

	var reqErr *apiclient.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatal("expected wrapped *apiclient.RequestError")
	}
	if reqErr.Status != 500 {
		t.Errorf("status = %d, want 500", reqErr.Status)
	}
}

func TestGateway_Unauthorized_PropagatesSentinel(t *testing.T) {
	client := &mockAPIClient{
		getFn: func(ctx context.Context, path string, query url.Values, out any, creds apiclient.Credentials) error {
			return &apiclient.RequestError{
				Message: "auth expired",
				Status:  401,
				Err:     apiclient.ErrUnauthorized,
			}
		},
	}

	g := NewGateway(client, passthroughSanitizer{}, testLogger())

	_, err := g.List(context.Background(), 10, 0, apiclient.Credentials{Token: "stale"})
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized to propagate, got %v", err)
	}
}
