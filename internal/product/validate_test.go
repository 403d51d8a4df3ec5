package product

import (
	"strings"
	"testing"

	"github.com/hitoshi/storeadmin/internal/model"
)

func validInput() *model.ProductInput {
	return &model.ProductInput{
		Title:              "iPhone 15 Pro",
		Description:        "最新のスマートフォンです。大画面で高性能。",
		Price:              999.99,
		DiscountPercentage: 10,
		Rating:             4.5,
		Stock:              25,
		Brand:              "Apple",
		Category:           "smartphones",
	}
}

func TestValidator_ValidInput_ReturnsNil(t *testing.T) {
	v := NewValidator()

	if messages := v.ValidateInput(validInput()); messages != nil {
		t.Errorf("expected nil for valid input, got %v", messages)
	}
}

func TestValidator_FreeProduct_PriceZeroIsValid(t *testing.T) {
	v := NewValidator()

	input := validInput()
	input.Price = 0

	if messages := v.ValidateInput(input); messages != nil {
		t.Errorf("price 0 should be valid, got %v", messages)
	}
}

func TestValidator_InvalidFields_ReturnJapaneseMessages(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.ProductInput)
		field    string
		contains string
	}{
		{"empty title", func(p *model.ProductInput) { p.Title = "" }, "title", "必須"},
		{"short title", func(p *model.ProductInput) { p.Title = "ab" }, "title", "3文字以上"},
		{"long title", func(p *model.ProductInput) { p.Title = strings.Repeat("あ", 101) }, "title", "100文字以内"},
		{"empty description", func(p *model.ProductInput) { p.Description = "" }, "description", "必須"},
		{"short description", func(p *model.ProductInput) { p.Description = "too short" }, "description", "10文字以上"},
		{"negative price", func(p *model.ProductInput) { p.Price = -1 }, "price", "0以上"},
		{"discount over 100", func(p *model.ProductInput) { p.DiscountPercentage = 101 }, "discountPercentage", "100以下"},
		{"rating over 5", func(p *model.ProductInput) { p.Rating = 5.1 }, "rating", "5以下"},
		{"negative stock", func(p *model.ProductInput) { p.Stock = -5 }, "stock", "0以上"},
		{"long brand", func(p *model.ProductInput) { p.Brand = strings.Repeat("x", 51) }, "brand", "50文字以内"},
		{"empty category", func(p *model.ProductInput) { p.Category = "" }, "category", "必須"},
		{"invalid thumbnail", func(p *model.ProductInput) { p.Thumbnail = "not-a-url" }, "thumbnail", "URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()

			input := validInput()
			tt.mutate(input)

			messages := v.ValidateInput(input)
			if messages == nil {
				t.Fatal("expected validation messages")
			}

			msg, ok := messages[tt.field]
			if !ok {
				t.Fatalf("expected message for field %q, got %v", tt.field, messages)
			}
			if !strings.Contains(msg, tt.contains) {
				t.Errorf("message for %q = %q, should contain %q", tt.field, msg, tt.contains)
			}
		})
	}
}

func TestValidator_MultipleInvalidFields_AllReported(t *testing.T) {
	v := NewValidator()

	input := validInput()
	input.Title = ""
	input.Description = ""
	input.Category = ""

	messages := v.ValidateInput(input)
	if messages == nil {
		t.Fatal("expected validation messages")
	}

	for _, field := range []string{"title", "description", "category"} {
		if _, ok := messages[field]; !ok {
			t.Errorf("expected message for field %q", field)
		}
	}
}

func TestValidator_BoundaryValues_AreValid(t *testing.T) {
	v := NewValidator()

	input := validInput()
	input.Title = strings.Repeat("a", 3)                // 下限ちょうど
	input.Description = strings.Repeat("b", 10)         // 下限ちょうど
	input.DiscountPercentage = 100                      // 上限ちょうど
	input.Rating = 5                                    // 上限ちょうど
	input.Stock = 0                                     // 下限ちょうど
	input.Brand = strings.Repeat("c", 50)               // 上限ちょうど
	input.Category = strings.Repeat("d", 50)            // 上限ちょうど
	input.Thumbnail = "https://example.com/img.png"

	if messages := v.ValidateInput(input); messages != nil {
		t.Errorf("boundary values should be valid, got %v", messages)
	}
}
