package product

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/storeadmin/internal/model"
)

// fieldLabels はフォームフィールドの日本語表示名。
var fieldLabels = map[string]string{
	"Title":              "タイトル",
	"Description":        "説明",
	"Price":              "価格",
	"DiscountPercentage": "割引率",
	"Rating":             "評価",
	"Stock":              "在庫数",
	"Brand":              "ブランド",
	"Category":           "カテゴリ",
	"Thumbnail":          "サムネイルURL",
}

// Validator は商品フォーム入力の宣言的バリデーションを提供する。
type Validator struct {
	validate *validator.Validate
}

// NewValidator はValidatorの新しいインスタンスを生成する。
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateInput は商品作成フォームの入力を検証する。
// 不正なフィールドがある場合、フィールドのJSON名をキーとする
// 日本語メッセージのマップを返す。全フィールドが妥当ならnilを返す。
func (v *Validator) ValidateInput(input *model.ProductInput) map[string]string {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_form": "入力内容を確認してください"}
	}

	messages := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		messages[jsonFieldName(fe.Field())] = japaneseMessage(fe)
	}
	return messages
}

// jsonFieldName は構造体フィールド名をJSONフィールド名に変換する。
func jsonFieldName(field string) string {
	switch field {
	case "Title":
		return "title"
	case "Description":
		return "description"
	case "Price":
		return "price"
	case "DiscountPercentage":
		return "discountPercentage"
	case "Rating":
		return "rating"
	case "Stock":
		return "stock"
	case "Brand":
		return "brand"
	case "Category":
		return "category"
	case "Thumbnail":
		return "thumbnail"
	default:
		return field
	}
}

// japaneseMessage はバリデーションエラーを日本語メッセージに変換する。
func japaneseMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sは必須です", label)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%sは%s文字以上で入力してください", label, fe.Param())
		}
		return fmt.Sprintf("%sは%s以上で入力してください", label, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%sは%s文字以内で入力してください", label, fe.Param())
		}
		return fmt.Sprintf("%sは%s以下で入力してください", label, fe.Param())
	case "url":
		return fmt.Sprintf("%sは有効なURLを入力してください", label)
	default:
		return fmt.Sprintf("%sの値が不正です", label)
	}
}
