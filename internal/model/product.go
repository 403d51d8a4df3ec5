// Package model はドメインモデルを定義する。
package model

// Product はリモート商品APIが所有する商品エンティティを表す。
// 本システムは取得・表示・編集送信のみを行い、永続化はリモートAPI側の責務。
type Product struct {
	ID                 int     `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Price              float64 `json:"price"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Rating             float64 `json:"rating"`
	Stock              int     `json:"stock"`
	Brand              string  `json:"brand"`
	Category           string  `json:"category"`
	Thumbnail          string  `json:"thumbnail"`
}

// ProductList はリモート商品APIの一覧レスポンスを表す。
type ProductList struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
	Skip     int       `json:"skip"`
	Limit    int       `json:"limit"`
}

// ProductInput は商品作成フォームの入力を表す。
// バリデーションルールは validator タグで宣言する。
type ProductInput struct {
	Title              string  `json:"title" validate:"required,min=3,max=100"`
	Description        string  `json:"description" validate:"required,min=10,max=500"`
	Price              float64 `json:"price" validate:"min=0"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"min=0,max=100"`
	Rating             float64 `json:"rating" validate:"min=0,max=5"`
	Stock              int     `json:"stock" validate:"min=0"`
	Brand              string  `json:"brand" validate:"max=50"`
	Category           string  `json:"category" validate:"required,max=50"`
	Thumbnail          string  `json:"thumbnail" validate:"omitempty,url"`
}

// ProductPatch は商品更新の部分ボディを表す。
// nilフィールドは変更しない。
type ProductPatch struct {
	Title              *string  `json:"title,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Price              *float64 `json:"price,omitempty"`
	DiscountPercentage *float64 `json:"discountPercentage,omitempty"`
	Rating             *float64 `json:"rating,omitempty"`
	Stock              *int     `json:"stock,omitempty"`
	Brand              *string  `json:"brand,omitempty"`
	Category           *string  `json:"category,omitempty"`
	Thumbnail          *string  `json:"thumbnail,omitempty"`
}
