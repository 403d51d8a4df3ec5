// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はリモート商品APIから取得した説明文などの
// テキストをサニタイズし、XSS攻撃からユーザーを保護する。
// 商品データは第三者APIが所有しており信頼できないため、
// レンダリング前に必ずサニタイズを通す。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグとイベント属性を除去したテキストを返す。
	// 商品説明はプレーンテキストとして扱うため、許可タグは一切ない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグを除去し、テキストのみを通過させる。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLを除去したテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
