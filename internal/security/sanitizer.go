// Package security は入力コンテンツの無害化を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はタスクのタイトル・説明文からHTMLを除去する。
// タスクは平文として扱うため、タグは許可せずすべて剥がす。
// 格納型XSSの侵入経路を永続化の手前で断つ。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストからすべてのHTMLタグを除去し、前後の空白を取り除く。
func (s *ContentSanitizer) SanitizeText(text string) string {
	return strings.TrimSpace(s.policy.Sanitize(text))
}
