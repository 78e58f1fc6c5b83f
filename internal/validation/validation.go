// Package validation はリクエストペイロードの宣言的バリデーションを提供する。
// フィールド制約をルールの集合として定義し、リクエストごとに1回評価する。
// 最初に違反したルールのメッセージをエラーとして返す。
// バリデーションは必ず永続化処理の前に実行され、失敗時はストア操作を一切行わない。
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Kahananghan/Taskflow/internal/model"
)

// emailPattern はメールアドレスの構文チェック用パターン。
// RFC完全準拠ではなく、local@domain.tld の形式を満たすことのみを検証する。
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Rule は1フィールドに対する制約を表す。
// Checkがfalseを返した場合、Messageがバリデーションエラーとして表面化する。
type Rule struct {
	Field   string
	Message string
	Check   func(value string) bool
}

// Schema は順序付きのルール集合。先頭から順に評価し、
// 最初に違反したルールで評価を打ち切る。
type Schema []Rule

// Validate は値の集合をスキーマに対して評価する。
// 全ルールを満たす場合はnilを返す。
func (s Schema) Validate(values map[string]string) *model.APIError {
	for _, rule := range s {
		if !rule.Check(values[rule.Field]) {
			return model.NewValidationError(rule.Message)
		}
	}
	return nil
}

// --- ルールコンストラクタ ---

// required は空でないことを要求するルールを返す。
func required(field, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			return strings.TrimSpace(v) != ""
		},
	}
}

// emailFormat はメールアドレス構文を要求するルールを返す。
func emailFormat(field, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			return emailPattern.MatchString(v)
		},
	}
}

// minLength は最小文字数を要求するルールを返す。
func minLength(field string, min int, message string) Rule {
	return Rule{
		Field:   field,
		Message: message,
		Check: func(v string) bool {
			return utf8.RuneCountInString(v) >= min
		},
	}
}

// --- スキーマ定義 ---

// signupSchema はサインアップペイロードの制約。
var signupSchema = Schema{
	emailFormat("email", "有効なメールアドレスを入力してください。"),
	minLength("name", 2, "名前は2文字以上で入力してください。"),
	minLength("password", 6, "パスワードは6文字以上で入力してください。"),
}

// signinSchema はサインインペイロードの制約。
var signinSchema = Schema{
	emailFormat("email", "有効なメールアドレスを入力してください。"),
	required("password", "パスワードを入力してください。"),
}

// taskSchema はタスク作成・更新ペイロードの制約。
var taskSchema = Schema{
	required("title", "タイトルを入力してください。"),
}

// SignupInput はバリデーション済みのサインアップ入力。
type SignupInput struct {
	Email    string
	Name     string
	Password string
}

// SigninInput はバリデーション済みのサインイン入力。
type SigninInput struct {
	Email    string
	Password string
}

// Signup はサインアップペイロードを検証し、型付きの入力を返す。
func Signup(email, name, password string) (*SignupInput, *model.APIError) {
	values := map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}
	if err := signupSchema.Validate(values); err != nil {
		return nil, err
	}
	return &SignupInput{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Name:     strings.TrimSpace(name),
		Password: password,
	}, nil
}

// Signin はサインインペイロードを検証し、型付きの入力を返す。
func Signin(email, password string) (*SigninInput, *model.APIError) {
	values := map[string]string{
		"email":    email,
		"password": password,
	}
	if err := signinSchema.Validate(values); err != nil {
		return nil, err
	}
	return &SigninInput{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}, nil
}

// TaskTitle はタスクのタイトル制約を検証する。
func TaskTitle(title string) *model.APIError {
	return taskSchema.Validate(map[string]string{"title": title})
}
