// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Kahananghan/Taskflow/internal/model"
	"github.com/lib/pq"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はメール/パスワード登録のユーザーを作成する。
	// メールアドレス重複時はunique violationを含むエラーを返す（IsUniqueViolationで判定可能）。
	Create(ctx context.Context, user *model.User) error

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// 外部IdP経由の初回サインイン時に使用する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れの全セッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
// 変更系の操作は必ずタスクIDと所有ユーザーIDの両方を述語に含む
// 単一のアトミックなSQL文として実行する。所有権の事前確認と変更を
// 分けて実行してはならない（レース窓と存在漏洩を防ぐ）。
type TaskRepository interface {
	// Create は新規タスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// ListByUserID は指定ユーザーの全タスクをcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Task, error)

	// Update は(id, user_id)の両方が一致するタスクのフィールドを
	// 単一文で置き換え、更新後のタスクを返す。
	// 一致する行がない場合（未存在・他ユーザー所有のいずれでも）はnilを返す。
	Update(ctx context.Context, task *model.Task) (*model.Task, error)

	// Delete は(id, user_id)の両方が一致するタスクを単一文で削除する。
	// 削除した場合はtrue、一致する行がない場合はfalseを返す。冪等。
	Delete(ctx context.Context, userID, taskID string) (bool, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// IsUniqueViolation はPostgreSQLのunique制約違反かどうかを判定する。
// メールアドレス重複の検出に使用する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
