// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Kahananghan/Taskflow/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// TokenVerifier はBearerトークン（APIトークン）の検証インターフェース。
// auth.Serviceが実装する。
type TokenVerifier interface {
	VerifyAPIToken(tokenString string) (userID string, err error)
}

// NewSessionMiddleware は認証ガードのミドルウェアを返す。
// HTTP Only Cookieのセッション、またはAuthorization: BearerのAPIトークンの
// いずれかで認証し、ユーザーIDをリクエストコンテキストに注入する。
// タスクの参照・変更操作は必ずこのガードを通過してから実行される。
// 未認証リクエストには401 Unauthorizedを返し、操作は実行されない。
//
// セッション解決時にusersテーブルは参照しない。sessions.user_idは
// ON DELETE CASCADEの外部キーで保護されており、削除済みユーザーを指す
// セッション行は存在し得ない。
func NewSessionMiddleware(sessionFinder SessionFinder, tokenVerifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Bearerトークンによる認証を試みる
			if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") && tokenVerifier != nil {
				token := strings.TrimPrefix(authz, "Bearer ")
				userID, err := tokenVerifier.VerifyAPIToken(token)
				if err != nil {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				ctx := context.WithValue(r.Context(), userIDContextKey, userID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// 2. CookieからセッションIDを取得
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 3. セッションの有効性を検証
			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if session == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// 4. 認証済みユーザーIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
