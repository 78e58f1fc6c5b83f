package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kahananghan/Taskflow/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*model.User, error)
	createFn             func(ctx context.Context, user *model.User) error
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

type mockIdentityRepo struct {
	findFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findFn != nil {
		return m.findFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
	deleteExpiredFn  func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, errors.New("not implemented")
}

func newTestService(userRepo *mockUserRepo, identRepo *mockIdentityRepo, sessionRepo *mockSessionRepo, oauth *mockOAuthProvider) *Service {
	if userRepo == nil {
		userRepo = &mockUserRepo{}
	}
	if identRepo == nil {
		identRepo = &mockIdentityRepo{}
	}
	if sessionRepo == nil {
		sessionRepo = &mockSessionRepo{}
	}
	if oauth == nil {
		oauth = &mockOAuthProvider{}
	}
	return NewService(oauth, userRepo, identRepo, sessionRepo, ServiceConfig{
		SessionMaxAge: 3600,
		TokenSecret:   "test-secret",
		TokenTTL:      time.Hour,
	})
}

func bcryptHash(t *testing.T, password string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	s := string(hash)
	return &s
}

// --- Signup ---

func TestService_Signup_Success(t *testing.T) {
	var createdUser *model.User
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := newTestService(userRepo, nil, sessionRepo, nil)
	user, session, err := svc.Signup(context.Background(), "Alice@Example.com", "Alice", "secret99")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	// メールアドレスは小文字に正規化される
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", user.Email, "alice@example.com")
	}
	if user.Name != "Alice" {
		t.Errorf("name = %q, want %q", user.Name, "Alice")
	}
	if createdUser == nil {
		t.Fatal("user should be persisted")
	}

	// パスワードは平文で保存されない
	if createdUser.PasswordHash == nil {
		t.Fatal("password hash should be set")
	}
	if *createdUser.PasswordHash == "secret99" {
		t.Error("password must not be stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*createdUser.PasswordHash), []byte("secret99")); err != nil {
		t.Errorf("stored hash should verify against original password: %v", err)
	}

	if createdSession == nil {
		t.Fatal("session should be persisted")
	}
	if session.UserID != user.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, user.ID)
	}
}

func TestService_Signup_ValidationFailure(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		userName string
		password string
	}{
		{"不正なメールアドレス", "not-an-email", "Alice", "secret99"},
		{"名前が短すぎる", "alice@example.com", "A", "secret99"},
		{"パスワードが短すぎる", "alice@example.com", "Alice", "12345"},
	}

	svc := newTestService(&mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			t.Error("user should not be persisted when validation fails")
			return nil
		},
	}, nil, nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Signup(context.Background(), tt.email, tt.userName, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
			}
		})
	}
}

// メールアドレス重複がEMAIL_TAKENにマップされることを検証
func TestService_Signup_DuplicateEmail(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return &pq.Error{Code: "23505"}
		},
	}

	svc := newTestService(userRepo, nil, nil, nil)
	_, _, err := svc.Signup(context.Background(), "alice@example.com", "Alice", "secret99")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEmailTaken {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEmailTaken)
	}
}

// --- Signin ---

func TestService_Signin_Success(t *testing.T) {
	hash := bcryptHash(t, "secret99")
	userRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email != "alice@example.com" {
				t.Errorf("lookup email = %q, want normalized %q", email, "alice@example.com")
			}
			return &model.User{ID: "user-1", Email: email, Name: "Alice", PasswordHash: hash}, nil
		},
	}

	svc := newTestService(userRepo, nil, nil, nil)
	user, session, err := svc.Signin(context.Background(), "Alice@Example.COM", "secret99")
	if err != nil {
		t.Fatalf("Signin() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
	if session == nil || session.UserID != "user-1" {
		t.Errorf("session should be issued for user-1, got %+v", session)
	}
}

// 未登録・パスワード不一致・パスワード未設定が同一のエラーになることを検証
func TestService_Signin_InvalidCredentials(t *testing.T) {
	hash := bcryptHash(t, "secret99")

	tests := []struct {
		name string
		user *model.User
		pass string
	}{
		{"ユーザーが存在しない", nil, "secret99"},
		{"パスワード不一致", &model.User{ID: "user-1", PasswordHash: hash}, "wrong-pass"},
		{"外部IdP専用アカウント", &model.User{ID: "user-1", PasswordHash: nil}, "secret99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
					return tt.user, nil
				},
			}
			svc := newTestService(userRepo, nil, nil, nil)

			_, _, err := svc.Signin(context.Background(), "alice@example.com", tt.pass)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidCredentials {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
			}
			// どのケースでも同一メッセージを返し、存在の有無を漏らさない
			if apiErr.Message != "Invalid credentials" {
				t.Errorf("message = %q, want %q", apiErr.Message, "Invalid credentials")
			}
		})
	}
}

func TestService_Signin_EmptyPassword(t *testing.T) {
	svc := newTestService(&mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			t.Error("repository should not be queried when validation fails")
			return nil, nil
		},
	}, nil, nil, nil)

	_, _, err := svc.Signin(context.Background(), "alice@example.com", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
}

// --- OAuthコールバック ---

func TestService_HandleCallback_NewUser(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{
				ProviderUserID: "google-sub-1",
				Email:          "bob@gmail.com",
				Name:           "Bob",
				Provider:       "google",
			}, nil
		},
	}

	var createdUser *model.User
	var createdIdentity *model.Identity
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}

	svc := newTestService(userRepo, nil, nil, oauth)
	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if createdUser == nil || createdIdentity == nil {
		t.Fatal("user and identity should be created for first-time OAuth signin")
	}
	// OAuth経由のアカウントはパスワードを持たない
	if createdUser.PasswordHash != nil {
		t.Error("OAuth account should not have a password hash")
	}
	if createdIdentity.Provider != "google" || createdIdentity.ProviderUserID != "google-sub-1" {
		t.Errorf("identity = %+v", createdIdentity)
	}
	if session.UserID != createdUser.ID {
		t.Errorf("session.UserID = %q, want %q", session.UserID, createdUser.ID)
	}
}

func TestService_HandleCallback_ExistingUser(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return &OAuthUserInfo{ProviderUserID: "google-sub-1", Email: "bob@gmail.com", Name: "Bob", Provider: "google"}, nil
		},
	}
	identRepo := &mockIdentityRepo{
		findFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", UserID: "user-7", Provider: provider, ProviderUserID: providerUserID}, nil
		},
	}
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			t.Error("existing user should not be re-created")
			return nil
		},
	}

	svc := newTestService(userRepo, identRepo, nil, oauth)
	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session.UserID != "user-7" {
		t.Errorf("session.UserID = %q, want %q", session.UserID, "user-7")
	}
}

func TestService_HandleCallback_ExchangeFailure(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("exchange failed")
		},
	}

	svc := newTestService(nil, nil, nil, oauth)
	if _, err := svc.HandleCallback(context.Background(), "bad-code"); err == nil {
		t.Error("expected error for failed code exchange")
	}
}

// --- セッション・トークン ---

func TestService_Logout(t *testing.T) {
	deleted := ""
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}

	svc := newTestService(nil, nil, sessionRepo, nil)
	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deleted != "session-1" {
		t.Errorf("deleted session = %q, want %q", deleted, "session-1")
	}

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}

func TestService_GetCurrentUser(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			if id == "user-1" {
				return &model.User{ID: "user-1", Email: "alice@example.com", Name: "Alice"}, nil
			}
			return nil, nil
		},
	}

	svc := newTestService(userRepo, nil, nil, nil)

	user, err := svc.GetCurrentUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q", user.Email)
	}

	_, err = svc.GetCurrentUser(context.Background(), "unknown")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("expected USER_NOT_FOUND, got %v", err)
	}
}

func TestService_APIToken_RoundTrip(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)

	token, err := svc.IssueAPIToken("user-1")
	if err != nil {
		t.Fatalf("IssueAPIToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	userID, err := svc.VerifyAPIToken(token)
	if err != nil {
		t.Fatalf("VerifyAPIToken() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}

func TestService_VerifyAPIToken_WrongSecret(t *testing.T) {
	issuer := newTestService(nil, nil, nil, nil)
	token, err := issuer.IssueAPIToken("user-1")
	if err != nil {
		t.Fatalf("IssueAPIToken() error = %v", err)
	}

	verifier := NewService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{}, ServiceConfig{
		SessionMaxAge: 3600,
		TokenSecret:   "different-secret",
		TokenTTL:      time.Hour,
	})

	if _, err := verifier.VerifyAPIToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestService_VerifyAPIToken_Garbage(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)
	if _, err := svc.VerifyAPIToken("not.a.jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	if len(a) != 32 {
		t.Errorf("state length = %d, want 32 hex chars", len(a))
	}
	if a == b {
		t.Error("states should be unique")
	}
	if strings.ContainsAny(a, " /+=") {
		t.Errorf("state should be hex-encoded, got %q", a)
	}
}
