package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sonderhq/account-api/internal/app"
	"github.com/sonderhq/account-api/internal/db"
	"github.com/sonderhq/account-api/internal/model"
	"github.com/sonderhq/account-api/internal/repository"
	"github.com/sonderhq/account-api/internal/routes"
	"github.com/sonderhq/account-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []string // verification URLs, in send order
}

func (m *recordingMailer) SendVerificationEmail(to, name, verifyURL string) error {
	m.sent = append(m.sent, verifyURL)
	return nil
}

type testEnv struct {
	server   *httptest.Server
	mailer   *recordingMailer
	userRepo repository.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "sqlite"))

	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewRevokedTokenRepository(database)
	mailer := &recordingMailer{}

	authService := service.NewAuthService(userRepo, tokenRepo, "test-secret", time.Hour)
	userService := service.NewUserService(userRepo, authService, mailer, "http://localhost:8090")

	a := &app.App{
		DB:           database,
		AuthService:  authService,
		UserService:  userService,
		EmailService: mailer,
	}

	server := httptest.NewServer(routes.SetupRoutes(a))
	t.Cleanup(server.Close)

	return &testEnv{server: server, mailer: mailer, userRepo: userRepo}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var fields map[string]json.RawMessage
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&fields))
	}

	return resp, fields
}

func (e *testEnv) register(t *testing.T, name, email, password string) *model.User {
	t.Helper()

	resp, fields := e.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":                  name,
		"email":                 email,
		"password":              password,
		"password_confirmation": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, fields, "user")

	var user model.User
	require.NoError(t, json.Unmarshal(fields["user"], &user))
	return &user
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	resp, fields := e.do(t, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, fields, "access_token")

	var token string
	require.NoError(t, json.Unmarshal(fields["access_token"], &token))
	return token
}

func unmarshalBool(t *testing.T, raw json.RawMessage) bool {
	t.Helper()
	var b bool
	require.NoError(t, json.Unmarshal(raw, &b))
	return b
}

func unmarshalString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	resp, fields := env.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":                  "Jane Doe",
		"email":                 "jane@example.com",
		"password":              "secret123",
		"password_confirmation": "secret123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User inserted successfully!", unmarshalString(t, fields["message"]))

	var user model.User
	require.NoError(t, json.Unmarshal(fields["user"], &user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Jane Doe", user.Name)
	// The stored bcrypt hash is echoed back, never the plaintext
	assert.NotEmpty(t, user.Password)
	assert.NotEqual(t, "secret123", user.Password)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name      string
		body      map[string]string
		wantField string
	}{
		{
			name:      "missing name",
			body:      map[string]string{"email": "a@example.com", "password": "secret123", "password_confirmation": "secret123"},
			wantField: "name",
		},
		{
			name:      "name too short",
			body:      map[string]string{"name": "J", "email": "a@example.com", "password": "secret123", "password_confirmation": "secret123"},
			wantField: "name",
		},
		{
			name:      "invalid email",
			body:      map[string]string{"name": "Jane", "email": "not-an-email", "password": "secret123", "password_confirmation": "secret123"},
			wantField: "email",
		},
		{
			name:      "password too short",
			body:      map[string]string{"name": "Jane", "email": "a@example.com", "password": "short", "password_confirmation": "short"},
			wantField: "password",
		},
		{
			name:      "confirmation mismatch",
			body:      map[string]string{"name": "Jane", "email": "a@example.com", "password": "secret123", "password_confirmation": "secret124"},
			wantField: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, fields := env.do(t, http.MethodPost, "/register", "", tt.body)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, fields, tt.wantField)
			// Validation bodies are the bare error map, no success flag
			assert.NotContains(t, fields, "success")
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPost, "/register", "", map[string]string{
		"name":                  "Second Jane",
		"email":                 "jane@example.com",
		"password":              "secret456",
		"password_confirmation": "secret456",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, fields, "email")

	var messages []string
	require.NoError(t, json.Unmarshal(fields["email"], &messages))
	assert.Contains(t, messages, "The email has already been taken.")

	// No second record was created
	user, err := env.userRepo.ByEmail("jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email":    "jane@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "Bearer", unmarshalString(t, fields["token_type"]))
	assert.NotEmpty(t, unmarshalString(t, fields["access_token"]))

	// expires_in advertises the configured lifetime in seconds (60 min)
	var expiresIn int
	require.NoError(t, json.Unmarshal(fields["expires_in"], &expiresIn))
	assert.Equal(t, 3600, expiresIn)
}

func TestLoginWrongCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")

	for _, body := range []map[string]string{
		{"email": "jane@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "secret123"},
	} {
		resp, fields := env.do(t, http.MethodPost, "/login", "", body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, unmarshalBool(t, fields["success"]))
		assert.Equal(t, "Email or password incorrect!", unmarshalString(t, fields["message"]))
		assert.NotContains(t, fields, "access_token")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "User logged out!", unmarshalString(t, fields["message"]))

	// The token is revoked: reusing it is an auth failure, still HTTP 200
	resp, fields = env.do(t, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "User is not Authenticated.", unmarshalString(t, fields["message"]))
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))

	var data model.User
	require.NoError(t, json.Unmarshal(fields["data"], &data))
	assert.Equal(t, user.ID, data.ID)
	assert.Equal(t, "jane@example.com", data.Email)
}

func TestProfileUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/profile"},
		{http.MethodPost, "/logout"},
		{http.MethodPost, "/refresh"},
		{http.MethodGet, "/send-verify-mail/jane@example.com"},
	} {
		resp, fields := env.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, unmarshalBool(t, fields["success"]))
		assert.Equal(t, "User is not Authenticated.", unmarshalString(t, fields["message"]))
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPut, "/profile", token, map[string]string{
		"id":    user.ID,
		"name":  "Jane Smith",
		"email": "jane.smith@example.com",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "Updated user successfully!", unmarshalString(t, fields["message"]))

	var data model.User
	require.NoError(t, json.Unmarshal(fields["data"], &data))
	assert.Equal(t, "Jane Smith", data.Name)
	assert.Equal(t, "jane.smith@example.com", data.Email)

	stored, err := env.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", stored.Name)
	assert.Equal(t, "jane.smith@example.com", stored.Email)
}

func TestUpdateProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPut, "/profile", token, map[string]string{
		"name":  "Jane Smith",
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "email")
}

func TestUpdateProfileUnknownID(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPut, "/profile", token, map[string]string{
		"id":    "no-such-user",
		"name":  "Jane Smith",
		"email": "jane.smith@example.com",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "User not found!", unmarshalString(t, fields["message"]))
}

func TestSendVerifyMail(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodGet, "/send-verify-mail/jane@example.com", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "Mail sent successfully.", unmarshalString(t, fields["message"]))

	// Exactly one mail, embedding the stored 40-char token
	require.Len(t, env.mailer.sent, 1)
	stored, err := env.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.Len(t, stored.RememberToken, 40)
	assert.Contains(t, env.mailer.sent[0], "/verify-mail/"+stored.RememberToken)
}

func TestSendVerifyMailUnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodGet, "/send-verify-mail/nobody@example.com", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "User not found!", unmarshalString(t, fields["message"]))
	assert.Empty(t, env.mailer.sent)
}

func TestVerifyMail(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	_, _ = env.do(t, http.MethodGet, "/send-verify-mail/jane@example.com", token, nil)
	stored, err := env.userRepo.ByID(user.ID)
	require.NoError(t, err)
	verifyToken := stored.RememberToken

	// The emailed link needs no authentication and responds with HTML
	resp, _ := env.do(t, http.MethodGet, "/verify-mail/"+verifyToken, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	verified, err := env.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, verified.RememberToken)
	assert.NotNil(t, verified.EmailVerifiedAt)

	// The token was consumed; a second visit is a not-found page
	resp2, _ := env.do(t, http.MethodGet, "/verify-mail/"+verifyToken, "", nil)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Contains(t, resp2.Header.Get("Content-Type"), "text/html")

	still, err := env.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, verified.EmailVerifiedAt.Unix(), still.EmailVerifiedAt.Unix())
}

func TestVerifyMailUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/verify-mail/"+strings.Repeat("z", 40), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Jane Doe", "jane@example.com", "secret123")
	token := env.login(t, "jane@example.com", "secret123")

	resp, fields := env.do(t, http.MethodPost, "/refresh", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))
	assert.Equal(t, "Bearer", unmarshalString(t, fields["token_type"]))

	newToken := unmarshalString(t, fields["access_token"])
	assert.NotEqual(t, token, newToken)

	var expiresIn int
	require.NoError(t, json.Unmarshal(fields["expires_in"], &expiresIn))
	assert.Equal(t, 3600, expiresIn)

	// The old token was retired by the refresh
	resp, fields = env.do(t, http.MethodGet, "/profile", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, unmarshalBool(t, fields["success"]))

	// The new one works
	resp, fields = env.do(t, http.MethodGet, "/profile", newToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, unmarshalBool(t, fields["success"]))
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/register", strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
}
