package service

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sonderhq/account-api/internal/db"
	"github.com/sonderhq/account-api/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Init("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	err = db.RunMigrations(database.DB, "sqlite")
	require.NoError(t, err)

	return database
}

// recordingMailer captures outbound mail instead of sending it.
type recordingMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to, name, verifyURL string
}

func (m *recordingMailer) SendVerificationEmail(to, name, verifyURL string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, name: name, verifyURL: verifyURL})
	return nil
}

type fixture struct {
	auth   *AuthService
	users  *UserService
	repo   repository.UserRepository
	mailer *recordingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := newTestDB(t)
	userRepo := repository.NewUserRepository(database)
	tokenRepo := repository.NewRevokedTokenRepository(database)
	mailer := &recordingMailer{}

	auth := NewAuthService(userRepo, tokenRepo, "test-secret", time.Hour)
	users := NewUserService(userRepo, auth, mailer, "http://localhost:8090")

	return &fixture{auth: auth, users: users, repo: userRepo, mailer: mailer}
}

var errMailDown = errors.New("mail transport down")
