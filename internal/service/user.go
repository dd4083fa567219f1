package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sonderhq/account-api/internal/model"
	"github.com/sonderhq/account-api/internal/repository"
)

type UserService struct {
	userRepository repository.UserRepository
	authService    *AuthService
	mailer         Mailer
	appURL         string
}

func NewUserService(
	userRepository repository.UserRepository,
	authService *AuthService,
	mailer Mailer,
	appURL string,
) *UserService {
	return &UserService{
		userRepository: userRepository,
		authService:    authService,
		mailer:         mailer,
		appURL:         strings.TrimRight(appURL, "/"),
	}
}

func (s *UserService) ByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *UserService) ByEmail(email string) (*model.User, error) {
	return s.userRepository.ByEmail(email)
}

// Register hashes the password and creates the user record. Email
// uniqueness is enforced by the store; a duplicate surfaces as
// repository.ErrDuplicateEmail.
func (s *UserService) Register(name, email, password string) (*model.User, error) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: hash,
	}

	err = s.userRepository.Create(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// UpdateProfile overwrites name and email of the user with the given id.
// The target id is taken as submitted and the new email is not re-checked
// against other accounts, mirroring the behavior of the API this replaces.
func (s *UserService) UpdateProfile(id, name, email string) (*model.User, error) {
	user, err := s.userRepository.ByID(id)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = email

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("user profile updated", "user_id", user.ID)
	return user, nil
}

// SendVerificationMail generates a fresh verification token for the user
// with the given email, stores it, and mails a link embedding it. A repeat
// request simply replaces the pending token.
func (s *UserService) SendVerificationMail(email string) error {
	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		return err
	}

	token, err := s.authService.GenerateRememberToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/verify-mail/%s", s.appURL, token)

	err = s.mailer.SendVerificationEmail(user.Email, user.Name, verifyURL)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	user.RememberToken = token
	err = s.userRepository.Update(user)
	if err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	slog.Info("verification mail sent", "user_id", user.ID, "email", user.Email)
	return nil
}

// VerifyEmail consumes a verification token: the token is cleared and the
// verification timestamp stamped. A consumed token never matches again.
func (s *UserService) VerifyEmail(token string) (*model.User, error) {
	user, err := s.userRepository.ByRememberToken(token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.RememberToken = ""
	user.EmailVerifiedAt = &now

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}

	slog.Info("email verified", "user_id", user.ID, "email", user.Email)
	return user, nil
}
