// Package accounts owns users, their accounts and password authentication.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"voice-platform/pkg/logger"
	"voice-platform/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrEmailTaken         = errors.New("user already exists with this email")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("account not found")
)

const (
	MinPasswordLength   = 8
	MaxFriendlyNameLen  = 100
	DefaultPasswordCost = 12
)

// TokenIssuer signs session tokens for an authenticated user.
type TokenIssuer interface {
	IssueAccess(now time.Time, userID, accountID, email string) (token string, expires time.Time, err error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
	cost   int
	clock  func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens, cost: DefaultPasswordCost, clock: time.Now}
}

// WithPasswordCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithPasswordCost(cost int) *Service {
	s.cost = cost
	return s
}

// Register creates a user with its own trial account and signs the user in.
// friendlyName defaults to the email.
func (s *Service) Register(ctx context.Context, email, password, friendlyName string) (Session, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return Session{}, fmt.Errorf("%w: \"email\" must be a valid email", ErrInvalidArgument)
	}
	if len(password) < MinPasswordLength {
		return Session{}, fmt.Errorf("%w: \"password\" length must be at least %d characters long", ErrInvalidArgument, MinPasswordLength)
	}
	friendlyName = strings.TrimSpace(friendlyName)
	if len(friendlyName) > MaxFriendlyNameLen {
		return Session{}, fmt.Errorf("%w: \"friendlyName\" must be at most %d characters", ErrInvalidArgument, MaxFriendlyNameLen)
	}
	if friendlyName == "" {
		friendlyName = email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("accounts: hash password: %w", err)
	}

	now := s.clock().UTC()
	acct := Account{
		ID:           utils.NewSID("AC"),
		FriendlyName: friendlyName,
		Status:       StatusActive,
		Type:         TypeTrial,
		AuthToken:    utils.NewSecret(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	user := User{
		ID:           utils.NewSID("US"),
		Email:        email,
		PasswordHash: string(hash),
		AccountID:    acct.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	acct.OwnerUserID = user.ID

	if err := s.repo.CreateUserWithAccount(ctx, user, acct); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("accounts: create: %w", err)
	}
	logger.From(ctx).Info("user registered", "user_id", user.ID, "account_id", acct.ID)

	return s.session(now, user, acct)
}

// Authenticate checks the password and signs the user in.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, fmt.Errorf("%w: \"email\" and \"password\" are required", ErrInvalidArgument)
	}
	user, err := s.repo.UserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("accounts: lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	acct, err := s.repo.Account(ctx, user.AccountID)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	logger.From(ctx).Info("user logged in", "user_id", user.ID, "account_id", acct.ID)
	return s.session(s.clock().UTC(), user, acct)
}

// Profile returns the user and the account it owns.
func (s *Service) Profile(ctx context.Context, userID string) (User, Account, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return User{}, Account{}, err
	}
	acct, err := s.repo.Account(ctx, user.AccountID)
	if err != nil {
		return User{}, Account{}, err
	}
	return user, acct, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (Account, error) {
	return s.repo.Account(ctx, accountID)
}

// UpdateFriendlyName renames the account. An empty name leaves it unchanged.
func (s *Service) UpdateFriendlyName(ctx context.Context, accountID, name string) (Account, error) {
	acct, err := s.repo.Account(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return acct, nil
	}
	if len(name) > MaxFriendlyNameLen {
		return Account{}, fmt.Errorf("%w: \"FriendlyName\" must be at most %d characters", ErrInvalidArgument, MaxFriendlyNameLen)
	}
	acct.FriendlyName = name
	acct.UpdatedAt = s.clock().UTC()
	if err := s.repo.UpdateAccount(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (s *Service) session(now time.Time, u User, a Account) (Session, error) {
	tok, exp, err := s.tokens.IssueAccess(now, u.ID, a.ID, u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("accounts: issue token: %w", err)
	}
	return Session{User: u, Account: a, Token: tok, Expires: exp}, nil
}
