package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type stubIssuer struct{}

func (stubIssuer) IssueAccess(now time.Time, userID, accountID, email string) (string, time.Time, error) {
	return "tok-" + accountID, now.Add(time.Hour), nil
}

func newTestService() *Service {
	return NewService(NewMemoryRepo(), stubIssuer{}).WithPasswordCost(bcrypt.MinCost)
}

func TestRegister_CreatesTrialAccount(t *testing.T) {
	s := newTestService()
	sess, err := s.Register(context.Background(), "a@example.com", "password1", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.HasPrefix(sess.Account.ID, "AC") || len(sess.Account.ID) != 34 {
		t.Fatalf("unexpected account sid %q", sess.Account.ID)
	}
	if sess.Account.FriendlyName != "a@example.com" {
		t.Fatalf("expected friendly name to default to email, got %q", sess.Account.FriendlyName)
	}
	if sess.Account.Status != StatusActive || sess.Account.Type != TypeTrial || len(sess.Account.AuthToken) != 64 {
		t.Fatalf("unexpected account %+v", sess.Account)
	}
	if sess.User.AccountID != sess.Account.ID || sess.Token != "tok-"+sess.Account.ID {
		t.Fatalf("unexpected session %+v", sess)
	}
	if sess.User.PasswordHash == "password1" {
		t.Fatalf("expected hashed password")
	}
}

func TestRegister_Validation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	if _, err := s.Register(ctx, "not-an-email", "password1", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid email, got %v", err)
	}
	if _, err := s.Register(ctx, "a@example.com", "short", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected short password error, got %v", err)
	}
	if _, err := s.Register(ctx, "a@example.com", "password1", strings.Repeat("x", 101)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected long name error, got %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	if _, err := s.Register(ctx, "a@example.com", "password1", "A"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := s.Register(ctx, "A@example.com", "password2", "B"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	reg, _ := s.Register(ctx, "a@example.com", "password1", "A")

	sess, err := s.Authenticate(ctx, "a@example.com", "password1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if sess.Account.ID != reg.Account.ID {
		t.Fatalf("expected same account")
	}
	if _, err := s.Authenticate(ctx, "a@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody@example.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestProfileAndFriendlyName(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	reg, _ := s.Register(ctx, "a@example.com", "password1", "A")

	u, a, err := s.Profile(ctx, reg.User.ID)
	if err != nil || u.Email != "a@example.com" || a.ID != reg.Account.ID {
		t.Fatalf("unexpected profile %+v %+v %v", u, a, err)
	}

	updated, err := s.UpdateFriendlyName(ctx, reg.Account.ID, "Renamed")
	if err != nil || updated.FriendlyName != "Renamed" {
		t.Fatalf("unexpected update %+v %v", updated, err)
	}
	same, _ := s.UpdateFriendlyName(ctx, reg.Account.ID, "  ")
	if same.FriendlyName != "Renamed" {
		t.Fatalf("expected blank name to be ignored")
	}
	if _, err := s.GetAccount(ctx, "AC-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
