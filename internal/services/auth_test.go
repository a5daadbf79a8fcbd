package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notelet/notelet-backend/internal/types"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*types.User
}

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return users, nil
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByEmails(ctx context.Context, tx *gorm.DB, emails []string) ([]*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.User
	for _, u := range r.users {
		for _, e := range emails {
			if u.Email == e {
				copied := *u
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

type fakeUserTokenRepo struct {
	mu     sync.Mutex
	tokens []*types.UserToken
}

func (r *fakeUserTokenRepo) Create(ctx context.Context, tx *gorm.DB, tokens []*types.UserToken) ([]*types.UserToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tokens {
		copied := *t
		r.tokens = append(r.tokens, &copied)
	}
	return tokens, nil
}

func (r *fakeUserTokenRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.UserToken
	for _, t := range r.tokens {
		for _, id := range userIDs {
			if t.UserID == id {
				copied := *t
				out = append(out, &copied)
			}
		}
	}
	return out, nil
}

func (r *fakeUserTokenRepo) FullDeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*types.UserToken
	for _, t := range r.tokens {
		match := false
		for _, id := range userIDs {
			if t.UserID == id {
				match = true
			}
		}
		if !match {
			kept = append(kept, t)
		}
	}
	r.tokens = kept
	return nil
}

func newAuthServiceForTest(t *testing.T) AuthService {
	t.Setenv("JWT_SECRET", "test-secret")
	log := testLogger(t)
	return NewAuthService(log, &fakeUserRepo{users: make(map[uuid.UUID]*types.User)}, &fakeUserTokenRepo{})
}

func TestAuth_RegisterLoginRoundtrip(t *testing.T) {
	svc := newAuthServiceForTest(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "Student@Example.com", "hunter2hunter2", "Sam")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "student@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Password == "hunter2hunter2" {
		t.Fatalf("password stored in plaintext")
	}

	parsed, err := svc.ParseAccessToken(pair.AccessToken)
	if err != nil || parsed != user.ID {
		t.Fatalf("ParseAccessToken: id=%v err=%v", parsed, err)
	}

	if _, _, err := svc.Login(ctx, "student@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, _, err := svc.Login(ctx, "student@example.com", "wrong"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad password: want ErrValidation got %v", err)
	}
}

func TestAuth_RegisterValidation(t *testing.T) {
	svc := newAuthServiceForTest(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "hunter2hunter2", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad email: want ErrValidation got %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "short", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("short password: want ErrValidation got %v", err)
	}

	if _, _, err := svc.Register(ctx, "a@b.com", "hunter2hunter2", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, "a@b.com", "hunter2hunter2", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("duplicate email: want ErrValidation got %v", err)
	}
}

func TestAuth_RefreshRotatesTokens(t *testing.T) {
	svc := newAuthServiceForTest(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, "a@b.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	newPair, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if newPair.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}

	// the old token is revoked after rotation
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrValidation) {
		t.Fatalf("reused refresh token: want ErrValidation got %v", err)
	}

	// access tokens are not refresh tokens
	if _, err := svc.Refresh(ctx, newPair.AccessToken); !errors.Is(err, ErrValidation) {
		t.Fatalf("access token as refresh: want ErrValidation got %v", err)
	}
}

func TestAuth_LogoutRevokesRefresh(t *testing.T) {
	svc := newAuthServiceForTest(t)
	ctx := context.Background()

	user, pair, err := svc.Register(ctx, "a@b.com", "hunter2hunter2", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrValidation) {
		t.Fatalf("refresh after logout: want ErrValidation got %v", err)
	}
}
