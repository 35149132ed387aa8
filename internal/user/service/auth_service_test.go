package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeverse/internal/common/cache"
	"codeverse/internal/common/db"
	"codeverse/internal/user/repository"
	appErr "codeverse/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*repository.User
	solved map[int64][]int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*repository.User{}, solved: map[int64][]int64{}}
}

func (f *fakeUserRepo) Create(_ context.Context, _ db.Transaction, user *repository.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	clone := *user
	f.users[user.ID] = &clone
	return user.ID, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, _ db.Transaction, id int64) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, _ db.Transaction, email string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, tx db.Transaction, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, tx, email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeUserRepo) Delete(_ context.Context, _ db.Transaction, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.users, id)
	delete(f.solved, id)
	return nil
}

func (f *fakeUserRepo) AddSolvedProblem(_ context.Context, _ db.Transaction, userID, problemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.solved[userID] {
		if id == problemID {
			return nil
		}
	}
	f.solved[userID] = append(f.solved[userID], problemID)
	return nil
}

func (f *fakeUserRepo) HasSolvedProblem(_ context.Context, userID, problemID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.solved[userID] {
		if id == problemID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) ListSolvedProblems(_ context.Context, _ db.Transaction, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.solved[userID]...), nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisCache, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("create redis cache: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })

	users := newFakeUserRepo()
	svc, err := NewAuthService(Config{
		UserRepo:  users,
		Blocklist: repository.NewCacheTokenBlocklist(redisCache),
		JWTSecret: []byte("test-secret"),
		JWTIssuer: "codeverse-test",
		TokenTTL:  time.Hour,
	})
	if err != nil {
		t.Fatalf("create auth service: %v", err)
	}
	return svc, users
}

func validRegistration() RegisterInput {
	return RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "correct-horse",
		Age:       28,
	}
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if registered.Token == "" {
		t.Fatal("expected a session token")
	}
	if registered.User.PasswordHash == "correct-horse" {
		t.Fatal("password must not be stored in plain text")
	}

	loggedIn, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	session, err := svc.Authenticate(ctx, loggedIn.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if session.UserID != registered.User.ID {
		t.Errorf("expected user id %d, got %d", registered.User.ID, session.UserID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	_, err := svc.Register(ctx, validRegistration())
	if appErr.GetCode(err) != appErr.EmailAlreadyExists {
		t.Fatalf("expected EmailAlreadyExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	weak := validRegistration()
	weak.Password = "short"
	if _, err := svc.Register(ctx, weak); appErr.GetCode(err) != appErr.PasswordTooWeak {
		t.Errorf("expected PasswordTooWeak, got %v", err)
	}

	bad := validRegistration()
	bad.Email = "not-an-email"
	if _, err := svc.Register(ctx, bad); appErr.GetCode(err) != appErr.InvalidEmail {
		t.Errorf("expected InvalidEmail, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	_, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrong"})
	if appErr.GetCode(err) != appErr.InvalidCredentials {
		t.Fatalf("expected InvalidCredentials, got %v", err)
	}
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
	if appErr.GetCode(err) != appErr.InvalidCredentials {
		t.Fatalf("expected InvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := svc.Authenticate(ctx, registered.Token); err != nil {
		t.Fatalf("token should authenticate before logout: %v", err)
	}

	if err := svc.Logout(ctx, registered.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	_, err = svc.Authenticate(ctx, registered.Token)
	if appErr.GetCode(err) != appErr.TokenRevoked {
		t.Fatalf("expected TokenRevoked after logout, got %v", err)
	}
}

func TestAuthenticateRejectsGarbageToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Authenticate(context.Background(), "not.a.token")
	if appErr.GetCode(err) != appErr.TokenInvalid {
		t.Fatalf("expected TokenInvalid, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	svc, users := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := svc.DeleteAccount(ctx, registered.User.ID); err != nil {
		t.Fatalf("DeleteAccount returned error: %v", err)
	}
	if _, err := users.GetByID(ctx, nil, registered.User.ID); err == nil {
		t.Error("expected user removed")
	}
	if err := svc.DeleteAccount(ctx, registered.User.ID); appErr.GetCode(err) != appErr.UserNotFound {
		t.Errorf("expected UserNotFound on second delete, got %v", err)
	}
}
