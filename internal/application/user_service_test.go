package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/persistence/memory"
)

func newTestUserService(t *testing.T) (*UserService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewUserService(store, NewPasswordHasher(FastArgon2idParams)), store
}

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	t.Run("validates input fields including email format", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestUserService(t)

		_, err := svc.CreateUser(context.Background(), UserInput{Email: "not-an-email", Role: "owner"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"email", "password", "role", "name"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("normalises email and hashes the password", func(t *testing.T) {
		t.Parallel()
		svc, store := newTestUserService(t)

		user, err := svc.CreateUser(context.Background(), UserInput{
			Email: "  Alice@Example.COM ", Password: "s3cret", Role: persistence.RoleInstructor, Name: " Alice ",
		})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.ID != 1 || user.Email != "alice@example.com" || user.Name != "Alice" {
			t.Fatalf("unexpected user: %+v", user)
		}
		stored, err := store.GetUser(context.Background(), user.ID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if stored.PasswordHash == "s3cret" || !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
			t.Fatalf("expected argon2id hash, got %q", stored.PasswordHash)
		}
	})

	t.Run("defaults the role to student", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestUserService(t)

		user, err := svc.CreateUser(context.Background(), UserInput{Email: "bob@example.com", Password: "pw", Name: "Bob"})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.Role != persistence.RoleStudent {
			t.Fatalf("expected student role, got %q", user.Role)
		}
	})

	t.Run("maps duplicate email violations to ErrAlreadyExists", func(t *testing.T) {
		t.Parallel()
		svc, store := newTestUserService(t)
		ctx := context.Background()

		input := UserInput{Email: "carol@example.com", Password: "pw", Name: "Carol"}
		if _, err := svc.CreateUser(ctx, input); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		input.Email = "CAROL@example.com"
		if _, err := svc.CreateUser(ctx, input); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		users, _ := store.ListUsers(ctx)
		if len(users) != 1 {
			t.Fatalf("expected one stored user, got %d", len(users))
		}
	})
}

func TestUserService_Lookups(t *testing.T) {
	t.Parallel()
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := svc.CreateUser(ctx, UserInput{Email: email, Password: "pw", Name: email}); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	t.Run("by id", func(t *testing.T) {
		user, err := svc.GetUser(ctx, 2)
		if err != nil || user.Email != "b@example.com" {
			t.Fatalf("expected b@example.com, got %+v (%v)", user, err)
		}
		if _, err := svc.GetUser(ctx, 99); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("by email ignores case", func(t *testing.T) {
		user, err := svc.GetUserByEmail(ctx, "A@EXAMPLE.com")
		if err != nil || user.ID != 1 {
			t.Fatalf("expected user 1, got %+v (%v)", user, err)
		}
		if _, err := svc.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list keeps creation order", func(t *testing.T) {
		users, err := svc.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 2 || users[0].ID != 1 || users[1].ID != 2 {
			t.Fatalf("unexpected order: %+v", users)
		}
	})
}

func TestUserService_VerifyCredentials(t *testing.T) {
	t.Parallel()
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, UserInput{Email: "dana@example.com", Password: "correct", Name: "Dana"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user, err := svc.VerifyCredentials(ctx, "Dana@example.com", "correct")
	if err != nil || user.ID != 1 {
		t.Fatalf("expected user 1, got %+v (%v)", user, err)
	}
	if _, err := svc.VerifyCredentials(ctx, "dana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.VerifyCredentials(ctx, "ghost@example.com", "correct"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
