package user

import (
	"context"
	"testing"

	"rag-gateway/internal/domain/entity"
	apperrors "rag-gateway/pkg/errors"
)

type fakeRepo struct {
	byID map[string]*entity.User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[string]*entity.User)}
}

func (r *fakeRepo) Create(_ context.Context, u *entity.User) error {
	r.byID[u.ID] = u
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return r.byID[id], nil
}

func (r *fakeRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) Update(_ context.Context, u *entity.User) error {
	r.byID[u.ID] = u
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context) ([]*entity.User, error) {
	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, _ := r.GetByUsername(ctx, username)
	return u != nil, nil
}

func TestRegisterAndGet(t *testing.T) {
	svc := NewService(newFakeRepo())

	u, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == "" {
		t.Error("user ID not assigned")
	}
	if u.PasswordHash == "secret" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if !u.CheckPassword("secret") {
		t.Error("CheckPassword failed for the original password")
	}

	got, err := svc.Get(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q", got.Username)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewService(newFakeRepo())

	if _, err := svc.Register(context.Background(), RegisterInput{Username: "bob"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(context.Background(), RegisterInput{Username: "bob"})
	if err == nil {
		t.Fatal("duplicate username must fail")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeConflict {
		t.Errorf("code = %s, want conflict", apperrors.AsAppError(err).Code)
	}
}

func TestGetMissingUser(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Get(context.Background(), "ghost")
	if err == nil {
		t.Fatal("missing user must fail")
	}
	if apperrors.AsAppError(err).Code != apperrors.CodeUserNotFound {
		t.Errorf("code = %s, want user not found", apperrors.AsAppError(err).Code)
	}
}

func TestDeleteUser(t *testing.T) {
	svc := NewService(newFakeRepo())

	u, _ := svc.Register(context.Background(), RegisterInput{Username: "carol"})
	if err := svc.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), u.ID); err == nil {
		t.Fatal("deleting a missing user must fail")
	}
}
