// internal/service/customer/application/service_test.go
package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/customer/domain"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (m *memUserRepo) FindByID(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func TestExists_LocalActiveUser(t *testing.T) {
	repo := newMemUserRepo()
	svc := NewCustomerService(repo, nil, "")
	if _, err := svc.Register(context.Background(), "u1", "Ada", "ada@example.com"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	exists, err := svc.Exists(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("registered user must exist")
	}
}

func TestExists_DisabledUserReadsAsAbsent(t *testing.T) {
	repo := newMemUserRepo()
	repo.Create(context.Background(), &domain.User{ID: "u1", Status: domain.UserStatusDisabled})
	svc := NewCustomerService(repo, nil, "")

	exists, err := svc.Exists(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("disabled user must read as absent")
	}
}

func TestExists_UnknownUserWithoutFallback(t *testing.T) {
	svc := NewCustomerService(newMemUserRepo(), nil, "")
	exists, err := svc.Exists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("unknown user must not exist")
	}
}

func TestExists_FallsBackToIdentityService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("user_id"); got != "remote-1" {
			t.Errorf("unexpected user_id %q", got)
		}
		json.NewEncoder(w).Encode(map[string]bool{"exists": true})
	}))
	defer srv.Close()

	client := httpclient.NewClient(otel.Tracer("test"))
	svc := NewCustomerService(newMemUserRepo(), client, srv.URL)

	exists, err := svc.Exists(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("identity fallback hit must count as existing")
	}
}

func TestExists_FallbackFailureReadsAsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := httpclient.NewClient(otel.Tracer("test"))
	svc := NewCustomerService(newMemUserRepo(), client, srv.URL)

	exists, err := svc.Exists(context.Background(), "remote-1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("fallback failure must read as absent")
	}
}
