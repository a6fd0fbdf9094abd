package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DRAKEN-1974/product/internal/model"
	"github.com/DRAKEN-1974/product/internal/repository"
)

const testProfileID = "0b7f44f5-8f1c-4a62-b9d1-3c0a2f9e5a11"

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetProfileIDFromContext(r.Context())
		if !ok {
			t.Fatalf("profile id not in context")
		}
		if id != testProfileID {
			t.Fatalf("profile id from context = %q, want %q", id, testProfileID)
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	m.SetAuthCookie(w, testProfileID)
	res := w.Result()
	resCookies := res.Cookies()
	if len(resCookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}

	r.AddCookie(resCookies[0])

	handler := m.Middleware(next)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithoutCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)

	handler := m.Middleware(next)
	handler.ServeHTTP(w, r)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_TamperedCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not be called")
	})

	w := httptest.NewRecorder()
	other.SetAuthCookie(w, testProfileID)
	cookie := w.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(cookie)

	rec := httptest.NewRecorder()
	handler := m.Middleware(next)
	handler.ServeHTTP(rec, r)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

type stubProfileSource struct {
	profile *model.Profile
	err     error
}

func (s *stubProfileSource) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	return s.profile, s.err
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		source     *stubProfileSource
		required   model.Role
		wantStatus int
	}{
		{
			name:       "role matches",
			source:     &stubProfileSource{profile: &model.Profile{ID: testProfileID, Role: model.RoleWorker}},
			required:   model.RoleWorker,
			wantStatus: http.StatusOK,
		},
		{
			name:       "pending profile is forbidden",
			source:     &stubProfileSource{profile: &model.Profile{ID: testProfileID, Role: model.RolePending}},
			required:   model.RoleWorker,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "worker cannot reach admin surface",
			source:     &stubProfileSource{profile: &model.Profile{ID: testProfileID, Role: model.RoleWorker}},
			required:   model.RoleAdmin,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "deleted profile is unauthorized",
			source:     &stubProfileSource{err: repository.ErrProfileNotFound},
			required:   model.RoleWorker,
			wantStatus: http.StatusUnauthorized,
		},
	}

	auth := NewAuthMiddleware("test-secret")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			w := httptest.NewRecorder()
			auth.SetAuthCookie(w, testProfileID)
			cookie := w.Result().Cookies()[0]

			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.AddCookie(cookie)

			rec := httptest.NewRecorder()
			handler := auth.Middleware(RequireRole(tt.source, tt.required)(next))
			handler.ServeHTTP(rec, r)

			res := rec.Result()
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
		})
	}
}
