package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/goPortal/session"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "  "}); !errors.Is(err, ErrBaseURLRequired) {
		t.Fatalf("expected ErrBaseURLRequired, got %v", err)
	}
}

func TestLoginSendsCredentialsAndReturnsToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Email != "alice@example.com" || body.Password != "pw" {
			t.Errorf("unexpected credentials %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "expires_in": 3600})
	})
	c := newTestClient(t, mux)

	token, err := c.Login(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token != "tok-1" {
		t.Fatalf("expected tok-1, got %q", token)
	}
}

func TestLoginErrorCarriesServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"These credentials do not match our records."}`))
	})
	c := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "a", "b")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
	msg, ok := MessageFrom(err)
	if !ok || msg != "These credentials do not match our records." {
		t.Fatalf("unexpected message %q (ok=%v)", msg, ok)
	}
}

func TestLoginErrorWithoutMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	c := newTestClient(t, mux)

	_, err := c.Login(context.Background(), "a", "b")
	if _, ok := MessageFrom(err); ok {
		t.Fatalf("expected no server message, got %v", err)
	}
	if err == nil || err.Error() != "api: status 500" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoginMissingToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	c := newTestClient(t, mux)

	if _, err := c.Login(context.Background(), "a", "b"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestCurrentUserDecodesIdentity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":42,"email":"bob@example.com","name":"Bob","role":"staff"}`))
	})
	c := newTestClient(t, mux)

	id, err := c.CurrentUser(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	want := session.Identity{ID: "42", Email: "bob@example.com", Name: "Bob", Role: session.RoleStaff}
	if id != want {
		t.Fatalf("unexpected identity %+v", id)
	}

	if _, err := c.CurrentUser(context.Background(), "wrong"); err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestCurrentUserAcceptsStringID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u-1","role":"admin"}`))
	})
	c := newTestClient(t, mux)

	id, err := c.CurrentUser(context.Background(), "t")
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if id.ID != "u-1" || id.Role != session.RoleAdmin {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestLogoutSendsBearer(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	if err := c.Logout(context.Background(), "tok-1"); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if !called {
		t.Fatal("expected logout endpoint to be called")
	}
}

func TestCustomPathsAreNormalized(t *testing.T) {
	c, err := New(Config{BaseURL: "http://example.test", LoginPath: "auth/login"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.loginPath != "/auth/login" || c.userPath != "/user" || c.logoutPath != "/logout" {
		t.Fatalf("unexpected paths %q %q %q", c.loginPath, c.userPath, c.logoutPath)
	}
}
