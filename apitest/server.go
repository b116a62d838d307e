package apitest

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = time.Hour

// User is a backend account. Password is plaintext here and hashed on
// registration.
type User struct {
	ID       string
	Email    string
	Name     string
	Role     string
	Password string
}

type account struct {
	id    string
	email string
	name  string
	role  string
	hash  []byte
}

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Calls counts requests per endpoint.
type Calls struct {
	Login  int64
	User   int64
	Logout int64
}

// Server is a running fake backend. The embedded httptest.Server provides
// URL and Close.
type Server struct {
	*httptest.Server

	secret []byte

	mu       sync.RWMutex
	byEmail  map[string]account
	byID     map[string]account
	revoked  map[string]struct{}
	userFail int

	failLogout atomic.Bool
	omitToken  atomic.Bool

	loginCalls  atomic.Int64
	userCalls   atomic.Int64
	logoutCalls atomic.Int64
}

// NewServer starts a backend with the given users. It panics if a user
// cannot be registered, as httptest.NewServer does on listen failures.
func NewServer(users ...User) *Server {
	s := newServer()
	for _, u := range users {
		if err := s.AddUser(u); err != nil {
			panic(fmt.Sprintf("apitest: %v", err))
		}
	}
	s.Server = httptest.NewServer(s.Handler())
	return s
}

func newServer() *Server {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("apitest: read secret: %v", err))
	}
	return &Server{
		secret:  secret,
		byEmail: make(map[string]account),
		byID:    make(map[string]account),
		revoked: make(map[string]struct{}),
	}
}

// AddUser registers u. Emails are matched case-insensitively.
func (s *Server) AddUser(u User) error {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" || u.ID == "" {
		return errors.New("user requires id and email")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %w", email, err)
	}

	acc := account{id: u.ID, email: email, name: u.Name, role: u.Role, hash: hash}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return fmt.Errorf("duplicate email %s", email)
	}
	s.byEmail[email] = acc
	s.byID[u.ID] = acc
	return nil
}

// FailUser makes GET /user answer with status. Zero restores normal
// behavior.
func (s *Server) FailUser(status int) {
	s.mu.Lock()
	s.userFail = status
	s.mu.Unlock()
}

// FailLogout makes POST /logout answer 500.
func (s *Server) FailLogout(fail bool) {
	s.failLogout.Store(fail)
}

// OmitToken makes a successful POST /login answer without a token.
func (s *Server) OmitToken(omit bool) {
	s.omitToken.Store(omit)
}

// Revoke invalidates token server-side, as a logout from another device
// would.
func (s *Server) Revoke(token string) error {
	c, err := s.parse(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.revoked[c.ID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Calls returns request counts.
func (s *Server) Calls() Calls {
	return Calls{
		Login:  s.loginCalls.Load(),
		User:   s.userCalls.Load(),
		Logout: s.logoutCalls.Load(),
	}
}

// Handler returns the backend routes. NewServer serves it; it is exported
// for mounting under a prefix.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /user", s.handleUser)
	mux.HandleFunc("POST /logout", s.handleLogout)
	return mux
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "Email and password are required")
		return
	}

	s.mu.RLock()
	acc, ok := s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Wrong email or password")
		return
	}

	if s.omitToken.Load() {
		writeJSON(w, http.StatusOK, map[string]any{"user": publicUser(acc)})
		return
	}

	token, err := s.issue(acc)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  publicUser(acc),
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.userCalls.Add(1)

	s.mu.RLock()
	status := s.userFail
	s.mu.RUnlock()
	if status != 0 {
		writeMessage(w, status, "User lookup failed")
		return
	}

	acc, ok := s.authenticate(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}
	writeJSON(w, http.StatusOK, publicUser(acc))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.logoutCalls.Add(1)

	if s.failLogout.Load() {
		writeMessage(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	if token, ok := bearer(r); ok {
		_ = s.Revoke(token)
	}
	writeMessage(w, http.StatusOK, "Logged out")
}

func (s *Server) issue(acc account) (string, error) {
	now := time.Now()
	c := claims{
		Role: acc.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.id,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Server) parse(token string) (*claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, &claims{}, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

func (s *Server) authenticate(r *http.Request) (account, bool) {
	token, ok := bearer(r)
	if !ok {
		return account{}, false
	}
	c, err := s.parse(token)
	if err != nil {
		return account{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, revoked := s.revoked[c.ID]; revoked {
		return account{}, false
	}
	acc, ok := s.byID[c.Subject]
	return acc, ok
}

func bearer(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func publicUser(acc account) map[string]string {
	return map[string]string{
		"id":    acc.id,
		"email": acc.email,
		"name":  acc.name,
		"role":  acc.role,
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
