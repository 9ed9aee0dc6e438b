// A toy identity service for local experiments with the session core. It
// implements just enough of the real service's surface: password login with
// an HS256 token pair, session verification, refresh rotation, registration
// and tenant metadata. Not for production use.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/worldpet/go-auth-client/internal/utils"
	"github.com/worldpet/go-auth-client/tenants"
	"github.com/worldpet/go-auth-client/users"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

type account struct {
	user         users.User
	passwordHash string
}

type stub struct {
	signingKey []byte
	log        zerolog.Logger

	lock     sync.RWMutex
	accounts map[string]*account       // keyed by email
	tenants  map[string]tenants.Tenant // keyed by slug
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	s := &stub{
		signingKey: []byte(getenv("JWT_SIGNING_KEY", "dev-secret-key-change-me")),
		log:        logger,
		accounts:   map[string]*account{},
		tenants:    map[string]tenants.Tenant{},
	}
	s.seed(getenv("STUB_PASSWORD", "password123"))

	r := chi.NewRouter()
	r.Post("/auth/login", s.handleLogin)
	r.Get("/auth/me", s.handleMe)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/register", s.handleRegister)
	r.Get("/tenants/{slug}", s.handleTenant)

	addr := ":" + getenv("PORT", "9000")
	logger.Info().Str("addr", addr).Msg("identity stub listening")
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func (s *stub) seed(password string) {
	hash, err := users.HashPassword(password)
	if err != nil {
		s.log.Fatal().Err(err).Msg("seeding failed")
	}

	seeded := []users.User{
		{ID: "1", Email: "owner@happy-paws.io", DisplayName: "Jane Owner", Role: users.RoleOwner, TenantID: "1"},
		{ID: "2", Email: "admin@happy-paws.io", DisplayName: "Alex Admin", Role: users.RoleAdmin, TenantID: "1"},
		{ID: "3", Email: "root@worldpet.io", DisplayName: "Platform Root", Role: users.RoleSuperAdmin, TenantID: "platform"},
	}
	for _, user := range seeded {
		s.accounts[user.Email] = &account{user: user, passwordHash: hash}
	}

	for _, tenant := range []tenants.Tenant{
		{ID: "1", Name: "Happy Paws Clinic", Slug: "happy-paws", PrimaryColor: "#14b8a6"},
		{ID: "1", Name: "Happy Paws Clinic", Slug: "default-clinic", PrimaryColor: "#14b8a6"},
		{ID: "platform", Name: "World Pet Platform", Slug: "admin", PrimaryColor: "#8251EE"},
	} {
		s.tenants[tenant.Slug] = tenant
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         *users.User `json:"user,omitempty"`
}

func (s *stub) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.lock.RLock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	s.lock.RUnlock()
	if !ok || !users.CheckPasswordHash(req.Password, acct.passwordHash) {
		writeDetail(w, http.StatusBadRequest, "Incorrect email or password")
		return
	}

	pair, err := s.mintPair(acct.user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	pair.User = utils.Ptr(acct.user)
	writeJSON(w, http.StatusOK, pair)
}

func (s *stub) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userFromToken(bearerToken(r.Header.Get("Authorization")), "access")
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *stub) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, ok := s.userFromToken(req.RefreshToken, "refresh")
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	pair, err := s.mintPair(*user)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "token generation failed")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *stub) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string         `json:"email"`
		Password   string         `json:"password"`
		FullName   string         `json:"full_name"`
		AdminName  string         `json:"admin_name"`
		ClinicName string         `json:"clinic_name"`
		Subdomain  string         `json:"subdomain"`
		Role       users.RoleType `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if !req.Role.Valid() {
		req.Role = users.RoleOwner
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.accounts[email]; exists {
		writeDetail(w, http.StatusConflict, "The user with this username already exists in the system.")
		return
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "registration failed")
		return
	}

	tenantID := "1"
	if req.Role == users.RoleAdmin && req.Subdomain != "" {
		tenantID = uuid.New().String()
		s.tenants[req.Subdomain] = tenants.Tenant{
			ID:   tenantID,
			Name: req.ClinicName,
			Slug: req.Subdomain,
		}
	}

	displayName := req.FullName
	if displayName == "" {
		displayName = req.AdminName
	}
	s.accounts[email] = &account{
		user: users.User{
			ID:          uuid.New().String(),
			Email:       email,
			DisplayName: displayName,
			Role:        req.Role,
			TenantID:    tenantID,
		},
		passwordHash: hash,
	}
	s.log.Info().Str("email", email).Str("role", string(req.Role)).Msg("account registered")
	w.WriteHeader(http.StatusCreated)
}

func (s *stub) handleTenant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	s.lock.RLock()
	tenant, ok := s.tenants[slug]
	s.lock.RUnlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (s *stub) mintPair(user users.User) (tokenResponse, error) {
	access, err := s.mint(user.ID, "access", accessTokenTTL)
	if err != nil {
		return tokenResponse{}, err
	}
	refresh, err := s.mint(user.ID, "refresh", refreshTokenTTL)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *stub) mint(subject, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"typ": tokenType,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

func (s *stub) userFromToken(raw, wantType string) (*users.User, bool) {
	if raw == "" {
		return nil, false
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, false
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return nil, false
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return nil, false
	}

	s.lock.RLock()
	defer s.lock.RUnlock()
	for _, acct := range s.accounts {
		if acct.user.ID == subject {
			return utils.Ptr(acct.user), true
		}
	}
	return nil, false
}

func bearerToken(value string) string {
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
