// Package auth issues and checks session cookies and rate limits API
// clients by address.
package auth

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"Civcalc/internal/calcerr"
	"Civcalc/internal/logging"
	"Civcalc/internal/repo"
)

const (
	cookieName  = "session_token"
	sessionTTL  = 30 * 24 * time.Hour
	minPassword = 6
)

type contextKey int

const (
	userIDKey contextKey = iota
	loginKey
)

type Authenv struct {
	JWTKey []byte
	Users  repo.Users
	// Insecure drops the Secure flag from cookies for plain HTTP development.
	Insecure bool
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type IPRateLimiter struct {
	ips map[string]*rate.Limiter
	mu  sync.Mutex
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		ips: make(map[string]*rate.Limiter),
		r:   r,
		b:   b,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.ips[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.ips[ip] = limiter
	}
	return limiter
}

// LimitMiddleware rejects requests from an address that exceeds its budget.
// Clients are keyed by host so each new connection port shares one limiter.
func (i *IPRateLimiter) LimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !i.getLimiter(ip).Allow() {
			calcerr.Write(w, calcerr.New(calcerr.CodeRateLimited, "too many requests, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(userIDKey).(int)
	return id, ok && id != 0
}

// Login returns the authenticated login set by AuthMiddleware.
func Login(ctx context.Context) string {
	login, _ := ctx.Value(loginKey).(string)
	return login
}

// WithUser returns a context carrying an authenticated user.
func WithUser(ctx context.Context, id int, login string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id)
	return context.WithValue(ctx, loginKey, login)
}

func (env *Authenv) parse(tokenString string) (int, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return env.JWTKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", jwt.ErrTokenInvalidClaims
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id == 0 {
		return 0, "", jwt.ErrTokenInvalidClaims
	}
	login, ok := claims["login"].(string)
	if !ok || login == "" {
		return 0, "", jwt.ErrTokenInvalidClaims
	}
	return int(id), login, nil
}

// AuthMiddleware requires a valid session cookie and puts the user into the
// request context.
func (env *Authenv) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil {
			calcerr.Write(w, calcerr.New(calcerr.CodeUnauthorized, "login required"))
			return
		}
		id, login, err := env.parse(cookie.Value)
		if err != nil {
			logging.FromContext(r.Context()).Debug("session rejected", "err", err)
			calcerr.Write(w, calcerr.New(calcerr.CodeUnauthorized, "session is invalid or expired"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id, login)))
	})
}

func (env *Authenv) addCookie(w http.ResponseWriter, userID int, login string) error {
	expiration := time.Now().Add(sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"login":   login,
		"exp":     expiration.Unix(),
	})
	tokenString, err := token.SignedString(env.JWTKey)
	if err != nil {
		return calcerr.Wrap(calcerr.CodeInternal, err, "signing session token")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    tokenString,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   !env.Insecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (env *Authenv) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Login == "":
		calcerr.Write(w, calcerr.Validation("login", nil, "login required"))
		return
	case req.Email == "":
		calcerr.Write(w, calcerr.Validation("email", nil, "email required"))
		return
	case len(req.Password) < minPassword:
		calcerr.Write(w, calcerr.Validation("password", nil, "password must be at least 6 characters"))
		return
	}

	log := logging.FromContext(r.Context())
	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		log.Error("hashing password", "err", err)
		calcerr.Write(w, err)
		return
	}
	id, err := env.Users.CreateUser(r.Context(), req.Login, req.Email, hashedPassword)
	if err != nil {
		if !calcerr.Is(err, calcerr.CodeConflict) {
			log.Error("creating user", "login", req.Login, "err", err)
		}
		calcerr.Write(w, err)
		return
	}
	if err := env.addCookie(w, id, req.Login); err != nil {
		log.Error("session cookie", "err", err)
		calcerr.Write(w, err)
		return
	}
	log.Info("user registered", "login", req.Login, "id", id)
	w.WriteHeader(http.StatusCreated)
}

func (env *Authenv) AuthHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		calcerr.Write(w, calcerr.Validation("body", nil, "invalid request payload"))
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		calcerr.Write(w, calcerr.Validation("login", nil, "login and password required"))
		return
	}

	log := logging.FromContext(r.Context())
	id, storedHash, err := env.Users.GetByLogin(r.Context(), req.Login)
	if err != nil {
		log.Error("looking up user", "login", req.Login, "err", err)
		calcerr.Write(w, err)
		return
	}
	if id == 0 || bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.Password)) != nil {
		calcerr.Write(w, calcerr.New(calcerr.CodeUnauthorized, "invalid login or password"))
		return
	}
	if err := env.addCookie(w, id, req.Login); err != nil {
		log.Error("session cookie", "err", err)
		calcerr.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
