package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"Civcalc/internal/calcerr"
)

type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]fakeUser
}

type fakeUser struct {
	id   int
	hash string
}

func (f *fakeUsers) CreateUser(_ context.Context, login, _, password string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byName == nil {
		f.byName = map[string]fakeUser{}
	}
	if _, ok := f.byName[login]; ok {
		return 0, &calcerr.Error{Code: calcerr.CodeConflict, Field: "login", Message: "login is already taken"}
	}
	id := len(f.byName) + 1
	f.byName[login] = fakeUser{id, password}
	return id, nil
}

func (f *fakeUsers) GetByLogin(_ context.Context, login string) (int, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byName[login]
	return u.id, u.hash, nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	env := &Authenv{JWTKey: []byte("secret"), Users: &fakeUsers{}}

	rec := post(env.RegisterHandler, `{"login":" eng ","email":"eng@example.com","password":"hunter22"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	if c := sessionCookie(t, rec); !c.HttpOnly || !c.Secure {
		t.Errorf("cookie flags = %+v", c)
	}

	tests := []struct {
		name   string
		handle http.HandlerFunc
		body   string
		status int
	}{
		{"login", env.AuthHandler, `{"login":"eng","password":"hunter22"}`, http.StatusOK},
		{"wrong password", env.AuthHandler, `{"login":"eng","password":"hunter23"}`, http.StatusUnauthorized},
		{"unknown login", env.AuthHandler, `{"login":"nobody","password":"hunter22"}`, http.StatusUnauthorized},
		{"missing password", env.AuthHandler, `{"login":"eng"}`, http.StatusBadRequest},
		{"duplicate", env.RegisterHandler, `{"login":"eng","email":"e@x","password":"hunter22"}`, http.StatusConflict},
		{"short password", env.RegisterHandler, `{"login":"b","email":"b@x","password":"abc"}`, http.StatusBadRequest},
		{"no email", env.RegisterHandler, `{"login":"b","password":"hunter22"}`, http.StatusBadRequest},
		{"malformed", env.RegisterHandler, `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(tt.handle, tt.body); rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := &Authenv{JWTKey: []byte("secret"), Users: &fakeUsers{}, Insecure: true}
	other := &Authenv{JWTKey: []byte("other")}

	valid := httptest.NewRecorder()
	if err := env.addCookie(valid, 7, "eng"); err != nil {
		t.Fatal(err)
	}
	if sessionCookie(t, valid).Secure {
		t.Error("insecure env set a Secure cookie")
	}
	forged := httptest.NewRecorder()
	if err := other.addCookie(forged, 7, "eng"); err != nil {
		t.Fatal(err)
	}

	var gotID int
	var gotLogin string
	protected := env.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r.Context())
		gotLogin = Login(r.Context())
	}))

	tests := []struct {
		name   string
		cookie *http.Cookie
		status int
	}{
		{"valid", sessionCookie(t, valid), http.StatusOK},
		{"no cookie", nil, http.StatusUnauthorized},
		{"garbage", &http.Cookie{Name: cookieName, Value: "not.a.token"}, http.StatusUnauthorized},
		{"wrong key", sessionCookie(t, forged), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotLogin = 0, ""
			req := httptest.NewRequest(http.MethodGet, "/api/user/projects", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && (gotID != 7 || gotLogin != "eng") {
				t.Errorf("context user = %d %q", gotID, gotLogin)
			}
		})
	}
}

func TestUserIDMissing(t *testing.T) {
	if _, ok := UserID(context.Background()); ok {
		t.Error("empty context reported a user")
	}
}

func TestLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	h := limiter.LimitMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	for i, addr := range []string{"10.0.0.1:4000", "10.0.0.1:4001"} {
		if code := do(addr); code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, code)
		}
	}
	if code := do("10.0.0.1:4002"); code != http.StatusTooManyRequests {
		t.Errorf("third request from one host status = %d, want 429", code)
	}
	if code := do("10.0.0.2:4000"); code != http.StatusOK {
		t.Errorf("other host status = %d", code)
	}
}
