package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"MiniShop/pkg/kit"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker(testSecret, time.Minute)

	tok, err := tm.New(User{ID: "1", Email: "admin@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "1", c.UserID)
	assert.Equal(t, RoleAdmin, c.Role)
}

func TestTokenMaker_RejectsWrongSecretAndExpired(t *testing.T) {
	tm := NewTokenMaker(testSecret, time.Minute)
	other := NewTokenMaker("another-secret-another-secret-xx", time.Minute)

	tok, err := other.New(User{ID: "1", Role: RoleUser})
	require.NoError(t, err)
	_, err = tm.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenMaker(testSecret, -time.Minute)
	tok, err = expired.New(User{ID: "1", Role: RoleUser})
	require.NoError(t, err)
	_, err = tm.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_RejectsNoneAlg(t *testing.T) {
	tm := NewTokenMaker(testSecret, time.Minute)

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "1",
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "minishop-auth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Parse(raw)
	assert.Error(t, err)
}

func TestMemStore_SeedAndVerify(t *testing.T) {
	s, err := NewSeededStore(bcrypt.MinCost)
	require.NoError(t, err)

	u, err := s.Verify("  ADMIN@example.com ", "admin123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	_, err = s.Verify("admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.ErrorIs(t, s.Create("user@example.com", "whatever1", RoleUser, "x"), ErrEmailExists)
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenMaker(testSecret, time.Minute)
	h := AuthJWT(tm)(RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	cases := []struct {
		name string
		user *User
		want int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"shopper", &User{ID: "2", Role: RoleUser}, http.StatusForbidden},
		{"admin", &User{ID: "1", Role: RoleAdmin}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
			if tc.user != nil {
				tok, err := tm.New(*tc.user)
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+tok)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMemStore_PaddedPasswordRoundTrip(t *testing.T) {
	s := NewMemStore()
	s.cost = bcrypt.MinCost
	require.NoError(t, s.Create("pad@example.com", " secretpass1 ", RoleUser, "u1"))

	_, err := s.Verify("pad@example.com", " secretpass1 ")
	assert.NoError(t, err)
	_, err = s.Verify("pad@example.com", "secretpass1")
	assert.NoError(t, err)
}

func TestServer_RegisterThenLoginWithPaddedPassword(t *testing.T) {
	store := NewMemStore()
	store.cost = bcrypt.MinCost
	srv := &Server{
		Log:      zap.NewNop(),
		Store:    store,
		JWT:      NewTokenMaker(testSecret, time.Minute),
		Validate: kit.NewValidator(),
	}
	h := srv.Routes()

	body := `{"email":"pad@example.com","password":" secretpass1 "}`
	post := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return rec
	}

	rec := post("/register")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = post("/login")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"token"`)
}
