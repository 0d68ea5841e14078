package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eyedraw/eyedraw/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	s := NewService(st, "test-secret")
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	reg, err := s.Register(ctx, "a@clinic.org", "password1", "Dr A")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reg.User.ID, "user_"))

	_, err = s.Register(ctx, "a@clinic.org", "password2", "Dr B")
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := s.Login(ctx, "a@clinic.org", "password1")
	require.NoError(t, err)
	assert.Equal(t, reg.User, login.User)

	_, err = s.Login(ctx, "a@clinic.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "b@clinic.org", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	id, err := s.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id)

	user, err := s.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Dr A", user.DisplayName)
	_, err = s.GetUser(ctx, "user_01h455vb4pex5vsknk084sn02q")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestExpiredAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	reg, err := s.Register(ctx, "a@clinic.org", "password1", "Dr A")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = s.ValidateToken(reg.Token)
	assert.Error(t, err)

	other := NewService(nil, "other-secret")
	token, err := other.issueToken(reg.User.ID)
	require.NoError(t, err)
	_, err = newService(t).ValidateToken(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	reg, err := s.Register(ctx, "a@clinic.org", "password1", "Dr A")
	require.NoError(t, err)

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		query  string
		ws     bool
		status int
	}{
		{name: "bearer", header: "Bearer " + reg.Token, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + reg.Token, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "websocket query", query: reg.Token, ws: true, status: http.StatusOK},
		{name: "query without upgrade", query: reg.Token, status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/pages/p?token="+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.ws {
				req.Header.Set("Upgrade", "websocket")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, reg.User.ID, seen)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	s := newService(t)
	h := NewHandler(s)

	post := func(fn http.HandlerFunc, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		fn(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rec
	}

	rec := post(h.Register, `{"email":"a@clinic.org","password":"short","displayName":"A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = post(h.Register, `{"email":"clinic.org","password":"password1","displayName":"A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h.Register, `{"email":"a@clinic.org","password":"password1","displayName":"A"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var res AuthResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.NotEmpty(t, res.Token)

	rec = post(h.Register, `{"email":"a@clinic.org","password":"password1","displayName":"A"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(h.Login, `{"email":"a@clinic.org","password":"password2"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = post(h.Login, `{"email":"a@clinic.org","password":"password1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	me := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	h.Me(me, req.WithContext(ContextWithUserID(req.Context(), res.User.ID)))
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"email":"a@clinic.org"`)
}
