package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phone-verification-api/internal/application/verification"
	"github.com/phone-verification-api/internal/config"
	"github.com/phone-verification-api/internal/domain"
	"github.com/phone-verification-api/internal/infrastructure/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{AllowedOrigins: []string{"*"}}
	deps := &Deps{
		Verifications: verification.NewService(memory.NewVerificationRepo()),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Registry:      prometheus.NewRegistry(),
	}
	srv := httptest.NewServer(NewRouter(cfg, deps))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func upsert(phone, username, code string) domain.UpsertVerificationRequest {
	return domain.UpsertVerificationRequest{Phone: phone, Username: username, VerificationCode: code}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	status, env := do(t, srv, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"status":"healthy"}`, string(env.Data))
}

func TestUpsertTwice_UpdatesInPlace(t *testing.T) {
	srv := newTestServer(t)

	status, env := do(t, srv, http.MethodPost, "/api/verifications", upsert("13800000000", "alice", "1234"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "verification code created", env.Message)
	var first domain.Verification
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	status, env = do(t, srv, http.MethodPut, "/api/verifications", upsert("13800000001", "alice", "5678"))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "verification code updated", env.Message)
	var second domain.Verification
	require.NoError(t, json.Unmarshal(env.Data, &second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "13800000001", second.Phone)
	assert.Equal(t, "5678", second.VerificationCode)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	status, env = do(t, srv, http.MethodGet, "/api/verifications/alice", nil)
	require.Equal(t, http.StatusOK, status)
	var rows []domain.Verification
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "5678", rows[0].VerificationCode)
	assert.Equal(t, "13800000001", rows[0].Phone)
}

func TestPhoneLookups(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/verifications", upsert("13800000000", "alice", "1234"))

	status, env := do(t, srv, http.MethodGet, "/api/phone/alice", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"phone":"13800000000","username":"alice"}`, string(env.Data))

	status, env = do(t, srv, http.MethodPost, "/api/phone", domain.PhoneLookupRequest{Username: "alice"})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"phone":"13800000000","username":"alice"}`, string(env.Data))

	status, env = do(t, srv, http.MethodGet, "/api/phone/nobody", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "no phone number found for this user", env.Message)

	status, _ = do(t, srv, http.MethodPost, "/api/phone", domain.PhoneLookupRequest{Username: "nobody"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListAll_NewestFirst(t *testing.T) {
	srv := newTestServer(t)
	for _, u := range []string{"alice", "bob", "carol"} {
		status, _ := do(t, srv, http.MethodPost, "/api/verifications", upsert("1", u, "1234"))
		require.Equal(t, http.StatusOK, status)
	}

	status, env := do(t, srv, http.MethodGet, "/api/verifications", nil)
	require.Equal(t, http.StatusOK, status)
	var rows []domain.Verification
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].CreatedAt.After(rows[i-1].CreatedAt))
	}
}

func TestListByUsername_Unknown404(t *testing.T) {
	srv := newTestServer(t)
	status, env := do(t, srv, http.MethodGet, "/api/verifications/nobody", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "no records found for this user", env.Message)
}

func TestValidationOnEveryEndpoint(t *testing.T) {
	srv := newTestServer(t)
	long := strings.Repeat("u", 101)
	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"upsert short username", http.MethodPost, "/api/verifications", upsert("1", "a", "1234")},
		{"upsert long username", http.MethodPut, "/api/verifications", upsert("1", long, "1234")},
		{"upsert short code", http.MethodPost, "/api/verifications", upsert("1", "alice", "123")},
		{"upsert long code", http.MethodPost, "/api/verifications", upsert("1", "alice", "123456789")},
		{"phone path short", http.MethodGet, "/api/phone/a", nil},
		{"phone path long", http.MethodGet, "/api/phone/" + long, nil},
		{"phone body short", http.MethodPost, "/api/phone", domain.PhoneLookupRequest{Username: "a"}},
		{"phone body long", http.MethodPost, "/api/phone", domain.PhoneLookupRequest{Username: long}},
		{"records path short", http.MethodGet, "/api/verifications/a", nil},
		{"records path long", http.MethodGet, "/api/verifications/" + long, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := do(t, srv, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/verifications", upsert("1", "alice", "1234"))
	do(t, srv, http.MethodPost, "/api/verifications", upsert("2", "alice", "5678"))

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(b)
	assert.Contains(t, text, `verification_upserts_total{outcome="created"} 1`)
	assert.Contains(t, text, `verification_upserts_total{outcome="updated"} 1`)
	assert.Contains(t, text, `http_requests_total{method="POST",route="/api/verifications",status="200"} 2`)
}

func TestRequestLog_WrittenThroughSlog(t *testing.T) {
	var buf bytes.Buffer
	deps := &Deps{
		Verifications: verification.NewService(memory.NewVerificationRepo()),
		Logger:        slog.New(slog.NewTextHandler(&buf, nil)),
	}
	router := NewRouter(&config.Config{AllowedOrigins: []string{"*"}}, deps)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	line := buf.String()
	assert.Contains(t, line, "level=INFO")
	assert.Contains(t, line, "GET")
	assert.Contains(t, line, "/health")
	assert.Contains(t, line, " - 200")
}
