package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-table-allocation/internal/config"
	"github.com/iliyamo/restaurant-table-allocation/internal/model"
	"github.com/iliyamo/restaurant-table-allocation/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	a, ok := Actor(c)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, a)
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	good, err := utils.NewAccessToken(secret, 42, model.RoleHost, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := utils.NewAccessToken("other", 42, model.RoleOwner, time.Minute)
	expired, _ := utils.NewAccessToken(secret, 42, model.RoleHost, -time.Minute)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", good.Token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", forged.Token, http.StatusUnauthorized},
		{"expired", expired.Token, http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/me", tt.token)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	rec := serve(e, http.MethodGet, "/me", good.Token)
	if body := rec.Body.String(); body != "{\"UserID\":42,\"Role\":\"HOST\"}\n" {
		t.Fatalf("body = %q", body)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/decide", whoami, JWTAuth(secret), RequireRole(model.RoleOwner, model.RoleSupervisor))

	for role, want := range map[string]int{
		model.RoleOwner:      http.StatusOK,
		model.RoleSupervisor: http.StatusOK,
		model.RoleHost:       http.StatusForbidden,
		model.RoleClient:     http.StatusForbidden,
	} {
		tok, _ := utils.NewAccessToken(secret, 7, role, time.Minute)
		if rec := serve(e, http.MethodGet, "/decide", tok.Token); rec.Code != want {
			t.Errorf("%s: status = %d, want %d", role, rec.Code, want)
		}
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		in   interface{}
		want uint64
		ok   bool
	}{
		{float64(12), 12, true},
		{"12", 12, true},
		{float64(0), 0, false},
		{float64(1.5), 0, false},
		{"-3", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := subject(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("subject(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTokenBucketFallsBackInProcess(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/reservations", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, nil))

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(e, http.MethodPost, "/reservations", "").Code)
	}
	want := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
	rec := serve(e, http.MethodPost, "/reservations", "")
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestLocalBucketsPruneIdleKeys(t *testing.T) {
	b := newLocalBuckets(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
	start := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)

	if ok, _, _ := b.take("a", start); !ok {
		t.Fatal("first take should pass")
	}
	if ok, _, retry := b.take("a", start); ok || retry <= 0 {
		t.Fatalf("second take: ok=%v retry=%v", ok, retry)
	}
	b.take("b", start.Add(2*time.Minute))
	if _, found := b.visitors["a"]; found {
		t.Fatal("idle key not pruned")
	}
}

func TestCachePassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	calls := 0
	h := func(c echo.Context) error { calls++; return c.String(http.StatusOK, "ok") }
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	e.GET("/a", h, NewRedisCache(cfg, nil), InvalidateOnWrite(cfg, nil))

	serve(e, http.MethodGet, "/a", "")
	serve(e, http.MethodGet, "/a", "")
	if calls != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestBumpGenerationToleratesMissingRedis(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Prefix: "avail"}
	BumpGeneration(cfg, nil)(context.Background())
	BumpGeneration(config.CacheConfig{}, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))(context.Background())

	// An unreachable server is logged, not fatal.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	BumpGeneration(cfg, rdb)(context.Background())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"slots":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"slots":[]}` {
		t.Fatalf("decoded %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Fatal("short payload accepted")
	}
}

func TestCaptureWriterLimit(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 4}
	cw.Write([]byte("abc"))
	if cw.truncated() {
		t.Fatal("not yet truncated")
	}
	cw.Write([]byte("de"))
	if !cw.truncated() {
		t.Fatal("expected truncation")
	}
}
