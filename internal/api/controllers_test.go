package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"trading-intelligence/internal/balance"
	"trading-intelligence/internal/decision"
	"trading-intelligence/internal/events"
	"trading-intelligence/internal/risk"
	"trading-intelligence/internal/session"
	"trading-intelligence/pkg/db"
)

type stubEngine struct{}

func (stubEngine) Generate(_ context.Context, req decision.Request) (decision.Decision, error) {
	return decision.New(decision.Decision{
		Symbol:           req.Symbol,
		Action:           decision.ActionFlat,
		BuyProbability:   0.3,
		SellProbability:  0.3,
		Price:            100,
		PositionFraction: 0.1,
	})
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	bus := events.NewBus()
	manager := session.NewManager(stubEngine{}, database, bus, nil, nil, session.Defaults{
		Timeframe:     "1h",
		Interval:      time.Hour, // no ticks during the test
		BuyThreshold:  0.6,
		SellThreshold: 0.6,
	})
	t.Cleanup(func() { manager.Shutdown(context.Background()) })

	server := NewServer(bus, database, manager, nil, balance.NewFixed(10000), risk.Default(), SystemMeta{
		Version:       "test",
		DefaultSymbol: "BTCUSDT",
		StartedAt:     time.Now(),
	}, "test-secret")

	ts := httptest.NewServer(server.Router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func getJSON(t *testing.T, url, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func registerAndLogin(t *testing.T, base string) string {
	t.Helper()
	creds := map[string]string{"email": "trader@example.com", "password": "hunter22"}
	if resp, _ := postJSON(t, base+"/api/auth/register", "", creds); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp, body := postJSON(t, base+"/api/auth/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	creds := map[string]string{"email": "trader@example.com", "password": "hunter22"}

	if resp, _ := postJSON(t, ts.URL+"/api/auth/register", "", creds); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	if resp, _ := postJSON(t, ts.URL+"/api/auth/register", "", creds); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	bad := map[string]string{"email": "trader@example.com", "password": "wrong"}
	if resp, _ := postJSON(t, ts.URL+"/api/auth/login", "", bad); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp, body := postJSON(t, ts.URL+"/api/auth/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	if body["token"] == "" {
		t.Error("no token in login response")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	if resp, _ := postJSON(t, ts.URL+"/api/trading/start", "", map[string]string{"symbol": "BTCUSDT"}); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("start without token status = %d, want 401", resp.StatusCode)
	}
	if resp, _ := getJSON(t, ts.URL+"/api/sessions/recent", "garbage-token"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestTradingLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts.URL)

	start := map[string]any{"symbol": "btcusdt", "interval_seconds": 30}
	resp, body := postJSON(t, ts.URL+"/api/trading/start", token, start)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, body = %v", resp.StatusCode, body)
	}
	sess, _ := body["session"].(map[string]any)
	if sess["symbol"] != "BTCUSDT" || sess["status"] != "ACTIVE" {
		t.Errorf("session = %v", sess)
	}
	if sess["decision_interval_seconds"] != float64(30) {
		t.Errorf("interval = %v, want 30", sess["decision_interval_seconds"])
	}

	// One active session per symbol.
	if resp, _ := postJSON(t, ts.URL+"/api/trading/start", token, start); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate start status = %d, want 409", resp.StatusCode)
	}

	resp, body = getJSON(t, ts.URL+"/api/trading/status?symbol=BTCUSDT", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status status = %d", resp.StatusCode)
	}

	if resp, _ = postJSON(t, ts.URL+"/api/trading/pause", token, map[string]string{"symbol": "BTCUSDT"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d", resp.StatusCode)
	}
	// Pausing twice is an invalid transition.
	if resp, _ = postJSON(t, ts.URL+"/api/trading/pause", token, map[string]string{"symbol": "BTCUSDT"}); resp.StatusCode != http.StatusConflict {
		t.Errorf("double pause status = %d, want 409", resp.StatusCode)
	}
	if resp, _ = postJSON(t, ts.URL+"/api/trading/resume", token, map[string]string{"symbol": "BTCUSDT"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("resume status = %d", resp.StatusCode)
	}

	resp, body = postJSON(t, ts.URL+"/api/trading/stop", token, map[string]string{"symbol": "BTCUSDT"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	sess, _ = body["session"].(map[string]any)
	if sess["status"] != "STOPPED" {
		t.Errorf("status after stop = %v", sess["status"])
	}

	// Idempotent stop.
	if resp, _ = postJSON(t, ts.URL+"/api/trading/stop", token, map[string]string{"symbol": "BTCUSDT"}); resp.StatusCode != http.StatusOK {
		t.Errorf("second stop status = %d, want 200", resp.StatusCode)
	}
	// Unknown symbol.
	if resp, _ = postJSON(t, ts.URL+"/api/trading/stop", token, map[string]string{"symbol": "DOGEUSDT"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("stop unknown status = %d, want 404", resp.StatusCode)
	}
}

func TestListEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts.URL)

	if _, err := http.Get(ts.URL + "/api/system/status"); err != nil {
		t.Fatalf("system status: %v", err)
	}

	resp, body := getJSON(t, ts.URL+"/api/sessions/recent", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions status = %d", resp.StatusCode)
	}
	if _, ok := body["sessions"]; !ok {
		t.Error("no sessions field")
	}

	resp, body = getJSON(t, ts.URL+"/api/positions", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("positions status = %d", resp.StatusCode)
	}
	if body["count"] != float64(0) {
		t.Errorf("positions count = %v, want 0", body["count"])
	}

	resp, body = getJSON(t, ts.URL+"/api/risk", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("risk status = %d", resp.StatusCode)
	}
	if body["available_balance"] != float64(10000) {
		t.Errorf("available balance = %v, want 10000", body["available_balance"])
	}
}

func TestGetSessionByID(t *testing.T) {
	ts := newTestServer(t)
	token := registerAndLogin(t, ts.URL)

	_, body := postJSON(t, ts.URL+"/api/trading/start", token, map[string]any{"symbol": "BTCUSDT"})
	sess, _ := body["session"].(map[string]any)
	id, _ := sess["session_id"].(string)
	if id == "" {
		t.Fatalf("no session id in start response: %v", body)
	}
	postJSON(t, ts.URL+"/api/trading/stop", token, map[string]string{"symbol": "BTCUSDT"})

	// A stopped session stays addressable by id.
	resp, body := getJSON(t, ts.URL+"/api/sessions/"+id, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session status = %d, body = %v", resp.StatusCode, body)
	}
	got, _ := body["session"].(map[string]any)
	if got["session_id"] != id {
		t.Errorf("session_id = %v, want %s", got["session_id"], id)
	}
	if got["status"] != "STOPPED" {
		t.Errorf("status = %v, want STOPPED", got["status"])
	}

	resp, _ = getJSON(t, ts.URL+"/api/sessions/no-such-id", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
}
