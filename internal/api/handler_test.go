package api

import (
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/feelbuddy/internal/feeling"
	"github.com/kalambet/feelbuddy/internal/journal"
	"github.com/kalambet/feelbuddy/internal/mood"
	"github.com/kalambet/feelbuddy/internal/quote"
	"github.com/kalambet/feelbuddy/internal/session"
	"github.com/kalambet/feelbuddy/internal/storage"
)

const testToken = "test-token"

var testUser = feeling.User{Phone: "9876543210", Name: "Arjun", City: "Bengaluru"}

func newTestDeps(t *testing.T) AppDeps {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	migrations, err := store.AppliedMigrations()
	if err != nil || len(migrations) == 0 {
		t.Fatalf("AppliedMigrations = %v, %v", migrations, err)
	}

	quotes := quote.NewSelectorWithRand(rand.New(rand.NewSource(7)))
	ctrl := session.NewController(journal.NewManager(store, nil), quotes, nil)
	return AppDeps{
		Session:  ctrl,
		Quotes:   quotes,
		Location: time.UTC,
		Token:    testToken,

		SchemaVersion: migrations[len(migrations)-1],
	}
}

func onboard(t *testing.T, deps AppDeps) {
	t.Helper()
	if _, err := deps.Session.Login(testUser); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]map[string]string](t, rr)
	return body["error"]["type"]
}

func TestHealth(t *testing.T) {
	h := NewAppHandler(newTestDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decode[map[string]any](t, rr)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status=ok", body)
	}
	if body["agent"] != false {
		t.Errorf("agent should be reported unavailable, got %v", body["agent"])
	}
	if v, _ := body["schema"].(float64); v < 1 {
		t.Errorf("schema = %v, want the applied migration version", body["schema"])
	}
}

func TestBearerAuth(t *testing.T) {
	h := NewAppHandler(newTestDeps(t))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", "", http.StatusUnauthorized},
		{"not bearer", "Basic " + testToken, "", http.StatusUnauthorized},
		{"header", "Bearer " + testToken, "", http.StatusOK},
		{"query", "", "?token=" + testToken, http.StatusOK},
		{"header wins over query", "Bearer nope", "?token=" + testToken, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/catalog"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestBearerAuth_EmptyTokenRejectsAll(t *testing.T) {
	deps := newTestDeps(t)
	deps.Token = ""
	h := NewAppHandler(deps)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", "Bearer ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestProfile(t *testing.T) {
	h := NewAppHandler(newTestDeps(t))

	rr := do(t, h, http.MethodGet, "/profile", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status before onboarding = %d, want 404", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/profile", `{"name":"Arjun","phone":""}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("incomplete profile status = %d, want 400", rr.Code)
	}

	rr = do(t, h, http.MethodPut, "/profile", `{"name":"Arjun","phone":"9876543210","city":"Bengaluru"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/profile", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rr.Code)
	}
	if u := decode[feeling.User](t, rr); u != testUser {
		t.Errorf("profile = %+v, want %+v", u, testUser)
	}
}

func TestCatalog(t *testing.T) {
	h := NewAppHandler(newTestDeps(t))
	rr := do(t, h, http.MethodGet, "/catalog", "")
	types := decode[[]feeling.Type](t, rr)
	if len(types) != len(feeling.Catalog) {
		t.Errorf("catalog has %d types, want %d", len(types), len(feeling.Catalog))
	}
}

func TestCheckInAndList(t *testing.T) {
	deps := newTestDeps(t)
	h := NewAppHandler(deps)

	rr := do(t, h, http.MethodPost, "/feelings", `{"type":"Happy","intensity":4}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("check-in before onboarding = %d, want 409", rr.Code)
	}

	onboard(t, deps)

	rr = do(t, h, http.MethodPost, "/feelings", `{"type":"Happy","intensity":9}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range intensity = %d, want 400", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/feelings", `{not json`)
	if rr.Code != http.StatusBadRequest || errorType(t, rr) != "invalid_request_error" {
		t.Fatalf("malformed body = %d", rr.Code)
	}

	for _, body := range []string{
		`{"type":"Happy","intensity":5}`,
		`{"type":"Sad","intensity":2,"note":"missed the bus"}`,
		`{"type":"Calm","intensity":3}`,
	} {
		rr = do(t, h, http.MethodPost, "/feelings", body)
		if rr.Code != http.StatusCreated {
			t.Fatalf("POST %s = %d: %s", body, rr.Code, rr.Body.String())
		}
	}

	all := decode[[]feeling.Entry](t, do(t, h, http.MethodGet, "/feelings", ""))
	if len(all) != 3 || all[0].Type != "Happy" || all[2].Type != "Calm" {
		t.Errorf("unexpected log: %+v", all)
	}
	if all[1].Note != "missed the bus" {
		t.Errorf("note lost: %+v", all[1])
	}

	limited := decode[[]feeling.Entry](t, do(t, h, http.MethodGet, "/feelings?limit=2", ""))
	if len(limited) != 2 || limited[0].Type != "Sad" {
		t.Errorf("limit=2 should return the last two, oldest first: %+v", limited)
	}
}

func TestStatsChartQuoteHome(t *testing.T) {
	deps := newTestDeps(t)
	h := NewAppHandler(deps)

	chart := decode[chartResponse](t, do(t, h, http.MethodGet, "/chart", ""))
	if chart.Ready || len(chart.Points) != 0 {
		t.Errorf("empty chart should not be ready: %+v", chart)
	}
	q := decode[quote.Quote](t, do(t, h, http.MethodGet, "/quote", ""))
	if q.Text != quote.PlaceholderText {
		t.Errorf("quote = %q, want placeholder", q.Text)
	}
	stats := decode[mood.Report](t, do(t, h, http.MethodGet, "/stats", ""))
	if stats.Stability != 100 || stats.DominantMood != mood.NeutralMood {
		t.Errorf("empty stats = %+v", stats)
	}

	onboard(t, deps)
	for _, body := range []string{`{"type":"Sad","intensity":5}`, `{"type":"Sad","intensity":1}`, `{"type":"Happy","intensity":3}`} {
		do(t, h, http.MethodPost, "/feelings", body)
	}

	stats = decode[mood.Report](t, do(t, h, http.MethodGet, "/stats", ""))
	if stats.DominantMood != "Sad" {
		t.Errorf("dominant = %q, want Sad", stats.DominantMood)
	}
	if stats.TotalEntries != 3 {
		t.Errorf("total = %d, want 3", stats.TotalEntries)
	}

	chart = decode[chartResponse](t, do(t, h, http.MethodGet, "/chart", ""))
	if !chart.Ready || len(chart.Points) != 3 {
		t.Errorf("chart = %+v", chart)
	}

	q = decode[quote.Quote](t, do(t, h, http.MethodGet, "/quote", ""))
	if q.Mood != "Happy" || q.Emoji == "" {
		t.Errorf("quote should follow the latest feeling: %+v", q)
	}

	home := decode[session.Home](t, do(t, h, http.MethodGet, "/home", ""))
	if home.User.Name != "Arjun" || home.LastFeeling == nil || home.LastFeeling.Type != "Happy" {
		t.Errorf("home = %+v", home)
	}
}

func TestStateEndpoints(t *testing.T) {
	deps := newTestDeps(t)
	h := NewAppHandler(deps)

	s := decode[stateResponse](t, do(t, h, http.MethodGet, "/state", ""))
	if s.View != session.ViewSplash || s.ShowsNav {
		t.Errorf("initial state = %+v", s)
	}

	s = decode[stateResponse](t, do(t, h, http.MethodPost, "/state/splash", ""))
	if s.View != session.ViewAuth {
		t.Errorf("after splash = %s, want AUTH", s.View)
	}

	s = decode[stateResponse](t, do(t, h, http.MethodPost, "/state/view", `{"view":"BUDDY"}`))
	if s.View != session.ViewAuth {
		t.Errorf("BUDDY without user = %s, want AUTH", s.View)
	}

	rr := do(t, h, http.MethodPost, "/state/view", `{"view":"SETTINGS"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown view status = %d, want 400", rr.Code)
	}

	do(t, h, http.MethodPut, "/profile", `{"name":"Arjun","phone":"9876543210","city":"Bengaluru"}`)
	s = decode[stateResponse](t, do(t, h, http.MethodPost, "/state/view", `{"view":"CREATE"}`))
	if s.View != session.ViewCreate || !s.ShowsNav {
		t.Errorf("after navigate = %+v", s)
	}
	s = decode[stateResponse](t, do(t, h, http.MethodPost, "/state/cancel", ""))
	if s.View != session.ViewHome {
		t.Errorf("after cancel = %s, want HOME", s.View)
	}
}

func TestExportAndPurge(t *testing.T) {
	deps := newTestDeps(t)
	h := NewAppHandler(deps)
	onboard(t, deps)
	if rr := do(t, h, http.MethodPost, "/feelings", `{"type":"Calm","intensity":3}`); rr.Code != http.StatusCreated && rr.Code != http.StatusOK {
		t.Fatalf("check-in = %d", rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/data/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export = %d, want 200", rr.Code)
	}
	recs := decode[[]storage.Record](t, rr)
	keys := map[string]bool{}
	for _, rec := range recs {
		keys[rec.Key] = true
	}
	if !keys[storage.KeyUser] || !keys[storage.KeyFeelings] {
		t.Errorf("exported keys = %v, want user and feelings", keys)
	}

	rr = do(t, h, http.MethodDelete, "/data", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("purge = %d, want 200", rr.Code)
	}
	st := decode[stateResponse](t, rr)
	if st.View != session.ViewAuth || st.User != nil || st.Entries != 0 {
		t.Errorf("state after purge = %+v", st)
	}

	rr = do(t, h, http.MethodGet, "/data/export", "")
	if recs := decode[[]storage.Record](t, rr); len(recs) != 0 {
		t.Errorf("export after purge = %+v, want empty", recs)
	}
	if rr := do(t, h, http.MethodGet, "/profile", ""); rr.Code == http.StatusOK {
		t.Errorf("profile after purge = %d, want not found", rr.Code)
	}
}
