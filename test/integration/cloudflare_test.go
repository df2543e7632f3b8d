package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	logrtesting "github.com/go-logr/logr/testing"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/config"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/dns/cloudflare"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/metrics"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/wizard"
)

const validToken = "cf-token-0123456789"

// fakeCloudflare is a minimal in-memory Cloudflare v4 API for testing.
type fakeCloudflare struct {
	mu      sync.Mutex
	zones   map[string]string // id -> name
	records map[string]dnsRecord
	nextID  int
	calls   []string // tracks endpoint calls in order
}

type dnsRecord struct {
	ZoneID  string `json:"zone_id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newFakeCloudflare() *fakeCloudflare {
	return &fakeCloudflare{
		zones:   map[string]string{"abc123": "example.com"},
		records: map[string]dnsRecord{},
	}
}

func (f *fakeCloudflare) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+validToken {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{
			"success": false,
			"errors":  []apiError{{Code: 9109, Message: "Invalid access token"}},
			"result":  nil,
		})
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/client/v4/zones":
		f.handleListZones(w, r)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/client/v4/zones/") && strings.HasSuffix(r.URL.Path, "/dns_records"):
		f.handleCreateRecord(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeCloudflare) handleListZones(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	type zone struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	zones := []zone{}
	for id, name := range f.zones {
		zones = append(zones, zone{ID: id, Name: name})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "errors": []apiError{}, "result": zones})
}

func (f *fakeCloudflare) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	zoneID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/client/v4/zones/"), "/dns_records")

	var rec dnsRecord
	if err := readJSON(r, &rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "errors": []apiError{{Code: 1000, Message: err.Error()}}})
		return
	}
	rec.ZoneID = zoneID

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.zones[zoneID]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "errors": []apiError{{Code: 7003, Message: "Could not route to /zones/" + zoneID + "/dns_records, perhaps your object identifier is invalid?"}}})
		return
	}
	for _, existing := range f.records {
		if existing.ZoneID == zoneID && existing.Name == rec.Name && existing.Type == rec.Type {
			// Cloudflare answers duplicates with 200 and success=false.
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "errors": []apiError{{Code: 81057, Message: "Record already exists."}}})
			return
		}
	}

	f.nextID++
	id := fmt.Sprintf("rec_%d", f.nextID)
	f.records[id] = rec
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"errors":  []apiError{},
		"result":  map[string]interface{}{"id": id, "name": rec.Name, "type": rec.Type, "content": rec.Content},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func newWizard(t *testing.T, serverURL string) *wizard.Wizard {
	t.Helper()
	p, err := cloudflare.New(logrtesting.NewTestLogger(t), map[string]string{
		"base_url": serverURL + "/client/v4",
		"timeout":  "5s",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return &wizard.Wizard{
		DNS:      p,
		Sessions: wizard.NewStore(),
		Domains:  config.NewDomainMap(),
		Metrics:  metrics.NewRecorder(prometheus.NewRegistry()),
		Log:      logrtesting.NewTestLogger(t),
	}
}

func send(t *testing.T, w *wizard.Wizard, user int64, input string) wizard.Reply {
	t.Helper()
	r, ok := w.HandleText(context.Background(), user, input)
	if !ok {
		t.Fatalf("HandleText(%q): no active session", input)
	}
	return r
}

// button returns the callback data of the action button offered in r.
func button(t *testing.T, r wizard.Reply, action string) string {
	t.Helper()
	for _, c := range r.Choices {
		if strings.HasPrefix(c.Data, action+":") {
			return c.Data
		}
	}
	t.Fatalf("no %q button in reply %+v", action, r)
	return ""
}

func TestCreateWildcardRecord(t *testing.T) {
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w := newWizard(t, srv.URL)
	const user = 1001

	w.Start(user)
	r := send(t, w, user, validToken)
	if !strings.Contains(r.Text, "example.com (ID: abc123)") {
		t.Fatalf("expected zone listing, got %q", r.Text)
	}
	send(t, w, user, "abc123")
	send(t, w, user, "example.com")
	r = send(t, w, user, "203.0.113.5")
	if len(r.Choices) != 2 {
		t.Fatalf("expected confirmation choices, got %+v", r)
	}

	r = w.HandleChoice(context.Background(), user, button(t, r, wizard.ChoiceConfirm))
	if !strings.Contains(r.Text, "rec_1") {
		t.Fatalf("expected record id in reply, got %q", r.Text)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(fake.records))
	}
	rec := fake.records["rec_1"]
	if rec.Type != "A" {
		t.Errorf("expected type 'A', got %q", rec.Type)
	}
	if rec.Name != "*.example.com" {
		t.Errorf("expected name '*.example.com', got %q", rec.Name)
	}
	if rec.Content != "203.0.113.5" {
		t.Errorf("expected content '203.0.113.5', got %q", rec.Content)
	}
	if rec.TTL != 1 {
		t.Errorf("expected auto ttl 1, got %d", rec.TTL)
	}
	if rec.Proxied {
		t.Error("expected proxied=false")
	}
	if rec.ZoneID != "abc123" {
		t.Errorf("expected zone 'abc123', got %q", rec.ZoneID)
	}
}

func TestInvalidTokenRePrompts(t *testing.T) {
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w := newWizard(t, srv.URL)
	const user = 1002

	w.Start(user)
	send(t, w, user, "not-the-right-token")

	state, ok := w.State(user)
	if !ok || state != wizard.StateAwaitCredential {
		t.Fatalf("expected to stay awaiting credential, got %v (%v)", state, ok)
	}

	send(t, w, user, validToken)
	if state, _ := w.State(user); state != wizard.StateAwaitZone {
		t.Fatalf("expected to advance with valid token, got %v", state)
	}
}

func TestNoZonesRePrompts(t *testing.T) {
	fake := newFakeCloudflare()
	fake.zones = map[string]string{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w := newWizard(t, srv.URL)
	const user = 1003

	w.Start(user)
	r := send(t, w, user, validToken)
	if !strings.Contains(r.Text, "no zones") {
		t.Errorf("expected no-zones message, got %q", r.Text)
	}
	if state, _ := w.State(user); state != wizard.StateAwaitCredential {
		t.Fatalf("expected to stay awaiting credential, got %v", state)
	}
}

func TestDuplicateRecordReportsProviderError(t *testing.T) {
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w := newWizard(t, srv.URL)
	run := func(user int64) wizard.Reply {
		w.Start(user)
		send(t, w, user, validToken)
		send(t, w, user, "abc123")
		send(t, w, user, "example.com")
		r := send(t, w, user, "203.0.113.5")
		return w.HandleChoice(context.Background(), user, button(t, r, wizard.ChoiceConfirm))
	}

	run(2001)
	r := run(2002)
	if !strings.Contains(r.Text, "Record already exists.") {
		t.Errorf("expected provider error message, got %q", r.Text)
	}
	if _, ok := w.State(2002); ok {
		t.Error("expected session discarded after failure")
	}
}

func TestUnknownZoneReportsProviderError(t *testing.T) {
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w := newWizard(t, srv.URL)
	const user = 1004

	w.Start(user)
	send(t, w, user, validToken)
	send(t, w, user, "missing-zone")
	send(t, w, user, "example.com")
	r := send(t, w, user, "203.0.113.5")
	r = w.HandleChoice(context.Background(), user, button(t, r, wizard.ChoiceConfirm))

	if !strings.Contains(r.Text, "perhaps your object identifier is invalid") {
		t.Errorf("expected provider error message, got %q", r.Text)
	}
}

func TestProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(newFakeCloudflare())
	url := srv.URL
	srv.Close()

	w := newWizard(t, url)
	const user = 1005

	w.Start(user)
	r := send(t, w, user, validToken)
	if !strings.Contains(r.Text, "An error occurred") {
		t.Errorf("expected transport error message, got %q", r.Text)
	}
	if state, _ := w.State(user); state != wizard.StateAwaitCredential {
		t.Fatalf("expected to stay awaiting credential, got %v", state)
	}
}

func TestCallsMadeInOrder(t *testing.T) {
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	w := newWizard(t, srv.URL)
	const user = 1006

	w.Start(user)
	send(t, w, user, "short")
	send(t, w, user, validToken)
	send(t, w, user, "abc123")
	send(t, w, user, "example.com")
	r := send(t, w, user, "203.0.113.5")
	w.HandleChoice(context.Background(), user, button(t, r, wizard.ChoiceCancel))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	want := []string{"GET /client/v4/zones"}
	if len(fake.calls) != len(want) || fake.calls[0] != want[0] {
		t.Errorf("expected calls %v, got %v", want, fake.calls)
	}
}
