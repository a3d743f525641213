package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xelth-com/pantrysync/internal/accounting"
	"github.com/xelth-com/pantrysync/internal/baseline"
	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/interchange"
	"github.com/xelth-com/pantrysync/internal/models"
	"github.com/xelth-com/pantrysync/internal/remote"
	"github.com/xelth-com/pantrysync/internal/storage"
	tripsync "github.com/xelth-com/pantrysync/internal/sync"
	"github.com/xelth-com/pantrysync/internal/utils"
)

const testSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	store  *catalog.Store
	acct   *accounting.Tracker
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := catalog.NewStore(nil, nil)
	adapter := storage.NewAdapter(storage.NewMemoryKV(), nil)
	acct := accounting.NewTracker(remote.NewMemoryStore(), accounting.Options{MaxCallLog: 50}, nil)
	engine, err := tripsync.NewEngine(tripsync.Deps{
		Store:    store,
		Baseline: baseline.NewTracker(adapter, nil),
		Remote:   acct,
		States:   adapter,
		DeviceID: "device-test",
		Node:     1,
	}, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	router := NewRouter(Deps{
		Store:       store,
		Engine:      engine,
		Interchange: interchange.NewService(store, adapter, "device-test", "test", nil),
		Accounting:  acct,
		JWTSecret:   testSecret,
		DeviceID:    "device-test",
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	token, err := utils.GenerateToken("family-1", "device-test", testSecret, utils.DefaultTokenTTL)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return &testEnv{server: server, store: store, acct: acct, token: token}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return e.do(t, method, path, "application/json", r)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status %d, want %d (body %s)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/api/products")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusUnauthorized)

	env.token = "garbage"
	expectStatus(t, env.doJSON(t, "GET", "/api/products", ""), http.StatusUnauthorized)
}

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, "POST", "/api/products", `{"name":"Milk","category":"cat_dairy"}`)
	expectStatus(t, resp, http.StatusCreated)
	var milk models.Product
	decode(t, resp, &milk)
	if milk.ID == "" || milk.Category != "cat_dairy" {
		t.Fatalf("unexpected product %#v", milk)
	}

	// same name, different case returns the existing product
	resp = env.doJSON(t, "POST", "/api/products", `{"name":" milk "}`)
	expectStatus(t, resp, http.StatusOK)
	var again models.Product
	decode(t, resp, &again)
	if again.ID != milk.ID {
		t.Errorf("duplicate created: %s != %s", again.ID, milk.ID)
	}

	expectStatus(t, env.doJSON(t, "POST", "/api/products", `{"name":"  "}`), http.StatusBadRequest)
	expectStatus(t, env.doJSON(t, "POST", "/api/products", `{`), http.StatusBadRequest)

	resp = env.doJSON(t, "PATCH", "/api/products/"+milk.ID, `{"name":"Oat milk"}`)
	expectStatus(t, resp, http.StatusOK)
	var renamed models.Product
	decode(t, resp, &renamed)
	if renamed.Name != "Oat milk" {
		t.Errorf("rename: got %q", renamed.Name)
	}

	env.doJSON(t, "POST", "/api/products", `{"name":"Bread"}`)
	expectStatus(t, env.doJSON(t, "PATCH", "/api/products/"+milk.ID, `{"name":"bread"}`), http.StatusConflict)

	expectStatus(t, env.doJSON(t, "GET", "/api/products/"+milk.ID, ""), http.StatusOK)
	expectStatus(t, env.doJSON(t, "DELETE", "/api/products/"+milk.ID, ""), http.StatusNoContent)
	expectStatus(t, env.doJSON(t, "GET", "/api/products/"+milk.ID, ""), http.StatusNotFound)
	expectStatus(t, env.doJSON(t, "DELETE", "/api/products/"+milk.ID, ""), http.StatusNotFound)
}

func TestSetFlag(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.store.Add("Eggs", "cat_dairy")
	base := "/api/products/" + p.ID + "/flags/"

	expectStatus(t, env.doJSON(t, "PUT", base+"bogus", `{"value":true}`), http.StatusBadRequest)
	expectStatus(t, env.doJSON(t, "PUT", base+models.FlagInStock, `{}`), http.StatusBadRequest)
	expectStatus(t, env.doJSON(t, "PUT", "/api/products/nope/flags/"+models.FlagInStock, `{"value":true}`), http.StatusNotFound)

	// completed requires the item to be on the shopping list
	expectStatus(t, env.doJSON(t, "PUT", base+models.FlagCompleted, `{"value":true}`), http.StatusConflict)

	resp := env.doJSON(t, "PUT", base+models.FlagInShopping, `{"value":true}`)
	expectStatus(t, resp, http.StatusOK)
	var got models.Product
	decode(t, resp, &got)
	if !got.InShopping {
		t.Error("inShopping not set")
	}
}

func TestShoppingFlow(t *testing.T) {
	env := newTestEnv(t)

	expectStatus(t, env.doJSON(t, "POST", "/api/shopping", `{"name":"Apples","category":"cat_fruit"}`), http.StatusOK)
	resp := env.doJSON(t, "POST", "/api/shopping", `{"name":"Milk","category":"cat_dairy"}`)
	expectStatus(t, resp, http.StatusOK)
	var milk models.Product
	decode(t, resp, &milk)

	expectStatus(t, env.doJSON(t, "PUT", "/api/products/"+milk.ID+"/flags/completed", `{"value":true}`), http.StatusOK)

	resp = env.doJSON(t, "GET", "/api/shopping", "")
	expectStatus(t, resp, http.StatusOK)
	var list struct {
		Items  []models.Product         `json:"items"`
		Stats  catalog.ShoppingStats    `json:"stats"`
		Groups []map[string]interface{} `json:"groups"`
	}
	decode(t, resp, &list)
	if len(list.Items) != 2 || list.Stats.Completed != 1 || list.Stats.Remaining != 1 {
		t.Fatalf("unexpected list %#v", list)
	}
	if len(list.Groups) != 2 {
		t.Errorf("groups = %d, want 2", len(list.Groups))
	}

	resp = env.doJSON(t, "POST", "/api/shopping/clear-completed", "")
	expectStatus(t, resp, http.StatusOK)
	var cleared struct {
		Cleared []string `json:"cleared"`
	}
	decode(t, resp, &cleared)
	if len(cleared.Cleared) != 1 || cleared.Cleared[0] != milk.ID {
		t.Errorf("cleared = %v", cleared.Cleared)
	}

	got, _ := env.store.Get(milk.ID)
	if got.InShopping || got.Completed || !got.InStock {
		t.Errorf("milk after clear: %#v", got)
	}
}

func TestTripCycleStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddToShopping("Milk", "cat_dairy")

	// done needs a trip in progress
	resp := env.doJSON(t, "POST", "/api/trip/done", "")
	expectStatus(t, resp, http.StatusPreconditionFailed)
	var failure map[string]string
	decode(t, resp, &failure)
	if failure["operation"] != string(tripsync.OpShoppingDone) {
		t.Errorf("operation = %q", failure["operation"])
	}

	expectStatus(t, env.doJSON(t, "POST", "/api/trip/prepare", ""), http.StatusOK)
	expectStatus(t, env.doJSON(t, "POST", "/api/trip/download", ""), http.StatusOK)
	expectStatus(t, env.doJSON(t, "POST", "/api/trip/download", ""), http.StatusPreconditionFailed)

	resp = env.doJSON(t, "GET", "/api/trip/status", "")
	expectStatus(t, resp, http.StatusOK)
	var st tripsync.Status
	decode(t, resp, &st)
	if st.State != tripsync.StateInProgress || st.TripID == "" {
		t.Fatalf("status %#v", st)
	}

	expectStatus(t, env.doJSON(t, "POST", "/api/trip/done", ""), http.StatusOK)
	expectStatus(t, env.doJSON(t, "POST", "/api/trip/refresh", ""), http.StatusOK)

	resp = env.doJSON(t, "GET", "/api/trip/status", "")
	decode(t, resp, &st)
	if st.State != tripsync.StateIdle {
		t.Errorf("state after refresh = %s", st.State)
	}
}

func TestImportValidation(t *testing.T) {
	env := newTestEnv(t)
	env.store.Add("Keep me", "")

	cases := map[string]string{
		"not json":     `{`,
		"no data":      `{"version":"2.0"}`,
		"no products":  `{"data":{}}`,
		"missing name": `{"data":{"allProducts":[{"id":"p1"}]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			expectStatus(t, env.doJSON(t, "POST", "/api/import", body), http.StatusBadRequest)
		})
	}
	if env.store.Len() != 1 {
		t.Errorf("store changed by rejected import: %d products", env.store.Len())
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddToShopping("Bananas", "cat_fruit")

	resp := env.doJSON(t, "GET", "/api/export", "")
	expectStatus(t, resp, http.StatusOK)
	if !strings.HasPrefix(resp.Header.Get("Content-Disposition"), "attachment;") {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	raw, _ := io.ReadAll(resp.Body)

	other := newTestEnv(t)
	resp = other.do(t, "POST", "/api/import", "application/json", bytes.NewReader(raw))
	expectStatus(t, resp, http.StatusOK)
	var res interchange.ImportResult
	decode(t, resp, &res)
	if res.Imported != 1 {
		t.Errorf("imported = %d", res.Imported)
	}
	if _, ok := other.store.FindByNormalizedName("bananas"); !ok {
		t.Error("bananas missing after import")
	}
}

func TestImportCSV(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/api/import/csv", "text/csv", strings.NewReader("name,category,inShopping\nPears,cat_fruit,yes\n"))
	expectStatus(t, resp, http.StatusOK)
	p, ok := env.store.FindByNormalizedName("pears")
	if !ok || !p.InShopping {
		t.Fatalf("pears = %#v, %v", p, ok)
	}

	resp = env.do(t, "POST", "/api/import/csv", "text/csv", strings.NewReader("title\nPears\n"))
	expectStatus(t, resp, http.StatusBadRequest)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "list.csv")
	fw.Write([]byte("name,category\nPlums,cat_fruit\n"))
	mw.Close()
	resp = env.do(t, "POST", "/api/import/csv", mw.FormDataContentType(), &buf)
	expectStatus(t, resp, http.StatusOK)
	if _, ok := env.store.FindByNormalizedName("plums"); !ok {
		t.Error("plums missing after multipart import")
	}
}

func TestAccountingEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddToShopping("Milk", "cat_dairy")
	expectStatus(t, env.doJSON(t, "POST", "/api/trip/prepare", ""), http.StatusOK)

	resp := env.doJSON(t, "GET", "/api/accounting", "")
	expectStatus(t, resp, http.StatusOK)
	var body struct {
		Stats accounting.Stats  `json:"stats"`
		Calls []accounting.Call `json:"calls"`
	}
	decode(t, resp, &body)
	if body.Stats.Calls == 0 || len(body.Calls) == 0 {
		t.Fatalf("no calls recorded: %#v", body.Stats)
	}

	expectStatus(t, env.doJSON(t, "PUT", "/api/accounting/simulate", `{}`), http.StatusBadRequest)
	resp = env.doJSON(t, "PUT", "/api/accounting/simulate", `{"value":true}`)
	expectStatus(t, resp, http.StatusOK)
	if !env.acct.Simulating() {
		t.Error("simulate not enabled")
	}

	resp = env.doJSON(t, "POST", "/api/accounting/reset", "")
	expectStatus(t, resp, http.StatusOK)
	var stats accounting.Stats
	decode(t, resp, &stats)
	if stats.Calls != 0 || stats.Writes != 0 {
		t.Errorf("reset left %#v", stats)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{tripsync.ErrSyncInProgress, http.StatusConflict},
		{tripsync.ErrNotAuthenticated, http.StatusUnauthorized},
		{tripsync.ErrNoBaseline, http.StatusPreconditionFailed},
		{tripsync.ErrTripNotDone, http.StatusPreconditionFailed},
		{tripsync.ErrRemoteUnavailable, http.StatusServiceUnavailable},
		{&interchange.ValidationError{Reason: "bad"}, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusBadGateway},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
