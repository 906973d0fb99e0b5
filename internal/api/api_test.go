package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/starford/luhmann/internal/index"
	"github.com/starford/luhmann/internal/noteservice"
	"github.com/starford/luhmann/internal/testutil"
)

// testEnv sets up a seeded vault, SQLite DB, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*noteservice.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*noteservice.Service, http.Handler) {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	g := testutil.Grammar(t)
	testutil.Seed(t, store, db, g, testutil.Corpus)

	clock := func() time.Time { return time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC) }
	svc := noteservice.NewService(store, db, g,
		noteservice.WithLogger(testutil.Logger()),
		noteservice.WithClock(clock),
	)
	return svc, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) ViewDetail {
	t.Helper()
	var v ViewDetail
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, w.Body.String())
	}
	return v
}

func TestNavigateFlow(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/luhmann/views/main/top", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("top = %d, %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if len(v.Lines) != 2 || v.Lines[0] != "(1) Slip boxes [[202012091130]]" {
		t.Fatalf("top lines = %q", v.Lines)
	}

	w = do(t, router, http.MethodPost, "/luhmann/views/main/forward", nil)
	v = decodeView(t, w)
	if len(v.Lines) != 3 {
		t.Fatalf("forward lines = %q", v.Lines)
	}

	w = do(t, router, http.MethodPut, "/luhmann/views/main/cursor", CursorRequest{Line: 2})
	if w.Code != http.StatusOK {
		t.Fatalf("cursor = %d, %s", w.Code, w.Body.String())
	}
	if v = decodeView(t, w); v.CursorFile != "202012091132 (1,2) Branching.md" {
		t.Errorf("cursor file = %q", v.CursorFile)
	}

	w = do(t, router, http.MethodPost, "/luhmann/views/main/unfold", nil)
	v = decodeView(t, w)
	// Unfolding (1,2) from its own root level leaves the display unchanged
	// and escalates to the top level.
	if len(v.Lines) != 2 {
		t.Errorf("unfold lines = %q", v.Lines)
	}

	w = do(t, router, http.MethodGet, "/luhmann/views/main", nil)
	v = decodeView(t, w)
	if v.Name != "main" || len(v.Files) != 2 || v.Highlight != -1 {
		t.Errorf("stored view = %+v", v)
	}
}

func TestNavigate_Depth(t *testing.T) {
	_, router := testEnv(t, "")
	do(t, router, http.MethodPost, "/luhmann/views/main/all", nil)

	w := do(t, router, http.MethodPost, "/luhmann/views/main/depth?n=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("depth = %d, %s", w.Code, w.Body.String())
	}
	if v := decodeView(t, w); len(v.Files) != 1 {
		t.Errorf("depth 3 files = %v", v.Files)
	}

	if w := do(t, router, http.MethodPost, "/luhmann/views/main/depth?n=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad n = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/luhmann/views/main/depth?n=10", nil); w.Code != http.StatusBadRequest {
		t.Errorf("n=10 = %d, want 400", w.Code)
	}
}

func TestNavigate_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/luhmann/views/main/sideways", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown command = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/luhmann/views/main/current", nil); w.Code != http.StatusConflict {
		t.Errorf("current without note = %d, want 409", w.Code)
	}
	if w := do(t, router, http.MethodPut, "/luhmann/views/main/cursor", CursorRequest{Line: 7}); w.Code != http.StatusBadRequest {
		t.Errorf("cursor out of range = %d, want 400", w.Code)
	}
}

func TestNavigate_NotALuhmannNote(t *testing.T) {
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	g := testutil.Grammar(t)
	testutil.Seed(t, store, db, g, testutil.Corpus)
	router := NewRouter(noteservice.NewService(store, db, g, noteservice.WithLogger(testutil.Logger())), false, "", nil)

	// A stored view may still list a note that has no ID.
	if err := db.SaveView(index.ViewRow{Name: "main", Files: []string{"202012091135 Inbox.md"}}); err != nil {
		t.Fatal(err)
	}
	w := do(t, router, http.MethodPost, "/luhmann/views/main/forward", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("forward on plain note = %d, want 422 (%s)", w.Code, w.Body.String())
	}
}

func TestCandidatesAndOpen(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/luhmann/candidates?q="+url.QueryEscape("Fixed"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("candidates = %d", w.Code)
	}
	var cr CandidatesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &cr)
	if len(cr.Groups) != 1 || cr.Groups[0].Candidates[0].LuhmannID != "1,1" {
		t.Errorf("groups = %+v", cr.Groups)
	}

	w = do(t, router, http.MethodPost, "/luhmann/open", OpenRequest{View: "main", Query: "1,2,a"})
	if w.Code != http.StatusOK {
		t.Fatalf("open = %d, %s", w.Code, w.Body.String())
	}
	var or OpenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &or)
	if or.Note.PrimaryID != "202012091133" || or.View.Current != "202012091133" {
		t.Errorf("open = %+v", or)
	}

	w = do(t, router, http.MethodPost, "/luhmann/views/main/current", nil)
	v := decodeView(t, w)
	if v.Cursor != 3 || v.Highlight != 3 {
		t.Errorf("current cursor=%d highlight=%d", v.Cursor, v.Highlight)
	}

	if w := do(t, router, http.MethodPost, "/luhmann/open", OpenRequest{Query: "qqqq"}); w.Code != http.StatusNotFound {
		t.Errorf("open missing = %d, want 404", w.Code)
	}
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Parent: "1", Title: "Third branch", Body: "text"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, %s", w.Code, w.Body.String())
	}
	var created struct {
		Path      string `json:"path"`
		LuhmannID string `json:"luhmann_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.LuhmannID != "1,3" {
		t.Errorf("luhmann_id = %q", created.LuhmannID)
	}

	w = do(t, router, http.MethodGet, "/notes/"+url.PathEscape(created.Path), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d, %s", w.Code, w.Body.String())
	}
	var d NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &d)
	if d.Parent == nil || d.Parent.LuhmannID != "1" || !strings.Contains(d.Content, "text") {
		t.Errorf("detail = %+v", d)
	}
}

func TestCreateNote_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Parent: "1"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing title = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/notes", CreateNoteRequest{Parent: "7", Title: "x"}); w.Code != http.StatusNotFound {
		t.Errorf("missing parent = %d, want 404", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestAssignID(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/luhmann/assign", AssignRequest{Path: "202012091135 Inbox.md", LuhmannID: "1"})
	if w.Code != http.StatusConflict {
		t.Errorf("taken id = %d, want 409", w.Code)
	}
	w = do(t, router, http.MethodPost, "/luhmann/assign", AssignRequest{Path: "202012091135 Inbox.md", LuhmannID: "2,1"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign = %d, %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"luhmann_id":"2,1"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestIndexAndTree(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/luhmann/index", nil)
	var ir IndexResponse
	_ = json.Unmarshal(w.Body.Bytes(), &ir)
	if len(ir.Notes) != 5 {
		t.Errorf("index notes = %d, want 5", len(ir.Notes))
	}

	w = do(t, router, http.MethodGet, "/luhmann/tree", nil)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "(1,2,a) Letters") {
		t.Errorf("tree = %s", w.Body.String())
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/search?q=partner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var sr SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if len(sr.Results) != 1 || sr.Results[0].LuhmannID != "2" {
		t.Errorf("results = %+v", sr.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/notes/nope.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/luhmann/index", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/luhmann/index", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/luhmann/index", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/luhmann/index?access_token=secret123", nil); w.Code != http.StatusOK {
		t.Errorf("query token GET = %d, want 200", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/luhmann/index?access_token=wrong", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong query token = %d, want 401", w.Code)
	}
	// Only reads accept the query parameter.
	if w := do(t, router, http.MethodPost, "/luhmann/views/main/top?access_token=secret123", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("query token POST = %d, want 401", w.Code)
	}
}

func TestSearch_Branch(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/search?q=slip&branch=1,2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d: %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].LuhmannID != "1,2" {
		t.Errorf("results = %+v", resp.Results)
	}
	if w := do(t, router, http.MethodGet, "/search?q=slip&branch=x,,", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad branch = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/luhmann/index", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func blockingSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE())
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
