package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-crudform/internal/server"
	"github.com/goliatone/go-crudform/pkg/formdef"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
)

const definitions = `
forms:
  users:
    title: User
    defaultValues:
      name: ""
      kind: personal
    fields:
      - name: name
        type: text
        required: true
      - name: kind
        type: select
        options:
          - {value: personal, label: Personal}
          - {value: business, label: Business}
`

type fixture struct {
	repo    *orchestrator.Repository
	handler http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	defs, err := formdef.Parse(context.Background(), []byte(definitions), "users.yaml")
	require.NoError(t, err)
	store, err := formdef.NewStore(defs...)
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	repo := orchestrator.NewRepository()
	orch := orchestrator.New(
		orchestrator.WithDefinitions(store),
		orchestrator.WithBindings(orchestrator.MemoryBindings(repo)),
		orchestrator.WithLogger(logger),
	)
	t.Cleanup(orch.Dispose)
	srv := server.New(orch, server.WithLogger(logger), server.WithAutoSearchDelay(0))
	return fixture{repo: repo, handler: srv.Handler()}
}

func (f fixture) do(t *testing.T, method, target string, body url.Values, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(body.Encode())
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f fixture) seed(t *testing.T, name string) model.Values {
	t.Helper()
	item, err := f.repo.Create(context.Background(), "users", model.Values{"name": name, "kind": "personal"})
	require.NoError(t, err)
	return item
}

func TestHealthAndAssets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/assets/crudform.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".cf-grid")
}

func TestListForms(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/forms/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"forms":[{"id":"users","title":"User","fields":2}]}`, rec.Body.String())
}

func TestRenderSurfaces(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/forms/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `id="cf-users"`)
	assert.Contains(t, rec.Body.String(), `action="/forms/users"`)

	rec = f.do(t, http.MethodGet, "/forms/users?surface=modal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="dialog"`)

	rec = f.do(t, http.MethodGet, "/forms/users?surface=search&name=an", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/forms/users/items"`)
	assert.Contains(t, rec.Body.String(), `value="an"`)
}

func TestRenderUpdateLoadsItem(t *testing.T) {
	f := newFixture(t)
	item := f.seed(t, "Ana")
	id := item["id"].(string)

	rec := f.do(t, http.MethodGet, "/forms/users?op=update&id="+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Ana"`)
	assert.Contains(t, body, `<input type="hidden" name="id" value="`+id+`">`)
	assert.Contains(t, body, `<input type="hidden" name="_method" value="PUT">`)
}

func TestRenderErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/forms/nope", http.StatusNotFound, "UNKNOWN_FORM"},
		{"/forms/users?surface=bogus", http.StatusBadRequest, "INVALID_SURFACE"},
		{"/forms/users?op=archive", http.StatusBadRequest, "INVALID_OPERATION"},
		{"/forms/users?op=update", http.StatusBadRequest, "MISSING_ID"},
		{"/forms/users?op=update&id=missing", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.status, rec.Code)
			var payload map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			assert.Equal(t, tt.code, payload["code"])
		})
	}
}

func TestSubmitLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/forms/users", url.Values{"name": {"Ana"}, "kind": {"business"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/forms/users", rec.Header().Get("Location"))

	items, err := f.repo.List(ctx, "users", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0]["id"].(string)
	assert.Equal(t, "business", items[0]["kind"])

	rec = f.do(t, http.MethodPost, "/forms/users", url.Values{
		"_method": {"PUT"},
		"id":      {id},
		"name":    {"Ana Maria"},
		"kind":    {"personal"},
	}, "Accept", "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"completed","operation":"update"}`, rec.Body.String())

	stored, err := f.repo.Get(ctx, "users", id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", stored["name"])

	rec = f.do(t, http.MethodPost, "/forms/users", url.Values{"_method": {"DELETE"}, "id": {id}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = f.repo.Get(ctx, "users", id)
	require.ErrorIs(t, err, orchestrator.ErrItemNotFound)
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/forms/users", url.Values{"name": {""}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `aria-invalid="true"`)

	rec = f.do(t, http.MethodPost, "/forms/users", url.Values{"_method": {"PUT"}, "id": {"missing"}, "name": {"Ana"}})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "item not found")

	rec = f.do(t, http.MethodPost, "/forms/users", url.Values{"_method": {"PUT"}, "name": {"Ana"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/forms/users", url.Values{"_method": {"GET"}})
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	items, err := f.repo.List(context.Background(), "users", nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestItemsFiltersByQuery(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "Ana")
	f.seed(t, "Bo")

	rec := f.do(t, http.MethodGet, "/forms/users/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all.Items, 2)

	rec = f.do(t, http.MethodGet, "/forms/users/items?name=AN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, "Ana", filtered.Items[0]["name"])
}

type wireMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) wireMessage {
	t.Helper()
	var msg wireMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestLiveSession(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/forms/users/live", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	session := readMessage(t, ctx, conn)
	require.Equal(t, "session", session.Type)
	var info server.SessionData
	require.NoError(t, json.Unmarshal(session.Data, &info))
	assert.Equal(t, "users", info.Form)
	assert.NotEmpty(t, info.SessionID)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "open", "id": "1", "data": map[string]any{"operation": "create"}}))
	opened := readMessage(t, ctx, conn)
	require.Equal(t, "snapshot", opened.Type)
	assert.Equal(t, "1", opened.RequestID)
	var snap server.SnapshotData
	require.NoError(t, json.Unmarshal(opened.Data, &snap))
	assert.True(t, snap.IsOpen)
	assert.Contains(t, snap.HTML, `role="dialog"`)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "change", "id": "2", "data": map[string]any{"name": "name", "value": "Ana"}}))
	changed := readMessage(t, ctx, conn)
	require.NoError(t, json.Unmarshal(changed.Data, &snap))
	assert.Equal(t, "Ana", snap.Values["name"])
	assert.Contains(t, snap.DirtyFields, "name")

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "submit", "id": "3"}))
	result := readMessage(t, ctx, conn)
	require.Equal(t, "result", result.Type)
	assert.JSONEq(t, `{"status":"completed"}`, string(result.Data))
	closed := readMessage(t, ctx, conn)
	require.NoError(t, json.Unmarshal(closed.Data, &snap))
	assert.False(t, snap.IsOpen)
	assert.Empty(t, snap.HTML)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "bogus", "id": "4"}))
	bad := readMessage(t, ctx, conn)
	require.Equal(t, "error", bad.Type)
	assert.Contains(t, string(bad.Data), "unknown_type")

	items, err := f.repo.List(ctx, "users", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ana", items[0]["name"])

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestLiveRejectsUndeclaredFields(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/forms/users/live", nil)
	require.NoError(t, err)
	defer conn.CloseNow()
	require.Equal(t, "session", readMessage(t, ctx, conn).Type)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "open", "id": "1", "data": map[string]any{"operation": "create"}}))
	require.Equal(t, "snapshot", readMessage(t, ctx, conn).Type)

	cases := []struct {
		kind string
		name string
	}{
		{"change", "isAdmin"},
		{"change", "name.2000000000"},
		{"blur", "isAdmin"},
	}
	for i, tc := range cases {
		id := strconv.Itoa(i + 2)
		require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": tc.kind, "id": id, "data": map[string]any{"name": tc.name, "value": true}}))
		reply := readMessage(t, ctx, conn)
		require.Equal(t, "error", reply.Type, tc.name)
		assert.Equal(t, id, reply.RequestID)
		var data server.ErrorData
		require.NoError(t, json.Unmarshal(reply.Data, &data))
		assert.Equal(t, "invalid_change", data.Code, tc.name)
	}

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": "submit", "id": "9"}))
	require.Equal(t, "result", readMessage(t, ctx, conn).Type)
	readMessage(t, ctx, conn)

	items, err := f.repo.List(ctx, "users", nil)
	require.NoError(t, err)
	for _, item := range items {
		assert.NotContains(t, item, "isAdmin")
	}
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestLiveRejectsCrossOrigin(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/forms/users/live", &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.example"}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
