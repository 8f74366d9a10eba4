package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
)

// ClientMessage is sent by live session clients. Types: open, change,
// blur, submit, close, reset, ping.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is pushed to live session clients. Types: session,
// snapshot, result, error, pong.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// OpenData selects the operation to open.
type OpenData struct {
	Operation model.Operation `json:"operation"`
	ID        string          `json:"id,omitempty"`
	Filters   model.Values    `json:"filters,omitempty"`
}

// ChangeData carries a single field update.
type ChangeData struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// SessionData is the first message of every session.
type SessionData struct {
	SessionID string `json:"sessionId"`
	Form      string `json:"form"`
}

// SnapshotData mirrors the provider after every change.
type SnapshotData struct {
	Operation    model.Operation     `json:"operation"`
	IsOpen       bool                `json:"isOpen"`
	IsSubmitting bool                `json:"isSubmitting"`
	Values       model.Values        `json:"values"`
	Errors       map[string][]string `json:"errors,omitempty"`
	DirtyFields  []string            `json:"dirtyFields,omitempty"`
	HasDraft     bool                `json:"hasDraft"`
	LastError    string              `json:"lastError,omitempty"`
	HTML         string              `json:"html"`
}

// ResultData reports a submit outcome.
type ResultData struct {
	Status string `json:"status"`
}

// ErrorData describes a rejected message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type liveSession struct {
	ID      string
	Form    string
	Started time.Time
}

type sessions struct {
	mu    sync.RWMutex
	items map[string]liveSession
}

func newSessions() *sessions {
	return &sessions{items: make(map[string]liveSession)}
}

func (s *sessions) create(formID string) liveSession {
	sess := liveSession{ID: uuid.NewString(), Form: formID, Started: time.Now()}
	s.mu.Lock()
	s.items[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessions) remove(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *sessions) list() []liveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]liveSession, 0, len(s.items))
	for _, sess := range s.items {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.list()})
}

// handleLive upgrades to a websocket and drives a provider owned by the
// session. Every change is answered with a snapshot carrying the rendered
// modal (or search form) so the client can swap it in.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "form")
	provider, err := s.orch.NewProvider(r.Context(), formID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer provider.Dispose()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.Printf("server: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	sess := s.sessions.create(formID)
	defer s.sessions.remove(sess.ID)
	ctx := r.Context()

	live := &liveConn{server: s, conn: conn, provider: provider}
	// Transitions raised while a message is handled are covered by the
	// reply; the rest come from timers (auto search) and are pushed here.
	unsubscribe := provider.Subscribe(func(form.Snapshot) {
		if live.handling.Load() {
			return
		}
		live.pushSnapshot(ctx, "")
	})
	defer unsubscribe()

	if s.autoSearch > 0 {
		stop := provider.EnableAutoSearch(s.autoSearch)
		defer stop()
	}

	live.send(ctx, ServerMessage{Type: "session", Data: SessionData{SessionID: sess.ID, Form: formID}})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 {
				s.logger.Printf("server: live session %s: %v", sess.ID, err)
			}
			return
		}
		live.handle(ctx, msg)
	}
}

type liveConn struct {
	server   *Server
	conn     *websocket.Conn
	provider *form.Provider
	handling atomic.Bool
	mu       sync.Mutex
}

func (c *liveConn) handle(ctx context.Context, msg ClientMessage) {
	c.handling.Store(true)
	defer c.handling.Store(false)

	switch msg.Type {
	case "open":
		var data OpenData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ctx, msg.ID, "invalid_data", "invalid open data")
			return
		}
		if data.Operation == "" {
			data.Operation = model.OperationCreate
		}
		if !data.Operation.Valid() {
			c.sendError(ctx, msg.ID, "invalid_operation", fmt.Sprintf("unknown operation %q", data.Operation))
			return
		}
		if err := orchestrator.Open(ctx, c.provider, data.Operation, data.ID, data.Filters); err != nil {
			c.sendError(ctx, msg.ID, "open_failed", err.Error())
			return
		}
		c.pushSnapshot(ctx, msg.ID)
	case "change":
		var data ChangeData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Name == "" {
			c.sendError(ctx, msg.ID, "invalid_data", "invalid change data")
			return
		}
		if !c.declared(data.Name) {
			c.sendError(ctx, msg.ID, "invalid_change", fmt.Sprintf("unknown field %q", data.Name))
			return
		}
		if err := c.provider.Instance().SetValue(data.Name, data.Value); err != nil {
			c.sendError(ctx, msg.ID, "invalid_change", err.Error())
			return
		}
		c.pushSnapshot(ctx, msg.ID)
	case "blur":
		var data ChangeData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Name == "" {
			c.sendError(ctx, msg.ID, "invalid_data", "invalid blur data")
			return
		}
		if !c.declared(data.Name) {
			c.sendError(ctx, msg.ID, "invalid_change", fmt.Sprintf("unknown field %q", data.Name))
			return
		}
		c.provider.Instance().Blur(data.Name)
		c.pushSnapshot(ctx, msg.ID)
	case "submit":
		status := c.provider.Submit(ctx)
		c.send(ctx, ServerMessage{Type: "result", RequestID: msg.ID, Data: ResultData{Status: status.String()}})
		c.pushSnapshot(ctx, msg.ID)
	case "close":
		c.provider.Close()
		c.pushSnapshot(ctx, msg.ID)
	case "reset":
		c.provider.Reset(true)
		c.pushSnapshot(ctx, msg.ID)
	case "ping":
		c.send(ctx, ServerMessage{Type: "pong", RequestID: msg.ID})
	default:
		c.sendError(ctx, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// declared reports whether name is one of the form's fields. Clients can
// only write what the form declares.
func (c *liveConn) declared(name string) bool {
	_, ok := c.provider.Config().Field(name)
	return ok
}

func (c *liveConn) pushSnapshot(ctx context.Context, requestID string) {
	snap := c.provider.Snapshot()
	surface := render.SurfaceModal
	if snap.State.Operation == model.OperationSearch {
		surface = render.SurfaceSearch
	}
	options := render.RenderOptions{Surface: surface}
	if id, ok := form.ItemID(snap.State.SelectedItem); ok {
		options.HiddenFields = map[string]string{"id": fmt.Sprint(id)}
	}
	if surface == render.SurfaceSearch {
		options.AutoSearchDelay = int(c.server.autoSearch.Milliseconds())
	}
	out, _, err := c.server.orch.RenderProvider(ctx, c.provider, c.server.renderer, options)
	if err != nil {
		c.sendError(ctx, requestID, "render_error", err.Error())
		return
	}

	data := SnapshotData{
		Operation:    snap.State.Operation,
		IsOpen:       snap.State.IsOpen,
		IsSubmitting: snap.State.IsSubmitting,
		Values:       snap.Values,
		Errors:       snap.Errors(),
		DirtyFields:  snap.FormState.DirtyFields,
		HasDraft:     snap.HasDraft,
		HTML:         string(out),
	}
	if snap.State.LastError != nil {
		data.LastError = snap.State.LastError.Error()
	}
	c.send(ctx, ServerMessage{Type: "snapshot", RequestID: requestID, Data: data})
}

func (c *liveConn) send(ctx context.Context, msg ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := wsjson.Write(ctx, c.conn, msg); err != nil {
		c.server.logger.Printf("server: live write: %v", err)
	}
}

func (c *liveConn) sendError(ctx context.Context, requestID, code, message string) {
	c.send(ctx, ServerMessage{Type: "error", RequestID: requestID, Data: ErrorData{Code: code, Message: message}})
}
