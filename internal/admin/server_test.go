package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/mission"
	"signalops-sim/internal/objective"
	"signalops-sim/internal/session"
	"signalops-sim/internal/track"
)

func newTestServer(t *testing.T, load bool) (*Server, *session.Controller) {
	t.Helper()
	reg := prometheus.NewRegistry()
	ctrl := session.New(track.NewRegistry(1), session.WithMetrics(session.NewMetrics(reg)))
	if load {
		m := mission.BuiltIn()["first-contact"]
		require.NoError(t, ctrl.LoadMission(&m))
	}
	return NewServer(ctrl, reg), ctrl
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestPostEventPublishesOnBus(t *testing.T) {
	s, ctrl := newTestServer(t, true)
	var seen []eventbus.Event
	ctrl.Bus().Subscribe(eventbus.Filter{Kinds: []string{eventbus.KindSignalTraced}}, func(_ context.Context, ev eventbus.Event) {
		seen = append(seen, ev)
	})

	w := do(t, s, http.MethodPost, "/events", `{"kind":"signal_traced","target_id":"203.0.113.7"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var st session.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 1, st.Events)
	assert.False(t, st.Complete)

	assert.Equal(t, []eventbus.Event{{Kind: eventbus.KindSignalTraced, TargetID: "203.0.113.7"}}, seen)
	state, err := ctrl.ObjectiveState("lookup-ip")
	require.NoError(t, err)
	assert.Equal(t, objective.StateActive, state)

	hist := ctrl.History()
	require.Len(t, hist, 1)
	require.Len(t, hist[0].Effects, 1)
	assert.Equal(t, "trace-signal", hist[0].Effects[0].ObjectiveID)
	assert.Equal(t, []string{"lookup-ip"}, hist[0].Effects[0].Activated)
}

func TestPostEventQueuesBehindBusDelivery(t *testing.T) {
	s, ctrl := newTestServer(t, true)
	var order []string
	posted := false
	ctrl.Bus().Subscribe(eventbus.Filter{}, func(ctx context.Context, ev eventbus.Event) {
		order = append(order, ev.TargetID)
		if !posted {
			posted = true
			w := do(t, s, http.MethodPost, "/events", `{"kind":"ip_info_retrieved","target_id":"203.0.113.7"}`)
			assert.Equal(t, http.StatusAccepted, w.Code)
			order = append(order, "posted")
		}
	})

	require.NoError(t, ctrl.Bus().Publish(context.Background(), eventbus.Event{Kind: eventbus.KindSignalTraced, TargetID: "203.0.113.7"}))
	assert.Equal(t, []string{"203.0.113.7", "posted", "203.0.113.7"}, order)
	hist := ctrl.History()
	require.Len(t, hist, 2)
	assert.Equal(t, eventbus.KindSignalTraced, hist[0].Event.Kind)
	assert.Equal(t, eventbus.KindIPInfoRetrieved, hist[1].Event.Kind)
}

func TestPostEventRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, true)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/events", `{"target_id":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/events", `not json`).Code)
}

func TestNoMissionIsConflict(t *testing.T) {
	s, _ := newTestServer(t, false)
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodPost, "/events", `{"kind":"signal_traced","target_id":"x"}`).Code)
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodGet, "/checklist", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodGet, "/documents", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/status", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/", "").Code)
}

func TestChecklistDocumentsAndHistory(t *testing.T) {
	s, _ := newTestServer(t, true)
	for _, body := range []string{
		`{"kind":"signal_traced","target_id":"203.0.113.7"}`,
		`{"kind":"ip_info_retrieved","target_id":"203.0.113.7"}`,
	} {
		require.Equal(t, http.StatusAccepted, do(t, s, http.MethodPost, "/events", body).Code)
	}

	var cl struct {
		Items    []objective.ChecklistItem `json:"items"`
		Complete bool                      `json:"complete"`
	}
	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/checklist", "").Body.Bytes(), &cl))
	require.Len(t, cl.Items, 3)
	assert.True(t, cl.Items[1].Completed)
	assert.Equal(t, "Locate the relay on the map", cl.Items[2].Description)

	var docs []mission.Document
	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/documents", "").Body.Bytes(), &docs))
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"handbook", "relay-dossier"}, ids)

	var hist []session.Record
	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/history", "").Body.Bytes(), &hist))
	require.Len(t, hist, 2)
	assert.Equal(t, 2, hist[1].Seq)

	body := do(t, s, http.MethodGet, "/", "").Body.String()
	assert.Contains(t, body, "First Contact")
	assert.Contains(t, body, "Relay dossier")
}

func TestEntitiesQuery(t *testing.T) {
	s, _ := newTestServer(t, true)
	var snaps []track.Snapshot

	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/entities?kind=train", "").Body.Bytes(), &snaps))
	assert.Len(t, snaps, 2)

	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/entities?kind=FLIGHT", "").Body.Bytes(), &snaps))
	assert.Empty(t, snaps)

	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/entities?near=48.21,16.37,1000", "").Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "rx-112", snaps[0].ID)

	require.NoError(t, json.Unmarshal(do(t, s, http.MethodGet, "/entities?bbox=40,10,50,20", "").Body.Bytes(), &snaps))
	assert.Len(t, snaps, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/entities?bbox=1,2,3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/entities?bbox=40,10,50,20&near=1,2,3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/entities?polygon=POINT(1%202)", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, true)
	do(t, s, http.MethodPost, "/events", `{"kind":"signal_traced","target_id":"nobody"}`)
	body := do(t, s, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `signalops_events_total{outcome="unmatched"} 1`)
	assert.Contains(t, body, "signalops_tracked_entities 2")
}

func TestWebsocketFeed(t *testing.T) {
	s, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello wsMessage
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	require.NotNil(t, hello.Status)
	assert.Equal(t, "first-contact", hello.Status.MissionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"kind": "signal_traced", "target_id": "203.0.113.7"}))
	var rec wsMessage
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, "record", rec.Type)
	require.NotNil(t, rec.Record)
	require.Len(t, rec.Record.Effects, 1)
	assert.Equal(t, "trace-signal", rec.Record.Effects[0].ObjectiveID)

	resp, err := http.Post(ts.URL+"/events", "application/json", bytes.NewBufferString(`{"kind":"ip_info_retrieved","target_id":"203.0.113.7"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, 2, rec.Record.Seq)
}
