// Package admin serves the operator HTTP API: session status, checklist,
// documents, entity queries, event injection, Prometheus metrics and a
// websocket feed of handled events.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/session"
	"signalops-sim/internal/track"
)

//go:embed templates/index.html
var content embed.FS

type Server struct {
	ctrl *session.Controller
	tpl  *template.Template
	mux  *http.ServeMux
	hub  *hub
	log  *slog.Logger
	srv  *http.Server
}

// NewServer builds the admin API for ctrl. gatherer backs /metrics and may be
// nil to use the default registry.
func NewServer(ctrl *session.Controller, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		ctrl: ctrl,
		tpl:  template.Must(template.New("index.html").ParseFS(content, "templates/index.html")),
		mux:  http.NewServeMux(),
		hub:  newHub(),
		log:  slog.Default(),
	}
	ctrl.OnRecord(func(rec session.Record) {
		s.hub.broadcast(wsMessage{Type: "record", Record: &rec})
	})
	s.routes(gatherer)
	return s
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(l *slog.Logger) { s.log = l }

func (s *Server) routes(gatherer prometheus.Gatherer) {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /checklist", s.handleChecklist)
	s.mux.HandleFunc("GET /documents", s.handleDocuments)
	s.mux.HandleFunc("GET /entities", s.handleEntities)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("POST /events", s.handleEvent)
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	s.log.Info("admin UI listening", "addr", addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and closes websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// missionError maps controller errors onto HTTP statuses.
func (s *Server) missionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNoMission) {
		writeError(w, http.StatusConflict, err)
		return
	}
	s.log.Error("admin request failed", "err", err)
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	items, _ := s.ctrl.Checklist()
	docs, _ := s.ctrl.UnlockedDocuments()
	data := struct {
		Status    session.Status
		Checklist any
		Documents any
	}{s.ctrl.Status(), items, docs}
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	items, err := s.ctrl.Checklist()
	if err != nil {
		s.missionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "complete": s.ctrl.IsComplete()})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.ctrl.UnlockedDocuments()
	if err != nil {
		s.missionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.History())
}

// handleEntities answers spatial queries. Supported parameters:
//
//	kind=TRAIN,STORM
//	bbox=minLat,minLon,maxLat,maxLon
//	near=lat,lon,meters
//	polygon=<WKT polygon, lon lat order>
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snaps := s.ctrl.Entities(f)
	if snaps == nil {
		snaps = []track.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func parseFilter(r *http.Request) (track.Filter, error) {
	q := r.URL.Query()
	var f track.Filter
	if k := q.Get("kind"); k != "" {
		for _, part := range strings.Split(k, ",") {
			f.Kinds = append(f.Kinds, track.Kind(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	regions := 0
	if b := q.Get("bbox"); b != "" {
		v, err := parseFloats(b, 4)
		if err != nil {
			return f, fmt.Errorf("bbox: %w", err)
		}
		if f.Region, err = track.BoundingBox(v[0], v[1], v[2], v[3]); err != nil {
			return f, err
		}
		regions++
	}
	if n := q.Get("near"); n != "" {
		v, err := parseFloats(n, 3)
		if err != nil {
			return f, fmt.Errorf("near: %w", err)
		}
		f.Region = track.Radius(track.Waypoint{Lat: v[0], Lon: v[1]}, v[2])
		regions++
	}
	if p := q.Get("polygon"); p != "" {
		reg, err := track.PolygonWKT(p)
		if err != nil {
			return f, err
		}
		f.Region = reg
		regions++
	}
	if regions > 1 {
		return f, errors.New("use only one of bbox, near and polygon")
	}
	return f, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma separated numbers, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// handleEvent publishes a player event on the session bus, behind any events
// already queued there. The reply carries the session status once the bus has
// accepted the event; effects are reported on /ws and /history.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev eventbus.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ev.Kind == "" {
		writeError(w, http.StatusBadRequest, eventbus.ErrEmptyKind)
		return
	}
	if s.ctrl.Mission() == nil {
		s.missionError(w, session.ErrNoMission)
		return
	}
	if err := s.ctrl.Bus().Publish(r.Context(), ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.ctrl.Status())
}
