package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"identity-gateway/middleware/audit/domain"
)

// eventReader é o lado de leitura do Recorder usado pela API administrativa.
type eventReader interface {
	RecentEvents(ctx context.Context, page, size int) (domain.EventPage, error)
	EventsBySubject(ctx context.Context, subject string) ([]domain.SecurityEvent, error)
	EventsByType(ctx context.Context, t domain.EventType) ([]domain.SecurityEvent, error)
	EventsByOrigin(ctx context.Context, origin string) ([]domain.SecurityEvent, error)
	EventsBetween(ctx context.Context, from, to time.Time) ([]domain.SecurityEvent, error)
	CountByTypeSince(ctx context.Context, t domain.EventType, since time.Time) (int64, error)
	CountBySubjectAndTypeSince(ctx context.Context, subject string, t domain.EventType, since time.Time) (int64, error)
}

type adminAPI struct {
	events eventReader
	log    *slog.Logger
}

// routes monta /security-events; a proteção por authority fica com quem monta.
func (a adminAPI) routes(r chi.Router) {
	r.Route("/security-events", func(r chi.Router) {
		r.Get("/", a.recent)
		r.Get("/subject/{subject}", a.bySubject)
		r.Get("/type/{type}", a.byType)
		r.Get("/origin/{origin}", a.byOrigin)
		r.Get("/between", a.between)
		r.Get("/count", a.count)
	})
}

func (a adminAPI) recent(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", domain.DefaultPageSize)
	out, err := a.events.RecentEvents(r.Context(), page, size)
	a.respond(w, out, err)
}

func (a adminAPI) bySubject(w http.ResponseWriter, r *http.Request) {
	out, err := a.events.EventsBySubject(r.Context(), chi.URLParam(r, "subject"))
	a.respond(w, out, err)
}

func (a adminAPI) byType(w http.ResponseWriter, r *http.Request) {
	t, err := domain.ParseEventType(chi.URLParam(r, "type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	out, err := a.events.EventsByType(r.Context(), t)
	a.respond(w, out, err)
}

func (a adminAPI) byOrigin(w http.ResponseWriter, r *http.Request) {
	out, err := a.events.EventsByOrigin(r.Context(), chi.URLParam(r, "origin"))
	a.respond(w, out, err)
}

func (a adminAPI) between(w http.ResponseWriter, r *http.Request) {
	from, errFrom := queryTime(r, "from")
	to, errTo := queryTime(r, "to")
	if err := errors.Join(errFrom, errTo); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	out, err := a.events.EventsBetween(r.Context(), from, to)
	a.respond(w, out, err)
}

type countResponse struct {
	Type    domain.EventType `json:"eventType"`
	Subject string           `json:"username,omitempty"`
	Since   time.Time        `json:"since"`
	Count   int64            `json:"count"`
}

func (a adminAPI) count(w http.ResponseWriter, r *http.Request) {
	t, errType := domain.ParseEventType(r.URL.Query().Get("type"))
	since, errSince := queryTime(r, "since")
	if err := errors.Join(errType, errSince); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	resp := countResponse{Type: t, Subject: r.URL.Query().Get("subject"), Since: since}
	var err error
	if resp.Subject != "" {
		resp.Count, err = a.events.CountBySubjectAndTypeSince(r.Context(), resp.Subject, t, since)
	} else {
		resp.Count, err = a.events.CountByTypeSince(r.Context(), t, since)
	}
	a.respond(w, resp, err)
}

func (a adminAPI) respond(w http.ResponseWriter, body any, err error) {
	if err != nil {
		a.log.Error("security events query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, errors.New(name + " is required (RFC 3339)")
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errors.New(name + " must be RFC 3339")
	}
	return t, nil
}
