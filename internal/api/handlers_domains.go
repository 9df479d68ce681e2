// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/animator/internal/animator"
	"github.com/ManuGH/animator/internal/api/middleware"
	"github.com/ManuGH/animator/internal/domain"
	"github.com/ManuGH/animator/internal/log"
	"github.com/ManuGH/animator/internal/telemetry"
)

type createDomainRequest struct {
	ID             string `json:"id"`
	Animate        bool   `json:"animate"`
	SingleThreaded bool   `json:"singleThreaded"`
	Root           bool   `json:"root"`
}

type animateRequest struct {
	SingleThreaded bool `json:"singleThreaded"`
	Root           bool `json:"root"`
}

type statusRequest struct {
	Status *animator.Status `json:"status"`
}

type domainList struct {
	Domains []domain.Info `json:"domains"`
}

// QueueEntry describes one pending application.
type QueueEntry struct {
	EventID     string `json:"event_id"`
	Handler     string `json:"handler"`
	ClosureType string `json:"closure_type,omitempty"`
}

type queueResponse struct {
	Domain   string       `json:"domain"`
	Size     int          `json:"size"`
	Capacity int          `json:"capacity"`
	Entries  []QueueEntry `json:"entries"`
}

// pathDomainID returns the {id} route parameter and tags the request span
// with it.
func pathDomainID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	middleware.AddSpanAttributes(r, attribute.String(telemetry.DomainIDKey, id))
	return id
}

func (s *Server) domainFromPath(r *http.Request) (*domain.Domain, error) {
	return s.host.Get(pathDomainID(r))
}

func (s *Server) handleListDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domainList{Domains: s.host.Describe()})
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := s.domainFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Describe())
}

func (s *Server) handleCreateDomain(w http.ResponseWriter, r *http.Request) {
	var req createDomainRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		writeError(w, r, fmt.Errorf("%w: id is required", animator.ErrInvalidArgument))
		return
	}

	middleware.AddSpanAttributes(r, attribute.String(telemetry.DomainIDKey, req.ID))

	d, err := s.host.Create(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Animate {
		if err := d.Animate(r.Context(), req.SingleThreaded, req.Root); err != nil {
			// Keep the registry consistent with what the caller saw fail.
			if rmErr := s.host.Remove(r.Context(), req.ID); rmErr != nil {
				logger := log.WithComponentFromContext(r.Context(), "api")
				logger.Warn().
					Err(rmErr).
					Str(log.FieldDomainID, req.ID).
					Msg("failed to roll back domain after animate error")
			}
			writeError(w, r, err)
			return
		}
	}

	w.Header().Set("Location", "/api/v1/domains/"+req.ID)
	writeJSON(w, http.StatusCreated, d.Describe())
}

func (s *Server) handleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := s.host.Remove(r.Context(), pathDomainID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnimate(w http.ResponseWriter, r *http.Request) {
	var req animateRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.domainFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := d.Animate(r.Context(), req.SingleThreaded, req.Root); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Describe())
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	d, err := s.domainFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := d.Terminate(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Describe())
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == nil {
		writeError(w, r, fmt.Errorf("%w: status is required", animator.ErrInvalidArgument))
		return
	}
	d, err := s.domainFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := d.SetStatus(r.Context(), *req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Describe())
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	d, err := s.domainFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := d.Animator()
	if err != nil {
		writeError(w, r, err)
		return
	}
	apps, err := a.Queue()
	if err != nil {
		writeError(w, r, err)
		return
	}
	capacity, err := a.QueueCapacity()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := queueResponse{
		Domain:   d.ID(),
		Size:     len(apps),
		Capacity: capacity,
		Entries:  make([]QueueEntry, 0, len(apps)),
	}
	for _, app := range apps {
		resp.Entries = append(resp.Entries, describeApplication(app))
	}
	writeJSON(w, http.StatusOK, resp)
}

func describeApplication(app animator.Application) QueueEntry {
	e := QueueEntry{Handler: fmt.Sprintf("%T", app.Handler)}
	if app.Event != nil {
		e.EventID = app.Event.ID.String()
		if app.Event.Closure != nil {
			e.ClosureType = fmt.Sprintf("%T", app.Event.Closure)
		}
	}
	return e
}
