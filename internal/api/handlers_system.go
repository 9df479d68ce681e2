// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/animator/internal/host"
	"github.com/ManuGH/animator/internal/log"
)

type controllerResponse struct {
	ScanInterval     string     `json:"scan_interval"`
	BacklogThreshold int        `json:"backlog_threshold"`
	GrowBy           int        `json:"grow_by"`
	Supervised       int        `json:"supervised"`
	LastScan         *time.Time `json:"last_scan,omitempty"`
}

type scanResponse struct {
	Scanned int `json:"scanned"`
	Grown   int `json:"grown"`
	Evicted int `json:"evicted"`
}

type versionResponse struct {
	Version string `json:"version"`
	Uptime  int64  `json:"uptime_seconds"`
	Domains int    `json:"domains"`
}

func (s *Server) handleGetController(w http.ResponseWriter, _ *http.Request) {
	ctrl := s.host.Controller()
	cfg := ctrl.Config()
	resp := controllerResponse{
		ScanInterval:     cfg.ScanInterval.String(),
		BacklogThreshold: cfg.BacklogThreshold,
		GrowBy:           cfg.GrowBy,
		Supervised:       s.host.Registry().Len(),
	}
	if last := ctrl.LastScan(); !last.IsZero() {
		resp.LastScan = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	res := s.host.Controller().ScanOnce(r.Context())
	writeJSON(w, http.StatusOK, scanResponse{
		Scanned: res.Scanned,
		Grown:   res.Grown,
		Evicted: res.Evicted,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Version: s.version,
		Uptime:  int64(time.Since(s.startTime).Seconds()),
		Domains: s.host.Len(),
	})
}

// handleReload re-reads the configuration file and applies the parts that
// can change at runtime.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	holder := s.configHolder
	s.mu.RUnlock()
	if holder == nil {
		RespondError(w, r, http.StatusNotImplemented, codeUnsupported, "configuration reload not available")
		return
	}

	if err := holder.Reload(r.Context()); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "config.reload_failed").
			Msg("configuration reload rejected")
		RespondError(w, r, http.StatusBadRequest, codeInvalid, err.Error())
		return
	}

	cfg := holder.Get()
	s.ApplyConfig(cfg)
	if err := s.host.Reconfigure(host.ConfigFrom(cfg)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
