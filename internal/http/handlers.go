package http

import (
	"encoding/json"
	"net/http"
	"time"

	"emoledger/internal/log"
	"emoledger/internal/view"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// The view logs load failures and the page shows them.
	_ = s.view.Show(r.Context())
	s.render(w, r, http.StatusOK, s.view.Page())
}

// handleSelectEmotion keeps what was typed so far and selects the emotion
// whose button was pressed.
func (s *Server) handleSelectEmotion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	s.view.UpdateDraft(r.PostForm.Get("amount"), r.PostForm.Get("reason"))

	emotion := r.PostForm.Get("emotion")
	if err := s.view.SelectEmotion(emotion); err != nil {
		s.logger.WarnContext(r.Context(), "Rejected emotion selection",
			log.FieldOperation, log.OpSelect,
			log.FieldEmotion, emotion,
			log.FieldError, err)
		http.Error(w, "unknown emotion", http.StatusBadRequest)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	s.view.UpdateDraft(r.PostForm.Get("amount"), r.PostForm.Get("reason"))

	result := s.view.Submit(r.Context())
	switch result.Outcome {
	case view.OutcomeSaved:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case view.OutcomeInvalid:
		page := s.view.Page()
		page.Alert = result.Message
		s.render(w, r, http.StatusUnprocessableEntity, page)
	default:
		page := s.view.Page()
		page.Error = result.Message
		s.render(w, r, http.StatusBadGateway, page)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"requests":  s.tracer.GetMetrics(),
		"limited":   s.limiter.Hits(),
	})
}

// handleReady reports whether the page can be rendered. The state of the
// ledger data is reported but does not fail the check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	loadErr := s.view.LoadErr()
	switch {
	case !s.view.Shown():
		checks["ledger_data"] = "not_loaded"
	case loadErr != nil:
		checks["ledger_data"] = "stale: " + loadErr.Error()
	default:
		checks["ledger_data"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
