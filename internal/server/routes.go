package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/logstream"
)

type mandateSummary struct {
	ID      string               `json:"id"`
	Status  jibe.ExecutiveStatus `json:"status"`
	Version uint64               `json:"version"`
	Offset  int64                `json:"offset"`
	Blocks  int                  `json:"blocks"`
	Done    bool                 `json:"done"`
}

type mandateList struct {
	RunID    string           `json:"run_id"`
	Mandates []mandateSummary `json:"mandates"`
}

// blockEnvelope tags each block with its kind so clients can switch on it.
type blockEnvelope struct {
	Kind  string          `json:"kind"`
	Block logstream.Block `json:"block"`
}

type blockSnapshot struct {
	MandateID string               `json:"mandate_id"`
	Status    jibe.ExecutiveStatus `json:"status"`
	Version   uint64               `json:"version"`
	Offset    int64                `json:"offset"`
	Done      bool                 `json:"done"`
	Error     string               `json:"error,omitempty"`
	Stats     logstream.Stats      `json:"stats"`
	Blocks    []blockEnvelope      `json:"blocks"`
}

func newBlockSnapshot(v follow.View) blockSnapshot {
	blocks := make([]blockEnvelope, len(v.Blocks))
	for i, b := range v.Blocks {
		blocks[i] = blockEnvelope{Kind: b.Kind().String(), Block: b}
	}
	snap := blockSnapshot{
		MandateID: v.MandateID,
		Status:    v.Status,
		Version:   v.Version,
		Offset:    v.Offset,
		Done:      v.Done,
		Stats:     v.Stats,
		Blocks:    blocks,
	}
	if v.LastError != nil {
		snap.Error = v.LastError.Error()
	}
	return snap
}

func (s *Server) listMandates(w http.ResponseWriter, _ *http.Request) {
	ids := s.logs.Tracked()
	out := mandateList{RunID: s.logs.RunID(), Mandates: make([]mandateSummary, 0, len(ids))}
	for _, id := range ids {
		v, ok := s.logs.View(id)
		if !ok {
			continue
		}
		out.Mandates = append(out.Mandates, mandateSummary{
			ID:      id,
			Status:  v.Status,
			Version: v.Version,
			Offset:  v.Offset,
			Blocks:  len(v.Blocks),
			Done:    v.Done,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getBlocks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mandateID")
	v, ok := s.logs.View(id)
	if !ok {
		writeError(w, http.StatusNotFound, "mandate not tracked")
		return
	}
	writeJSON(w, http.StatusOK, newBlockSnapshot(v))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
