package api

import (
	"encoding/json"
	"net/http"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/resolution"
)

// SubmitResolutionRequest is submit_resolution's request body (spec §6).
// WinningSide, when set, overrides the engine's own determination for any
// caller that passes the market mode's submission authorization.
type SubmitResolutionRequest struct {
	UserID      string `json:"user_id"`
	MarketID    string `json:"market_id"`
	OptionID    string `json:"option_id"`
	Outcome     string `json:"outcome"`
	WinningSide *int   `json:"winning_side,omitempty"`
	Evidence    string `json:"evidence,omitempty"`
}

func (s *Server) handleSubmitResolution(w http.ResponseWriter, r *http.Request) {
	var req SubmitResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var side *ledger.Side
	if req.WinningSide != nil {
		s := ledger.Side(*req.WinningSide)
		side = &s
	}

	result, err := s.resolution.SubmitResolution(r.Context(), resolution.SubmitInput{
		UserID: req.UserID, MarketID: req.MarketID, OptionID: req.OptionID,
		Outcome: req.Outcome, WinningSide: side, Evidence: req.Evidence,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DisputeResolutionRequest is dispute_resolution's request body (spec §6).
type DisputeResolutionRequest struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
	OptionID string `json:"option_id"`
	Reason   string `json:"reason"`
	Evidence string `json:"evidence,omitempty"`
}

func (s *Server) handleDisputeResolution(w http.ResponseWriter, r *http.Request) {
	var req DisputeResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.resolution.DisputeResolution(r.Context(), resolution.DisputeInput{
		UserID: req.UserID, MarketID: req.MarketID, OptionID: req.OptionID,
		Reason: req.Reason, Evidence: req.Evidence,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetResolution handles GET /api/resolution/{id}, where {id} is a
// market id (spec §6 get_resolution(market) -> {market_summary, resolution,
// submissions}).
func (s *Server) handleGetResolution(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")

	view, err := s.resolution.GetResolution(r.Context(), marketID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
