package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
)

// CreateMarketRequest is the request to create a new market shell. This is
// a plain administrative write (ledger.Store.CreateMarket), never a
// money-moving operation — the market starts uninitialized and unopened to
// trading until handleInitializeMarket seeds its pool.
type CreateMarketRequest struct {
	CreatorID            string `json:"creator_id"`
	Question             string `json:"question"`
	ExpirationTS         int64  `json:"expiration_ts"`
	ResolutionMode       string `json:"resolution_mode"`
	BaseLiquidityParamB0 int64  `json:"base_liquidity_param_b0"`
}

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" || req.CreatorID == "" {
		writeError(w, http.StatusBadRequest, "creator_id and question are required")
		return
	}

	mode := ledger.ResolutionMode(req.ResolutionMode)
	switch mode {
	case ledger.ModeOracle, ledger.ModeAuthority, ledger.ModeOpinion:
	default:
		writeError(w, http.StatusBadRequest, "resolution_mode must be ORACLE, AUTHORITY or OPINION")
		return
	}
	if req.BaseLiquidityParamB0 <= 0 {
		writeError(w, http.StatusBadRequest, "base_liquidity_param_b0 must be positive")
		return
	}

	market := &ledger.Market{
		ID:                   uuid.New().String(),
		CreatorID:            req.CreatorID,
		Question:             req.Question,
		ExpirationTS:         req.ExpirationTS,
		LiquidityParamB:      req.BaseLiquidityParamB0 * 1000,
		BaseLiquidityParamB0: req.BaseLiquidityParamB0,
		ResolutionMode:       mode,
		Status:               ledger.MarketOpen,
		IsInitialized:        false,
	}
	if err := s.store.CreateMarket(r.Context(), market); err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// CreateOptionRequest is the request to add a binary option to a market.
type CreateOptionRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleCreateOption(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req CreateOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	option := &ledger.Option{
		ID:       uuid.New().String(),
		MarketID: marketID,
		Label:    req.Label,
	}
	if err := s.store.CreateOption(r.Context(), option); err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, option)
}

// InitializeMarketRequest is the request to seed a market's initial pool.
type InitializeMarketRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

func (s *Server) handleInitializeMarket(w http.ResponseWriter, r *http.Request) {
	marketID := r.PathValue("id")
	var req InitializeMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.liquidity.InitializeMarket(r.Context(), req.UserID, marketID, req.Amount)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
