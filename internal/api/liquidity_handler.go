package api

import (
	"encoding/json"
	"net/http"
)

// AddLiquidityRequest is add_liquidity's request body (spec §6).
type AddLiquidityRequest struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
	Amount   int64  `json:"amount"`
}

func (s *Server) handleAddLiquidity(w http.ResponseWriter, r *http.Request) {
	var req AddLiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.liquidity.AddLiquidity(r.Context(), req.UserID, req.MarketID, req.Amount)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RemoveLiquidityRequest is remove_liquidity's request body (spec §6); the
// call always fails pre-resolution (see internal/liquidity.RemoveLiquidity).
type RemoveLiquidityRequest struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
	Shares   int64  `json:"shares"`
}

func (s *Server) handleRemoveLiquidity(w http.ResponseWriter, r *http.Request) {
	var req RemoveLiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.liquidity.RemoveLiquidity(r.Context(), req.UserID, req.MarketID, req.Shares); err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ClaimLPRewardsRequest is claim_lp_rewards's request body (spec §6). Shares
// nil means "claim everything this position still holds".
type ClaimLPRewardsRequest struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
	Shares   *int64 `json:"shares,omitempty"`
}

func (s *Server) handleClaimLPRewards(w http.ResponseWriter, r *http.Request) {
	var req ClaimLPRewardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.liquidity.ClaimLPRewards(r.Context(), req.UserID, req.MarketID, req.Shares)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetLPPosition handles GET /api/liquidity/position?user_id=...&market_id=...
func (s *Server) handleGetLPPosition(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	marketID := r.URL.Query().Get("market_id")
	if userID == "" || marketID == "" {
		writeError(w, http.StatusBadRequest, "user_id and market_id are required")
		return
	}

	view, err := s.liquidity.GetLpPosition(r.Context(), userID, marketID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
