package api

import (
	"encoding/json"
	"net/http"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/trading"
)

// BuyRequest is buy_shares's request body (spec §6).
type BuyRequest struct {
	UserID       string `json:"user_id"`
	MarketID     string `json:"market_id"`
	OptionID     string `json:"option_id"`
	BuyYes       int64  `json:"buy_yes"`
	BuyNo        int64  `json:"buy_no"`
	MaxCost      *int64 `json:"max_cost,omitempty"`
	ExpectedCost *int64 `json:"expected_cost,omitempty"`
	SlippageBps  *int64 `json:"slippage_bps,omitempty"`
}

func (s *Server) handleBuyShares(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := s.trading.BuyShares(r.Context(), trading.BuyInput{
		UserID: req.UserID, MarketID: req.MarketID, OptionID: req.OptionID,
		BuyYes: req.BuyYes, BuyNo: req.BuyNo,
		MaxCost: req.MaxCost, ExpectedCost: req.ExpectedCost, SlippageBps: req.SlippageBps,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// SellRequest is sell_shares's request body (spec §6).
type SellRequest struct {
	UserID         string `json:"user_id"`
	MarketID       string `json:"market_id"`
	OptionID       string `json:"option_id"`
	SellYes        int64  `json:"sell_yes"`
	SellNo         int64  `json:"sell_no"`
	MinPayout      *int64 `json:"min_payout,omitempty"`
	ExpectedPayout *int64 `json:"expected_payout,omitempty"`
	SlippageBps    *int64 `json:"slippage_bps,omitempty"`
}

func (s *Server) handleSellShares(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	trade, err := s.trading.SellShares(r.Context(), trading.SellInput{
		UserID: req.UserID, MarketID: req.MarketID, OptionID: req.OptionID,
		SellYes: req.SellYes, SellNo: req.SellNo,
		MinPayout: req.MinPayout, ExpectedPayout: req.ExpectedPayout, SlippageBps: req.SlippageBps,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trade)
}

// ClaimWinningsRequest is claim_winnings's request body (spec §6).
type ClaimWinningsRequest struct {
	UserID   string `json:"user_id"`
	MarketID string `json:"market_id"`
	OptionID string `json:"option_id"`
}

func (s *Server) handleClaimWinnings(w http.ResponseWriter, r *http.Request) {
	var req ClaimWinningsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.trading.ClaimWinnings(r.Context(), req.UserID, req.MarketID, req.OptionID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
