package api

import (
	"net/http"
	"strconv"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/ledger"
	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/snapshot"
)

// handleGetPriceHistory handles GET /api/price/history?option_id=...&from=...&to=...
func (s *Server) handleGetPriceHistory(w http.ResponseWriter, r *http.Request) {
	snaps, ok := s.readSnapshots(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Range(snaps))
}

// handleGetOHLC handles GET /api/price/ohlc?option_id=...&from=...&to=...&interval=1h
func (s *Server) handleGetOHLC(w http.ResponseWriter, r *http.Request) {
	snaps, ok := s.readSnapshots(w, r)
	if !ok {
		return
	}

	interval := snapshot.Interval(r.URL.Query().Get("interval"))
	if interval == "" {
		interval = snapshot.Interval1h
	}
	if !snapshot.ValidInterval(interval) {
		writeError(w, http.StatusBadRequest, "unknown interval")
		return
	}
	candles := snapshot.OHLC(snaps, interval)
	writeJSON(w, http.StatusOK, candles)
}

// readSnapshots parses the option_id/from/to query params and fetches the
// matching PriceSnapshot rows in a read-only transaction that is always
// rolled back, never committed.
func (s *Server) readSnapshots(w http.ResponseWriter, r *http.Request) ([]*ledger.PriceSnapshot, bool) {
	optionID := r.URL.Query().Get("option_id")
	if optionID == "" {
		writeError(w, http.StatusBadRequest, "option_id is required")
		return nil, false
	}
	fromTS, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	toTS, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	if toTS == 0 {
		toTS = 1<<62 - 1
	}

	tx, err := s.store.Begin(r.Context())
	if err != nil {
		writeAppErr(w, err)
		return nil, false
	}
	defer tx.Rollback(r.Context())

	snaps, err := tx.ListSnapshots(r.Context(), optionID, fromTS, toTS)
	if err != nil {
		writeAppErr(w, err)
		return nil, false
	}
	return snaps, true
}
