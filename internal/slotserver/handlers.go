package slotserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"

	"github.com/adslot-experiment/adslot/internal/protocol"
	"github.com/adslot-experiment/adslot/internal/slot"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(protocol.ErrorResponse{Error: msg})
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func parseAmount(s string) (*uint256.Int, bool) {
	if s == "" {
		return new(uint256.Int), true
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, false
	}
	return v, true
}

func settlementResponse(r *slot.Settlement) protocol.SettlementResponse {
	return protocol.SettlementResponse{
		ID:             r.ID,
		Kind:           string(r.Kind),
		Caller:         r.Caller,
		PreviousHolder: r.PreviousHolder,
		Payment:        r.Payment.Dec(),
		Price:          r.Price.Dec(),
		Tax:            r.Tax.Dec(),
		Payout:         r.Payout.Dec(),
		NewStake:       r.NewStake.Dec(),
		Time:           r.Time,
	}
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	price, tax, now := s.mech.Price()
	json.NewEncoder(w).Encode(protocol.QuoteResponse{
		Price: price.Dec(),
		Tax:   tax.Dec(),
		Now:   now,
	})
}

func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	state := s.mech.StateView()
	price, tax, now := s.mech.Price()

	json.NewEncoder(w).Encode(protocol.SlotResponse{
		Holder:   state.Holder,
		Occupied: state.Holder != (common.Address{}),
		Stake:    state.Stake.Dec(),
		PostedAt: state.PostedAt,
		Content: protocol.ContentPayload{
			Title: state.Content.Title,
			Body:  state.Content.Body,
		},
		Quote: protocol.QuoteResponse{
			Price: price.Dec(),
			Tax:   tax.Dec(),
			Now:   now,
		},
	})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req protocol.SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	payment, ok := parseAmount(req.Payment)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid payment amount")
		return
	}

	content := slot.Content{Title: req.Content.Title, Body: req.Content.Body}
	receipt, err := s.mech.Set(caller, content, payment)
	if err != nil {
		if errors.Is(err, slot.ErrInsufficientValue) {
			writeError(w, http.StatusPaymentRequired, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.receipts.Add(receipt)

	log.Printf("Slot taken over by %s: payment=%s price=%s tax=%s newStake=%s",
		caller.Hex(), receipt.Payment.Dec(), receipt.Price.Dec(), receipt.Tax.Dec(), receipt.NewStake.Dec())

	json.NewEncoder(w).Encode(settlementResponse(receipt))
}

func (s *Server) handleReclaim(w http.ResponseWriter, r *http.Request) {
	var req protocol.ReclaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller, ok := parseAddress(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	receipt, err := s.mech.Reclaim(caller)
	if err != nil {
		if errors.Is(err, slot.ErrUnauthorized) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.receipts.Add(receipt)

	log.Printf("Slot reclaimed by admin %s: withdrawn=%s", caller.Hex(), receipt.Payout.Dec())

	json.NewEncoder(w).Encode(settlementResponse(receipt))
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	receipt := s.receipts.Get(vars["id"])
	if receipt == nil {
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}
	json.NewEncoder(w).Encode(settlementResponse(receipt))
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addr, ok := parseAddress(vars["address"])
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	balance := s.ledger.BalanceOf(addr)
	json.NewEncoder(w).Encode(protocol.BalanceResponse{
		Address: addr,
		Balance: balance.Dec(),
	})
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req protocol.FaucetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	addr, ok := parseAddress(req.Address)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	s.ledger.Credit(addr, amount)

	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
