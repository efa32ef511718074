package protocol

import (
	"github.com/ethereum/go-ethereum/common"
)

// Wire types for the slot service HTTP API. Amounts travel as decimal
// strings in the ledger's smallest unit.

// ContentPayload is the slot's display payload as it appears on the wire.
type ContentPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// QuoteResponse is the read-only pricing view.
type QuoteResponse struct {
	Price string `json:"price"`
	Tax   string `json:"tax"`
	Now   uint64 `json:"now"`
}

// SlotResponse is the full slot view with the current quote embedded.
type SlotResponse struct {
	Holder   common.Address `json:"holder"`
	Occupied bool           `json:"occupied"`
	Stake    string         `json:"stake"`
	PostedAt uint64         `json:"posted_at"`
	Content  ContentPayload `json:"content"`
	Quote    QuoteResponse  `json:"quote"`
}

// SetRequest performs a take-over. Caller stands in for the host's
// unforgeable identity; Payment is the value attached to the call.
type SetRequest struct {
	Caller  string         `json:"caller"`
	Payment string         `json:"payment"`
	Content ContentPayload `json:"content"`
}

// ReclaimRequest empties the slot; only the configured admin may call it.
type ReclaimRequest struct {
	Caller string `json:"caller"`
}

// SettlementResponse reports the value flows of a successful operation.
type SettlementResponse struct {
	ID             string         `json:"id"`
	Kind           string         `json:"kind"`
	Caller         common.Address `json:"caller"`
	PreviousHolder common.Address `json:"previous_holder"`
	Payment        string         `json:"payment"`
	Price          string         `json:"price"`
	Tax            string         `json:"tax"`
	Payout         string         `json:"payout"`
	NewStake       string         `json:"new_stake"`
	Time           uint64         `json:"time"`
}

// BalanceResponse reports a ledger account balance.
type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance string         `json:"balance"`
}

// FaucetRequest credits an account for demos and tests.
type FaucetRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
