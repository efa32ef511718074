package slotserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/adslot-experiment/adslot/internal/ledger"
	"github.com/adslot-experiment/adslot/internal/protocol"
	"github.com/adslot-experiment/adslot/internal/slot"
)

const testDivisor = 100

var (
	adminAddr = "0x00000000000000000000000000000000000000aa"
	taxAddr   = "0x00000000000000000000000000000000000000bb"
	buyerA    = "0x0000000000000000000000000000000000000001"
	buyerB    = "0x0000000000000000000000000000000000000002"
)

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestServer(t *testing.T) (*Server, *ledger.ManualClock) {
	t.Helper()
	clock := ledger.NewManualClock(1_700_000_000)
	led, err := ledger.NewMemoryLedger(clock)
	if err != nil {
		t.Fatalf("NewMemoryLedger failed: %v", err)
	}
	mech := slot.NewMechanism(led, slot.Params{
		RateDivisor:  testDivisor,
		Admin:        common.HexToAddress(adminAddr),
		TaxCollector: common.HexToAddress(taxAddr),
	})
	return NewServer(mech, led), clock
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func fundAccount(t *testing.T, server *Server, address, amount string) {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/faucet", protocol.FaucetRequest{Address: address, Amount: amount})
	if rr.Code != http.StatusOK {
		t.Fatalf("Faucet failed: %s", rr.Body.String())
	}
}

func getBalance(t *testing.T, server *Server, address string) *uint256.Int {
	t.Helper()
	rr := doJSON(t, server, http.MethodGet, "/balance/"+address, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Balance failed: %s", rr.Body.String())
	}
	var resp protocol.BalanceResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	bal, err := uint256.FromDecimal(resp.Balance)
	if err != nil {
		t.Fatalf("bad balance %q: %v", resp.Balance, err)
	}
	return bal
}

func setSlot(t *testing.T, server *Server, caller, payment, title string) (int, protocol.SettlementResponse) {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/slot/set", protocol.SetRequest{
		Caller:  caller,
		Payment: payment,
		Content: protocol.ContentPayload{Title: title, Body: "body of " + title},
	})
	var resp protocol.SettlementResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	return rr.Code, resp
}

func getSlot(t *testing.T, server *Server) protocol.SlotResponse {
	t.Helper()
	rr := doJSON(t, server, http.MethodGet, "/slot", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /slot failed: %s", rr.Body.String())
	}
	var resp protocol.SlotResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	return resp
}

// =============================================================================
// Tests
// =============================================================================

func TestPriceOnEmptySlot(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := doJSON(t, server, http.MethodGet, "/price", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /price failed: %s", rr.Body.String())
	}

	var resp protocol.QuoteResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Price != "0" || resp.Tax != "0" {
		t.Errorf("empty slot: expected price 0 tax 0, got %s/%s", resp.Price, resp.Tax)
	}
}

func TestSetAndReadBack(t *testing.T) {
	server, _ := setupTestServer(t)
	fundAccount(t, server, buyerA, "1000")

	code, receipt := setSlot(t, server, buyerA, "600", "hello")
	if code != http.StatusOK {
		t.Fatalf("set failed with %d", code)
	}
	if receipt.NewStake != "600" {
		t.Errorf("expected new stake 600, got %s", receipt.NewStake)
	}

	view := getSlot(t, server)
	if !view.Occupied || view.Holder != common.HexToAddress(buyerA) {
		t.Errorf("slot not held by buyer: %+v", view)
	}
	if view.Content.Title != "hello" {
		t.Errorf("content not installed: %+v", view.Content)
	}
	if view.Stake != "600" {
		t.Errorf("expected stake 600, got %s", view.Stake)
	}

	if got := getBalance(t, server, buyerA); got.Uint64() != 400 {
		t.Errorf("buyer balance: expected 400, got %s", got)
	}

	// Receipt is retrievable by id
	rr := doJSON(t, server, http.MethodGet, "/receipt/"+receipt.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("receipt lookup failed: %s", rr.Body.String())
	}
}

func TestTakeOverSettlesAllParties(t *testing.T) {
	server, clock := setupTestServer(t)
	fundAccount(t, server, buyerA, "1000")
	fundAccount(t, server, buyerB, "1000")

	code, _ := setSlot(t, server, buyerA, "100", "first")
	if code != http.StatusOK {
		t.Fatalf("first set failed with %d", code)
	}

	clock.Advance(1)

	code, receipt := setSlot(t, server, buyerB, "100", "second")
	if code != http.StatusOK {
		t.Fatalf("resale failed with %d", code)
	}

	if receipt.Price != "99" || receipt.Tax != "1" {
		t.Errorf("expected price 99 tax 1, got %s/%s", receipt.Price, receipt.Tax)
	}
	if receipt.Payout != "198" {
		t.Errorf("expected payout 198, got %s", receipt.Payout)
	}
	if got := getBalance(t, server, buyerA); got.Uint64() != 900+198 {
		t.Errorf("outgoing holder balance: expected 1098, got %s", got)
	}
	if got := getBalance(t, server, taxAddr); got.Uint64() != 1 {
		t.Errorf("tax collector balance: expected 1, got %s", got)
	}
}

func TestSetInsufficientValue(t *testing.T) {
	server, clock := setupTestServer(t)
	fundAccount(t, server, buyerA, "1000")
	fundAccount(t, server, buyerB, "1000")

	setSlot(t, server, buyerA, "100", "first")
	clock.Advance(1) // price is now 99

	code, _ := setSlot(t, server, buyerB, "97", "lowball")
	if code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", code)
	}

	// Nothing moved, nothing changed
	view := getSlot(t, server)
	if view.Holder != common.HexToAddress(buyerA) || view.Content.Title != "first" {
		t.Errorf("slot mutated by rejected take-over: %+v", view)
	}
	if got := getBalance(t, server, buyerB); got.Uint64() != 1000 {
		t.Errorf("rejected caller's payment retained: %s", got)
	}
}

func TestSetMalformedRequests(t *testing.T) {
	server, _ := setupTestServer(t)

	tests := []struct {
		name string
		req  protocol.SetRequest
	}{
		{"bad caller", protocol.SetRequest{Caller: "not-an-address", Payment: "1"}},
		{"bad payment", protocol.SetRequest{Caller: buyerA, Payment: "12x4"}},
		{"negative payment", protocol.SetRequest{Caller: buyerA, Payment: "-5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, server, http.MethodPost, "/slot/set", tt.req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestReclaimEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	fundAccount(t, server, buyerA, "1000")
	setSlot(t, server, buyerA, "500", "taken")

	// Non-admin callers are rejected with 403 and no state change
	rr := doJSON(t, server, http.MethodPost, "/slot/reclaim", protocol.ReclaimRequest{Caller: buyerA})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rr.Code, rr.Body.String())
	}
	if view := getSlot(t, server); !view.Occupied {
		t.Error("slot emptied by unauthorized reclaim")
	}

	// Admin succeeds and receives the stake
	rr = doJSON(t, server, http.MethodPost, "/slot/reclaim", protocol.ReclaimRequest{Caller: adminAddr})
	if rr.Code != http.StatusOK {
		t.Fatalf("admin reclaim failed: %s", rr.Body.String())
	}

	view := getSlot(t, server)
	if view.Occupied || view.Stake != "0" {
		t.Errorf("slot not reset after reclaim: %+v", view)
	}
	if got := getBalance(t, server, adminAddr); got.Uint64() != 500 {
		t.Errorf("admin balance: expected 500, got %s", got)
	}
}

func TestReceiptNotFound(t *testing.T) {
	server, _ := setupTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/receipt/00000000-0000-0000-0000-000000000000", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t)
	rr := doJSON(t, server, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}
