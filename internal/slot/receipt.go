package slot

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// SettlementKind distinguishes the two operations that move value.
type SettlementKind string

const (
	SettlementTakeOver SettlementKind = "takeover"
	SettlementReclaim  SettlementKind = "reclaim"
)

// Settlement records the value flows of one successful operation.
//
// For a take-over, Payout is the 2*price leg to the outgoing holder;
// for a reclaim it is the stake withdrawn to the admin.
type Settlement struct {
	ID             string         `json:"id"`
	Kind           SettlementKind `json:"kind"`
	Caller         common.Address `json:"caller"`
	PreviousHolder common.Address `json:"previous_holder"`
	Payment        *uint256.Int   `json:"payment"`
	Price          *uint256.Int   `json:"price"`
	Tax            *uint256.Int   `json:"tax"`
	Payout         *uint256.Int   `json:"payout"`
	NewStake       *uint256.Int   `json:"new_stake"`
	Time           uint64         `json:"time"`
}

func newSettlement(kind SettlementKind, caller, prevHolder common.Address,
	payment, price, tax, payout, newStake *uint256.Int, now uint64) *Settlement {
	return &Settlement{
		ID:             uuid.New().String(),
		Kind:           kind,
		Caller:         caller,
		PreviousHolder: prevHolder,
		Payment:        new(uint256.Int).Set(payment),
		Price:          new(uint256.Int).Set(price),
		Tax:            new(uint256.Int).Set(tax),
		Payout:         new(uint256.Int).Set(payout),
		NewStake:       new(uint256.Int).Set(newStake),
		Time:           now,
	}
}

// DeepCopy creates a deep copy of the Settlement
func (s *Settlement) DeepCopy() *Settlement {
	if s == nil {
		return nil
	}
	result := *s
	result.Payment = new(uint256.Int).Set(s.Payment)
	result.Price = new(uint256.Int).Set(s.Price)
	result.Tax = new(uint256.Int).Set(s.Tax)
	result.Payout = new(uint256.Int).Set(s.Payout)
	result.NewStake = new(uint256.Int).Set(s.NewStake)
	return &result
}

// ReceiptStore keeps settlement receipts in memory, keyed by id.
type ReceiptStore struct {
	receipts map[string]*Settlement
	mu       sync.RWMutex
}

func NewReceiptStore() *ReceiptStore {
	return &ReceiptStore{
		receipts: make(map[string]*Settlement),
	}
}

func (s *ReceiptStore) Add(r *Settlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Store a copy to avoid aliasing caller's data
	s.receipts[r.ID] = r.DeepCopy()
}

func (s *ReceiptStore) Get(id string) *Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.receipts[id]
	if r == nil {
		return nil
	}
	// Return a copy to avoid aliasing internal data
	return r.DeepCopy()
}
