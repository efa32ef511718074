package slot

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/adslot-experiment/adslot/internal/ledger"
)

var (
	// ErrInsufficientValue is returned by Set when the attached payment
	// does not cover the current take-over price.
	ErrInsufficientValue = errors.New("insufficient value: payment below current price")

	// ErrUnauthorized is returned by Reclaim for any caller other than
	// the configured admin.
	ErrUnauthorized = errors.New("unauthorized: caller is not the admin")
)

// DefaultVault is the ledger account that holds the posted stake on
// behalf of the mechanism. The mechanism never retains value anywhere
// else: tax and payouts are flushed out synchronously on every take-over.
var DefaultVault = common.BytesToAddress(crypto.Keccak256([]byte("adslot:stake-vault"))[12:])

// Content is the slot's display payload. Two free-form fields, no
// semantic constraints, fully overwritten on every take-over.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// State is the slot's full occupancy state. The zero address as Holder
// is the empty sentinel: slot free, no funds at risk.
type State struct {
	Holder   common.Address
	Stake    *uint256.Int
	PostedAt uint64
	Content  Content
}

// Params fixes the mechanism's configuration at construction time.
type Params struct {
	RateDivisor  uint64
	Admin        common.Address
	TaxCollector common.Address
	Vault        common.Address
}

// Mechanism owns the single slot and all its state transitions.
// One mutex serializes Set/Reclaim/Price, mirroring the host's
// total ordering of calls.
type Mechanism struct {
	mu     sync.Mutex
	ledger ledger.Ledger
	params Params
	state  State
}

// NewMechanism creates a mechanism with an empty slot.
func NewMechanism(l ledger.Ledger, params Params) *Mechanism {
	if params.Vault == (common.Address{}) {
		params.Vault = DefaultVault
	}
	return &Mechanism{
		ledger: l,
		params: params,
		state: State{
			Stake: new(uint256.Int),
		},
	}
}

// Params returns the mechanism's immutable configuration.
func (m *Mechanism) Params() Params {
	return m.params
}

// StateView returns a copy of the current slot state.
func (m *Mechanism) StateView() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Holder:   m.state.Holder,
		Stake:    new(uint256.Int).Set(m.state.Stake),
		PostedAt: m.state.PostedAt,
		Content:  m.state.Content,
	}
}

// Price returns the current take-over price and tax, read-only.
func (m *Mechanism) Price() (price, tax *uint256.Int, now uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now = m.ledger.Now()
	price, tax = Quote(m.state.Stake, m.state.PostedAt, now, m.params.RateDivisor)
	return price, tax, now
}

// Set performs a take-over: the caller seizes the slot by paying at
// least the current price. Settlement on success:
//
//	payment          caller  -> vault
//	tax              vault   -> tax collector
//	2 * price        vault   -> outgoing holder (when the slot is occupied)
//	payment - price  stays in the vault as the new stake
//
// The outgoing holder's leg is their remaining decayed collateral plus
// the buy-out owed by the incoming payer, both equal to price. A caller
// taking over from themselves goes through the same legs with no special
// case. Any ledger failure reverts every transfer; on the
// insufficient-value path no funds move at all.
func (m *Mechanism) Set(caller common.Address, content Content, payment *uint256.Int) (*Settlement, error) {
	if payment == nil {
		payment = new(uint256.Int)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.ledger.Now()
	if now < m.state.PostedAt {
		// postedAt never moves backwards
		now = m.state.PostedAt
	}

	price, tax := Quote(m.state.Stake, m.state.PostedAt, now, m.params.RateDivisor)
	if payment.Lt(price) {
		return nil, ErrInsufficientValue
	}

	prev := m.state

	snap := m.ledger.Snapshot()
	if err := m.ledger.Transfer(caller, m.params.Vault, payment); err != nil {
		m.ledger.RevertToSnapshot(snap)
		return nil, err
	}
	if err := m.ledger.Transfer(m.params.Vault, m.params.TaxCollector, tax); err != nil {
		m.ledger.RevertToSnapshot(snap)
		return nil, err
	}

	payout := new(uint256.Int)
	if prev.Holder != (common.Address{}) {
		payout.Add(price, price)
		if err := m.ledger.Transfer(m.params.Vault, prev.Holder, payout); err != nil {
			m.ledger.RevertToSnapshot(snap)
			return nil, err
		}
	}

	newStake := new(uint256.Int).Sub(payment, price)
	m.state = State{
		Holder:   caller,
		Stake:    newStake,
		PostedAt: now,
		Content:  content,
	}

	return newSettlement(SettlementTakeOver, caller, prev.Holder, payment, price, tax, payout, newStake, now), nil
}

// Reclaim is the admin's unconditional escape hatch: it extracts the
// full current stake, bypassing pricing and the tax collector, and
// resets the slot to empty. Content is cleared along with the holder.
func (m *Mechanism) Reclaim(caller common.Address) (*Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if caller != m.params.Admin {
		return nil, ErrUnauthorized
	}

	now := m.ledger.Now()
	if now < m.state.PostedAt {
		now = m.state.PostedAt
	}

	prev := m.state

	snap := m.ledger.Snapshot()
	if err := m.ledger.Transfer(m.params.Vault, m.params.Admin, prev.Stake); err != nil {
		m.ledger.RevertToSnapshot(snap)
		return nil, err
	}

	m.state = State{
		Holder:   common.Address{},
		Stake:    new(uint256.Int),
		PostedAt: now,
		Content:  Content{},
	}

	zero := new(uint256.Int)
	withdrawn := new(uint256.Int).Set(prev.Stake)
	return newSettlement(SettlementReclaim, caller, prev.Holder, zero, zero, zero, withdrawn, zero, now), nil
}
