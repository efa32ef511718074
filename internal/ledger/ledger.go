package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/holiman/uint256"
)

// RootFileName is the file next to the database that records the
// committed state root, written by the seeding tool and read on reopen.
const RootFileName = "ledger_root.txt"

// Ledger is the host collaborator the slot mechanism settles value through.
// Transfer is atomic; Snapshot/RevertToSnapshot give the mechanism the
// all-or-nothing rollback the host guarantees at the call boundary.
type Ledger interface {
	BalanceOf(addr common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
	Now() uint64
	Snapshot() int
	RevertToSnapshot(id int)
}

// StateLedger implements Ledger on top of geth's StateDB.
// All mutations go through the StateDB journal, so RevertToSnapshot
// undoes every balance change made since the matching Snapshot.
type StateLedger struct {
	mu      sync.Mutex
	db      state.Database
	trieDB  *triedb.Database
	stateDB *state.StateDB
	clock   Clock
	disk    io.Closer // leveldb handle, nil for in-memory ledgers
}

// NewMemoryLedger creates an in-memory ledger (tests, fallback mode).
func NewMemoryLedger(clock Clock) (*StateLedger, error) {
	memDB := rawdb.NewMemoryDatabase()
	trieDB := triedb.NewDatabase(memDB, nil)
	db := state.NewDatabase(trieDB, nil)

	stateDB, err := state.New(types.EmptyRootHash, db)
	if err != nil {
		return nil, err
	}

	return &StateLedger{
		db:      db,
		trieDB:  trieDB,
		stateDB: stateDB,
		clock:   clock,
	}, nil
}

// NewPersistentLedger opens a leveldb-backed ledger rooted at the state
// root recorded in storageDir. The seeding tool creates both.
func NewPersistentLedger(storageDir string, clock Clock) (*StateLedger, error) {
	rootPath := filepath.Join(storageDir, RootFileName)
	rootData, err := os.ReadFile(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger root: %w", err)
	}

	rootStr := strings.TrimSpace(string(rootData))
	if !(len(rootStr) == 66 && (rootStr[:2] == "0x" || rootStr[:2] == "0X")) {
		return nil, fmt.Errorf("invalid ledger root format: %q", rootStr)
	}

	ldb, err := leveldb.New(filepath.Join(storageDir, "db"), 128, 1024, "", false)
	if err != nil {
		return nil, err
	}

	rdb := rawdb.NewDatabase(ldb)
	tdb := triedb.NewDatabase(rdb, nil)
	sdb := state.NewDatabase(tdb, nil)

	stateDB, err := state.New(common.HexToHash(rootStr), sdb)
	if err != nil {
		ldb.Close()
		return nil, err
	}

	return &StateLedger{
		db:      sdb,
		trieDB:  tdb,
		stateDB: stateDB,
		clock:   clock,
		disk:    ldb,
	}, nil
}

// CreateLedger creates a fresh leveldb-backed ledger at the empty root.
// Used by the seeding tool; Commit + WriteRootFile make it openable with
// NewPersistentLedger afterwards.
func CreateLedger(storageDir string, clock Clock) (*StateLedger, error) {
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, err
	}

	ldb, err := leveldb.New(filepath.Join(storageDir, "db"), 128, 1024, "", false)
	if err != nil {
		return nil, err
	}

	rdb := rawdb.NewDatabase(ldb)
	tdb := triedb.NewDatabase(rdb, nil)
	sdb := state.NewDatabase(tdb, nil)

	stateDB, err := state.New(types.EmptyRootHash, sdb)
	if err != nil {
		ldb.Close()
		return nil, err
	}

	return &StateLedger{
		db:      sdb,
		trieDB:  tdb,
		stateDB: stateDB,
		clock:   clock,
		disk:    ldb,
	}, nil
}

// WriteRootFile records the committed state root next to the database.
func WriteRootFile(storageDir string, root common.Hash) error {
	return os.WriteFile(filepath.Join(storageDir, RootFileName), []byte(root.Hex()), 0644)
}

// Now returns the current host time.
func (l *StateLedger) Now() uint64 {
	return l.clock.Now()
}

// BalanceOf returns the account balance.
func (l *StateLedger) BalanceOf(addr common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.stateDB.GetBalance(addr))
}

// Transfer atomically moves amount from one account to another.
// A zero amount is a no-op. Fails without mutation when the sender's
// balance does not cover the amount.
func (l *StateLedger) Transfer(from, to common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stateDB.GetBalance(from).Lt(amount) {
		return fmt.Errorf("insufficient balance: %s has %s, needs %s",
			from.Hex(), l.stateDB.GetBalance(from), amount)
	}

	l.stateDB.SubBalance(from, amount, tracing.BalanceChangeTransfer)
	l.stateDB.AddBalance(to, amount, tracing.BalanceChangeTransfer)
	return nil
}

// Credit mints amount into an account. Faucet/seed use only.
func (l *StateLedger) Credit(addr common.Address, amount *uint256.Int) {
	if amount == nil || amount.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateDB.AddBalance(addr, amount, tracing.BalanceChangeUnspecified)
}

// Snapshot returns a revision id for RevertToSnapshot.
func (l *StateLedger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateDB.Snapshot()
}

// RevertToSnapshot undoes all mutations since the given revision.
func (l *StateLedger) RevertToSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stateDB.RevertToSnapshot(id)
}

// Commit flushes the current state and returns the new root.
// The StateDB is reopened at the new root so cached tries aren't reused.
func (l *StateLedger) Commit(blockNum uint64) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	root, err := l.stateDB.Commit(blockNum, false, false)
	if err != nil {
		return common.Hash{}, err
	}

	if err := l.trieDB.Commit(root, false); err != nil {
		return common.Hash{}, fmt.Errorf("failed to commit trie at root %s: %w", root.Hex(), err)
	}

	stateDB, err := state.New(root, l.stateDB.Database())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to reopen state at root %s: %w", root.Hex(), err)
	}
	l.stateDB = stateDB
	return root, nil
}

// Close releases the underlying database. No-op for in-memory ledgers.
func (l *StateLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disk == nil {
		return nil
	}
	return l.disk.Close()
}
