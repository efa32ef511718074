package main

import (
	"crypto/sha256"
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/adslot-experiment/adslot/config"
	"github.com/adslot-experiment/adslot/internal/ledger"
)

// Seeds a fresh persistent ledger with deterministic, funded test
// accounts and records the committed root so slotd can open it.

func main() {
	cfg := config.GetConfig()

	led, err := ledger.CreateLedger(cfg.StorageDir, ledger.WallClock{})
	if err != nil {
		log.Fatalf("Failed to create ledger at %s: %v", cfg.StorageDir, err)
	}
	defer led.Close()

	funding := uint256.NewInt(1e18)
	for i := 0; i < cfg.TestAccountNum; i++ {
		addr := TestAccount(i)
		led.Credit(addr, funding)
		fmt.Printf("Funded %s with %s\n", addr.Hex(), funding)
	}

	root, err := led.Commit(0)
	if err != nil {
		log.Fatalf("Failed to commit ledger: %v", err)
	}

	if err := ledger.WriteRootFile(cfg.StorageDir, root); err != nil {
		log.Fatalf("Failed to write root file: %v", err)
	}

	fmt.Printf("Committed root: %v\n", root.Hex())
}

// TestAccount derives the i-th deterministic test account address.
func TestAccount(i int) common.Address {
	seed := fmt.Sprintf("adslot-test-account-%d", i)
	hash := sha256.Sum256([]byte(seed))
	return common.BytesToAddress(hash[:])
}
