package slot

import (
	"testing"

	"github.com/holiman/uint256"
)

const testDivisor = 100

func TestQuoteNoDecayAtZeroElapsed(t *testing.T) {
	for _, stake := range []uint64{0, 1, 50, 1_000_000} {
		price, tax := Quote(uint256.NewInt(stake), 1000, 1000, testDivisor)
		if price.Uint64() != stake {
			t.Errorf("stake %d: expected price %d at zero elapsed, got %s", stake, stake, price)
		}
		if !tax.IsZero() {
			t.Errorf("stake %d: expected zero tax at zero elapsed, got %s", stake, tax)
		}
	}
}

func TestQuoteLinearDecay(t *testing.T) {
	tests := []struct {
		name          string
		stake         uint64
		elapsed       uint64
		expectedPrice uint64
		expectedTax   uint64
	}{
		{"one tick", 100, 1, 99, 1},
		{"half decayed", 100, 50, 50, 50},
		{"one tick before full", 100, 99, 1, 99},
		{"exactly full", 100, 100, 0, 100},
		{"rounding floors the tax", 7, 50, 4, 3}, // 7*50/100 = 3.5 -> 3
		{"stake below divisor, one tick", 3, 1, 3, 0},
		{"divisor-sized stake", testDivisor, 1, testDivisor - 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, tax := Quote(uint256.NewInt(tt.stake), 0, tt.elapsed, testDivisor)
			if price.Uint64() != tt.expectedPrice {
				t.Errorf("expected price %d, got %s", tt.expectedPrice, price)
			}
			if tax.Uint64() != tt.expectedTax {
				t.Errorf("expected tax %d, got %s", tt.expectedTax, tax)
			}
		})
	}
}

func TestQuoteFullyDecayedStaysAtZero(t *testing.T) {
	for _, elapsed := range []uint64{testDivisor, testDivisor + 1, 10 * testDivisor, 1 << 62} {
		price, tax := Quote(uint256.NewInt(100), 0, elapsed, testDivisor)
		if !price.IsZero() {
			t.Errorf("elapsed %d: expected zero price, got %s", elapsed, price)
		}
		if tax.Uint64() != 100 {
			t.Errorf("elapsed %d: expected tax clamped to stake, got %s", elapsed, tax)
		}
	}
}

func TestQuoteConservesStake(t *testing.T) {
	// price + tax == stake exactly, whatever the rounding did
	stakes := []uint64{0, 1, 3, 7, 99, 100, 101, 12345, 1 << 40}
	for _, s := range stakes {
		for elapsed := uint64(0); elapsed <= 2*testDivisor; elapsed += 7 {
			stake := uint256.NewInt(s)
			price, tax := Quote(stake, 0, elapsed, testDivisor)
			sum := new(uint256.Int).Add(price, tax)
			if !sum.Eq(stake) {
				t.Fatalf("stake %d elapsed %d: price %s + tax %s != stake", s, elapsed, price, tax)
			}
		}
	}
}

func TestQuotePriceMonotonicallyNonIncreasing(t *testing.T) {
	stake := uint256.NewInt(997) // prime, exercises rounding
	prev, _ := Quote(stake, 0, 0, testDivisor)
	for elapsed := uint64(1); elapsed <= testDivisor+10; elapsed++ {
		price, _ := Quote(stake, 0, elapsed, testDivisor)
		if price.Gt(prev) {
			t.Fatalf("price increased at elapsed %d: %s > %s", elapsed, price, prev)
		}
		prev = price
	}
	if !prev.IsZero() {
		t.Errorf("expected price to bottom at zero, got %s", prev)
	}
}

func TestQuoteClockBehindPostedAt(t *testing.T) {
	// Saturates elapsed at zero instead of underflowing
	price, tax := Quote(uint256.NewInt(42), 1000, 999, testDivisor)
	if price.Uint64() != 42 || !tax.IsZero() {
		t.Errorf("expected (42, 0) for now < postedAt, got (%s, %s)", price, tax)
	}
}

func TestQuoteHugeStake(t *testing.T) {
	// stake * elapsed exceeds 256 bits; the 512-bit intermediate keeps
	// the quotient exact
	stake := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	price, tax := Quote(stake, 0, 50, testDivisor)

	sum := new(uint256.Int).Add(price, tax)
	if !sum.Eq(stake) {
		t.Fatalf("huge stake not conserved: price %s + tax %s", price, tax)
	}

	// 50/100 elapsed means exactly half the stake is tax
	half := new(uint256.Int).Rsh(stake, 1)
	if !tax.Eq(half) {
		t.Errorf("expected tax %s, got %s", half, tax)
	}
}
