package slot

import "github.com/holiman/uint256"

// Quote computes the current take-over price of a posted stake and the
// tax portion embedded in it. Pure function of its inputs.
//
// The stake decays linearly: tax = floor(stake * elapsed / rateDivisor),
// clamped to the stake itself, and price = stake - tax. The clamp is
// applied to the tax with the price derived by subtraction, so
// price + tax == stake holds exactly with no rounding leakage.
func Quote(stake *uint256.Int, postedAt, now, rateDivisor uint64) (price, tax *uint256.Int) {
	price = new(uint256.Int)
	tax = new(uint256.Int)

	if stake == nil || stake.IsZero() {
		return price, tax
	}

	// The host clock is non-decreasing, but saturate anyway so the
	// function is total over all inputs.
	var elapsed uint64
	if now > postedAt {
		elapsed = now - postedAt
	}

	if elapsed == 0 {
		price.Set(stake)
		return price, tax
	}

	// Fully decayed: the price bottoms at zero and stays there.
	if elapsed >= rateDivisor {
		tax.Set(stake)
		return price, tax
	}

	// elapsed < rateDivisor, so the quotient is strictly below stake and
	// fits in 256 bits; the multiplication uses a 512-bit intermediate.
	tax.MulDivOverflow(stake, uint256.NewInt(elapsed), uint256.NewInt(rateDivisor))
	if tax.Gt(stake) {
		tax.Set(stake)
	}
	price.Sub(stake, tax)
	return price, tax
}
