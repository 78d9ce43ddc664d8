package domain

// ClampCartQuantity bounds a wanted cart quantity by available stock.
// clamped is true when the wanted quantity could not be fully honoured.
func ClampCartQuantity(wanted, stock int) (qty int, clamped bool) {
	if wanted < 0 {
		wanted = 0
	}
	if stock < 0 {
		stock = 0
	}
	if wanted > stock {
		return stock, true
	}
	return wanted, false
}
