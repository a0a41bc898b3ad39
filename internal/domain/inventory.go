package domain

// InventoryRecord tracks stock for a single product. Reserved never exceeds
// Total; Available is the quantity eligible for new reservations.
type InventoryRecord struct {
	ProductID string
	Total     int
	Reserved  int
	Threshold int
}

func (r InventoryRecord) Available() int {
	return r.Total - r.Reserved
}

// LowStock reports whether available-to-sell has fallen to or below the
// configured threshold.
func (r InventoryRecord) LowStock() bool {
	return r.Available() <= r.Threshold
}
