package domain

// Product is the directory's view of a sellable item. Immutable from the
// orchestrator's perspective within one order's lifetime.
type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceCents int64
}
