package domain

// PriceEntry is one (price type, amount) pair read from the price tables.
// Amounts are in the smallest currency unit.
type PriceEntry struct {
	TypeName string `json:"price_name"`
	Amount   int64  `json:"price"`
}

type Price struct {
	Price int64 `json:"price"`
}

// PriceMap maps a price type name to its price, e.g. {"DEFAULT": {"price": 599}}.
type PriceMap map[string]Price
