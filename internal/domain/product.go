package domain

// QuantityUnit is a canonical unit that quantities are normalized into
// before any cross-platform comparison is attempted.
type QuantityUnit string

const (
	UnitMilliliters QuantityUnit = "ml"
	UnitGrams       QuantityUnit = "g"
	UnitCount       QuantityUnit = "count"
)

// ParsedQuantity is a listing's pack size normalized to a canonical unit.
// Raw is kept for display and for re-deriving the value if normalization
// rules change; Value is always expressed in Unit.
type ParsedQuantity struct {
	Raw   string
	Value float64
	Unit  QuantityUnit
	// Ok is false when the raw quantity string could not be parsed at all;
	// such a listing is still shown but never matched against others.
	Ok bool
}

// ProductListing is one platform's raw search hit for a query, after price
// and quantity normalization but before cross-platform grouping.
//
// Price is the first digit run extracted from the platform's raw price
// presentation (spec §9: decimals and secondary separator groups are
// deliberately discarded, matching the source behavior). PriceOk is false
// when no digit run could be extracted at all.
type ProductListing struct {
	Platform Platform
	Name     string
	Price    int64
	PriceOk  bool
	RawPrice string
	Quantity ParsedQuantity
	URL      string
	ImageURL string
}
