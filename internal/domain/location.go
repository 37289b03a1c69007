package domain

// LocationDescriptor is the canonical resolution of a (lat, lon) pair,
// produced by the Geocoder and treated as immutable within a request.
type LocationDescriptor struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PostalCode       string
	PlaceID          string
}
