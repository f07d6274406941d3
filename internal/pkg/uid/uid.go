// Package uid provides identifier generators.
//
// NumberID yields sortable 64-bit IDs for database rows; StringID yields
// opaque string IDs for storage keys and request correlation.
package uid

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
