// internal/exchange/query.go
package exchange

// Predicate tests the common fields of an exchange.
type Predicate func(Exchange) bool

func ByStatus(status Status) Predicate {
	return func(e Exchange) bool { return e.Status == status }
}

func BySubmittedDate(date Date) Predicate {
	return func(e Exchange) bool { return e.SubmittedDate == date }
}

func ByVisitor(username string) Predicate {
	return func(e Exchange) bool { return e.VisitorUsername == username }
}

// All matches every exchange.
func All() Predicate {
	return func(Exchange) bool { return true }
}

// Select keeps the records whose header matches p, preserving input order.
// The result is never nil so callers can encode it as an empty list.
func Select[T Record](records []T, p Predicate) []T {
	return Filter(records, func(r T) bool { return p(r.Header()) })
}

// Filter is Select for predicates over variant-specific fields.
func Filter[T any](records []T, keep func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
