// internal/tour/policy.go
package tour

import "mmss/internal/exchange"

// DefaultCapacity is the participant ceiling of one slot.
const DefaultCapacity = 20

// PricingPolicy prices a tour seat at booking time.
type PricingPolicy interface {
	PricePerPerson(slot Slot) (exchange.Money, error)
}

// ShiftPricing charges a flat per-person price for each shift.
type ShiftPricing map[ShiftTime]exchange.Money

// DefaultPricing is used when no pricing is configured.
var DefaultPricing = ShiftPricing{
	ShiftMorning:   1000,
	ShiftAfternoon: 1200,
	ShiftEvening:   1500,
}

func (p ShiftPricing) PricePerPerson(slot Slot) (exchange.Money, error) {
	price, ok := p[slot.Shift]
	if !ok {
		return 0, exchange.Validation("shift_time", "no price for shift %s", slot.Shift)
	}
	if price < 0 {
		return 0, exchange.Validation("shift_time", "negative price for shift %s", slot.Shift)
	}
	return price, nil
}
