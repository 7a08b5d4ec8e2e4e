package tour

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmss/internal/exchange"
)

func TestParseShift(t *testing.T) {
	for _, shift := range Shifts {
		got, err := ParseShift(string(shift))
		require.NoError(t, err)
		assert.Equal(t, shift, got)
	}
	_, err := ParseShift("morning")
	assert.ErrorIs(t, err, exchange.ErrValidation)
}

func TestCompareSlots(t *testing.T) {
	d1 := exchange.MustParseDate("2024-06-01")
	d2 := exchange.MustParseDate("2024-06-02")
	slots := []Slot{{d2, ShiftMorning}, {d1, ShiftEvening}, {d1, ShiftMorning}, {d1, ShiftAfternoon}}

	slices.SortFunc(slots, CompareSlots)
	assert.Equal(t, []Slot{{d1, ShiftMorning}, {d1, ShiftAfternoon}, {d1, ShiftEvening}, {d2, ShiftMorning}}, slots)
}

func TestLedger(t *testing.T) {
	slot := Slot{exchange.MustParseDate("2024-06-01"), ShiftMorning}
	l := NewLedger(20)

	l.Reserve(slot, 15)
	assert.ErrorIs(t, l.Check(slot, 6, 0), exchange.ErrValidation)
	assert.NoError(t, l.Check(slot, 5, 0))
	assert.NoError(t, l.Check(slot, 20, 15), "released seats are available again")

	l.Release(slot, 15)
	assert.Equal(t, 0, l.Booked(slot))
	assert.Equal(t, Availability{Slot: slot, Capacity: 20, Remaining: 20}, l.Availability(slot))
}
