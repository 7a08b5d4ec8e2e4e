// internal/tour/domain.go
package tour

import (
	"cmp"
	"fmt"

	"mmss/internal/exchange"
)

// ShiftTime is one of the fixed daily tour slots.
type ShiftTime string

const (
	ShiftMorning   ShiftTime = "MORNING"
	ShiftAfternoon ShiftTime = "AFTERNOON"
	ShiftEvening   ShiftTime = "EVENING"
)

// Shifts lists the shifts in the order they run during a day.
var Shifts = []ShiftTime{ShiftMorning, ShiftAfternoon, ShiftEvening}

func ParseShift(s string) (ShiftTime, error) {
	for _, shift := range Shifts {
		if string(shift) == s {
			return shift, nil
		}
	}
	return "", exchange.Validation("shift_time", "unknown shift %q", s)
}

func (s ShiftTime) order() int {
	for i, shift := range Shifts {
		if shift == s {
			return i
		}
	}
	return len(Shifts)
}

// Tour is an exchange booking a guided tour for a group. Tours are always BOOKED.
type Tour struct {
	exchange.Exchange
	PricePerPerson       exchange.Money `json:"price_per_person" db:"price_per_person"`
	NumberOfParticipants int            `json:"number_of_participants" db:"number_of_participants"`
	ShiftTime            ShiftTime      `json:"shift_time" db:"shift_time"`
	Date                 exchange.Date  `json:"date" db:"date"`
}

func (t *Tour) Slot() Slot {
	return Slot{Date: t.Date, Shift: t.ShiftTime}
}

// Total is the price of the whole group.
func (t *Tour) Total() exchange.Money {
	return t.PricePerPerson * exchange.Money(t.NumberOfParticipants)
}

// Slot is one shift on one day. All tours in a slot share its capacity.
type Slot struct {
	Date  exchange.Date `json:"date"`
	Shift ShiftTime     `json:"shift_time"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s/%s", s.Date, s.Shift)
}

// CompareSlots orders slots by date, then by shift within the day.
func CompareSlots(a, b Slot) int {
	if c := exchange.CompareDates(a.Date, b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Shift.order(), b.Shift.order())
}

// Availability describes the seats of one slot.
type Availability struct {
	Slot
	Capacity  int `json:"capacity"`
	Booked    int `json:"booked"`
	Remaining int `json:"remaining"`
}

// TourBookedEvent is recorded when a tour is created.
type TourBookedEvent struct {
	ID                   int            `json:"id"`
	VisitorUsername      string         `json:"visitor_username"`
	Date                 exchange.Date  `json:"date"`
	ShiftTime            ShiftTime      `json:"shift_time"`
	NumberOfParticipants int            `json:"number_of_participants"`
	PricePerPerson       exchange.Money `json:"price_per_person"`
}

// TourRescheduledEvent is recorded when the date or group size changes.
type TourRescheduledEvent struct {
	ID               int           `json:"id"`
	FromDate         exchange.Date `json:"from_date"`
	ToDate           exchange.Date `json:"to_date"`
	FromParticipants int           `json:"from_participants"`
	ToParticipants   int           `json:"to_participants"`
}

// TourCancelledEvent is recorded when a tour is deleted.
type TourCancelledEvent struct {
	ID                   int           `json:"id"`
	Date                 exchange.Date `json:"date"`
	ShiftTime            ShiftTime     `json:"shift_time"`
	NumberOfParticipants int           `json:"number_of_participants"`
}
