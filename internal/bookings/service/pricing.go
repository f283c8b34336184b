package service

import (
	"fmt"
	"math/rand/v2"
	"time"

	"maharaja/pkg/model"
)

const nightLength = 24 * time.Hour

// Nights rounds a stay up to whole nights. Any positive stay is at least one night.
func Nights(iv model.Interval) int {
	d := iv.Duration()
	if d <= 0 {
		return 0
	}
	n := int(d / nightLength)
	if d%nightLength != 0 {
		n++
	}
	return n
}

// Deposit is percent of total, rounded half up.
func Deposit(total int64, percent int) int64 {
	return (total*int64(percent) + 50) / 100
}

// Quote prices a booking. Slot-based kinds pay the flat rate, everything else
// pays rate per night. PayableNow is what a new booking records as paid.
func Quote(kind model.ResourceKind, iv model.Interval, rate int64, bookingType model.BookingType, partialPercent int) model.PriceBreakdown {
	quote := model.PriceBreakdown{
		Rate:        rate,
		BookingType: bookingType,
	}
	if kind.SlotBased() {
		quote.TotalPrice = rate
	} else {
		quote.Nights = Nights(iv)
		quote.TotalPrice = int64(quote.Nights) * rate
	}

	quote.PayableNow = quote.TotalPrice
	if bookingType == model.BookingPartial {
		quote.PayableNow = Deposit(quote.TotalPrice, partialPercent)
	}
	return quote
}

// BookingNumber formats PREFIX-unixMillis-NNNN. Uniqueness is enforced by the
// store, the random suffix only makes collisions unlikely.
func BookingNumber(prefix string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, at.UnixMilli(), rand.IntN(10000))
}
