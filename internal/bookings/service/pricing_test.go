package service

import (
	"strings"
	"testing"
	"time"

	"maharaja/pkg/model"
)

func TestNights(t *testing.T) {
	base := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		dur  time.Duration
		want int
	}{
		{"exactly one night", 24 * time.Hour, 1},
		{"two nights", 48 * time.Hour, 2},
		{"short stay rounds up", 3 * time.Hour, 1},
		{"late checkout rounds up", 49 * time.Hour, 3},
		{"empty", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Nights(model.Interval{Start: base, End: base.Add(tt.dur)})
			if got != tt.want {
				t.Errorf("Nights() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeposit(t *testing.T) {
	tests := []struct {
		total int64
		want  int64
	}{
		{2000, 200},
		{1005, 101},
		{1004, 100},
		{0, 0},
	}
	for _, tt := range tests {
		if got := Deposit(tt.total, 10); got != tt.want {
			t.Errorf("Deposit(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestQuote(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	twoNights := model.Interval{Start: base, End: base.Add(48 * time.Hour)}

	full := Quote(model.KindRoom, twoNights, 1000, model.BookingFull, 10)
	if full.TotalPrice != 2000 || full.PayableNow != 2000 || full.Nights != 2 {
		t.Errorf("full room quote = %+v", full)
	}

	partial := Quote(model.KindHall, twoNights, 1000, model.BookingPartial, 10)
	if partial.TotalPrice != 2000 || partial.PayableNow != 200 {
		t.Errorf("partial hall quote = %+v", partial)
	}

	table := Quote(model.KindTable, twoNights, 500, model.BookingFull, 10)
	if table.TotalPrice != 500 || table.Nights != 0 {
		t.Errorf("table quote = %+v", table)
	}
}

func TestBookingNumber(t *testing.T) {
	at := time.UnixMilli(1717200000000)
	got := BookingNumber("BH", at)
	if !strings.HasPrefix(got, "BH-1717200000000-") {
		t.Errorf("unexpected booking number %q", got)
	}
	if suffix := got[strings.LastIndex(got, "-")+1:]; len(suffix) != 4 {
		t.Errorf("suffix %q is not 4 digits", suffix)
	}
}
