package model

import (
	"testing"
	"time"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from BookingStatus
		to   BookingStatus
		want bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusNoShow, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusNoShow, StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookingStatus_TerminalAndBlocking(t *testing.T) {
	for _, s := range []BookingStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
		if s.Blocks() {
			t.Errorf("%s should not block its interval", s)
		}
	}
	for _, s := range BlockingStatuses {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
		if !s.Blocks() {
			t.Errorf("%s should block its interval", s)
		}
	}
	if BookingStatus("archived").Valid() {
		t.Error("unknown status reported as valid")
	}
}

func TestInterval_Overlaps(t *testing.T) {
	base := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	a := Interval{Start: base, End: base.Add(2 * day)}

	tests := []struct {
		name string
		b    Interval
		want bool
	}{
		{"identical", a, true},
		{"adjacent after", Interval{Start: base.Add(2 * day), End: base.Add(3 * day)}, false},
		{"adjacent before", Interval{Start: base.Add(-day), End: base}, false},
		{"contained", Interval{Start: base.Add(time.Hour), End: base.Add(2 * time.Hour)}, true},
		{"straddles start", Interval{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}, true},
		{"straddles end", Interval{Start: base.Add(2*day - time.Hour), End: base.Add(3 * day)}, true},
		{"disjoint", Interval{Start: base.Add(5 * day), End: base.Add(6 * day)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(a); got != tt.want {
				t.Errorf("Overlaps() is not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInterval_Valid(t *testing.T) {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	if (Interval{Start: now, End: now}).Valid() {
		t.Error("empty interval reported as valid")
	}
	if (Interval{Start: now, End: now.Add(-time.Minute)}).Valid() {
		t.Error("reversed interval reported as valid")
	}
	if !(Interval{Start: now, End: now.Add(time.Minute)}).Valid() {
		t.Error("forward interval reported as invalid")
	}
}

func TestSlotInterval(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	iv, err := SlotInterval("2024-06-10", SlotDinner, loc)
	if err != nil {
		t.Fatalf("SlotInterval() error = %v", err)
	}
	wantStart := time.Date(2024, 6, 10, 19, 0, 0, 0, loc)
	wantEnd := time.Date(2024, 6, 10, 23, 0, 0, 0, loc)
	if !iv.Start.Equal(wantStart) || !iv.End.Equal(wantEnd) {
		t.Errorf("SlotInterval() = [%v, %v), want [%v, %v)", iv.Start, iv.End, wantStart, wantEnd)
	}

	breakfast, _ := SlotInterval("2024-06-10", SlotBreakfast, loc)
	lunch, _ := SlotInterval("2024-06-10", SlotLunch, loc)
	if breakfast.Overlaps(lunch) || lunch.Overlaps(iv) {
		t.Error("service slots on the same day must not overlap")
	}

	if _, err := SlotInterval("2024-06-10", TimeSlot("brunch"), loc); err == nil {
		t.Error("expected error for unknown slot")
	}
	if _, err := SlotInterval("10/06/2024", SlotLunch, loc); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestBookingCondition_Matches(t *testing.T) {
	b := &Booking{
		Status:        StatusPending,
		PaymentStatus: PaymentPartial,
		PaidAmount:    500,
		TransactionID: "pay_1",
	}

	tests := []struct {
		name string
		cond BookingCondition
		want bool
	}{
		{"empty matches all", BookingCondition{}, true},
		{"status in set", BookingCondition{Statuses: BlockingStatuses}, true},
		{"status not in set", BookingCondition{Statuses: []BookingStatus{StatusConfirmed}}, false},
		{"payment unsettled", BookingCondition{PaymentStatuses: Unsettled}, true},
		{"payment settled only", BookingCondition{PaymentStatuses: []PaymentStatus{PaymentCompleted}}, false},
		{"paid amount equal", BookingCondition{PaidAmount: Ptr(int64(500))}, true},
		{"paid amount stale", BookingCondition{PaidAmount: Ptr(int64(400))}, false},
		{"transaction mismatch", BookingCondition{TransactionID: Ptr("pay_2")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cond.Matches(b); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookingPatch_Apply(t *testing.T) {
	b := &Booking{Status: StatusPending, PaymentStatus: PaymentPending, PaidAmount: 100}
	BookingPatch{
		Status:        Ptr(StatusConfirmed),
		PaymentStatus: Ptr(PaymentCompleted),
		TransactionID: Ptr("pay_9"),
	}.Apply(b)

	if b.Status != StatusConfirmed || b.PaymentStatus != PaymentCompleted || b.TransactionID != "pay_9" {
		t.Errorf("Apply() left booking as %+v", b)
	}
	if b.PaidAmount != 100 {
		t.Errorf("nil patch field overwrote PaidAmount: got %d", b.PaidAmount)
	}
}

func TestRequester_CanManage(t *testing.T) {
	owner := Requester{ID: "u1", Role: RoleGuest}
	other := Requester{ID: "u2", Role: RoleGuest}
	admin := Requester{ID: "a1", Role: RoleAdmin}
	anon := Requester{}

	if !owner.CanManage("u1") {
		t.Error("owner should manage own booking")
	}
	if other.CanManage("u1") {
		t.Error("non-owner should not manage booking")
	}
	if !admin.CanManage("u1") {
		t.Error("admin should manage any booking")
	}
	if anon.CanManage("") {
		t.Error("anonymous requester should not match an empty owner")
	}
}

func TestPaymentEntity_BookingIDNote(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  string
	}{
		{"object", `{"booking_id":"abc"}`, "abc"},
		{"empty array", `[]`, ""},
		{"missing", ``, ""},
		{"non-string", `{"booking_id":12}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaymentEntity{Notes: []byte(tt.notes)}
			if got := p.BookingIDNote(); got != tt.want {
				t.Errorf("BookingIDNote() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardKey_StableForSameAttempt(t *testing.T) {
	start := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	iv := Interval{Start: start, End: start.Add(48 * time.Hour)}
	same := Interval{Start: start.In(time.FixedZone("IST", 19800)), End: start.Add(48 * time.Hour)}

	if GuardKey("r1", iv) != GuardKey("r1", same) {
		t.Error("guard key must not depend on the interval's location")
	}
	if GuardKey("r1", iv) == GuardKey("r2", iv) {
		t.Error("guard key must differ per resource")
	}
}
