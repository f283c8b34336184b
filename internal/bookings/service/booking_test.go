package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"maharaja/internal/bookings/repository"
	"maharaja/internal/bookings/validator"
	"maharaja/internal/events"
	"maharaja/pkg/config"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/logger"
	"maharaja/pkg/model"
)

// Mock catalog for testing
type mockCatalog struct {
	getResourceFunc func(ctx context.Context, id string) (*model.Resource, error)
}

func (m *mockCatalog) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	if m.getResourceFunc != nil {
		return m.getResourceFunc(ctx, id)
	}
	return nil, apperrors.NotFoundWithID("Resource", id)
}

const (
	roomID  = "665f1f77bcf86cd799439011"
	tableID = "665f1f77bcf86cd799439012"
	guestID = "user-guest"
)

var (
	guest = model.Requester{ID: guestID, Role: model.RoleGuest}
	other = model.Requester{ID: "user-other", Role: model.RoleGuest}
	admin = model.Requester{ID: "user-admin", Role: model.RoleAdmin}
)

type fixture struct {
	service   *bookingService
	repo      *repository.MemoryBookingRepository
	locks     *repository.MemoryLockStore
	recorder  *events.Recorder
	resources map[string]*model.Resource
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	log := logger.New(logger.Config{
		Level:     "info",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	cfg := &config.Config{
		Log:                   log,
		Location:              time.UTC,
		GuardWindow:           30 * time.Second,
		PartialPaymentPercent: 10,
		PaymentCurrency:       "INR",
	}

	f := &fixture{
		repo:     repository.NewMemoryBookingRepository(),
		locks:    repository.NewMemoryLockStore(),
		recorder: events.NewRecorder(),
		resources: map[string]*model.Resource{
			roomID: {
				ID: roomID, Kind: model.KindRoom, Name: "Darbar Suite",
				Capacity: 3, Rate: 1000, Status: model.ResourceAvailable, IsActive: true,
			},
			tableID: {
				ID: tableID, Kind: model.KindTable, Name: "Terrace 4",
				Capacity: 4, Rate: 500, Status: model.ResourceAvailable, IsActive: true,
			},
		},
	}

	catalog := &mockCatalog{
		getResourceFunc: func(ctx context.Context, id string) (*model.Resource, error) {
			if r, ok := f.resources[id]; ok {
				c := *r
				return &c, nil
			}
			return nil, apperrors.NotFoundWithID("Resource", id)
		},
	}

	checker := NewConflictChecker(f.repo)
	checker.now = func() time.Time { return now }

	f.service = &bookingService{
		repo:      f.repo,
		catalog:   catalog,
		checker:   checker,
		guard:     NewGuard(f.repo, f.locks, cfg.GuardWindow, log),
		validator: validator.NewBookingValidator(log),
		publisher: f.recorder,
		cfg:       cfg,
		now:       func() time.Time { return now },
	}
	return f
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func roomRequest(in, out *time.Time) *model.BookingRequest {
	return &model.BookingRequest{
		ResourceID:     roomID,
		CheckIn:        in,
		CheckOut:       out,
		NumberOfGuests: 2,
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

var scenarioNow = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestCreate_AdjacentAndOverlapping(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	x, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("create X: %v", err)
	}
	if _, err := f.service.SetStatus(ctx, admin, x.ID, model.StatusConfirmed); err != nil {
		t.Fatalf("confirm X: %v", err)
	}

	_, err = f.service.Create(ctx, other, roomRequest(day(2024, 6, 2), day(2024, 6, 4)))
	assertCode(t, err, apperrors.CodeConflict)

	adjacent, err := f.service.Create(ctx, other, roomRequest(day(2024, 6, 3), day(2024, 6, 5)))
	if err != nil {
		t.Fatalf("adjacent booking rejected: %v", err)
	}
	if adjacent.Status != model.StatusPending || adjacent.PaymentStatus != model.PaymentPending {
		t.Errorf("expected pending/pending, got %s/%s", adjacent.Status, adjacent.PaymentStatus)
	}
}

func TestCreate_PartialThenRecordPayment(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	req := roomRequest(day(2024, 6, 1), day(2024, 6, 3))
	req.BookingType = model.BookingPartial
	req.Rate = 1000

	created, err := f.service.Create(ctx, guest, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Price.TotalPrice != 2000 || created.Price.Nights != 2 {
		t.Errorf("expected 2 nights totalling 2000, got %+v", created.Price)
	}

	booking, _ := f.repo.FindByID(ctx, created.ID)
	if booking.PaidAmount != 200 {
		t.Errorf("expected paidAmount 200 at creation, got %d", booking.PaidAmount)
	}
	if booking.PaymentStatus != model.PaymentPending {
		t.Errorf("expected payment pending, got %s", booking.PaymentStatus)
	}

	updated, err := f.service.RecordPayment(ctx, guest, created.ID, &model.PaymentRecord{Amount: 1800, TransactionID: "tx1"})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if updated.PaidAmount != 2000 || updated.PaymentStatus != model.PaymentCompleted || updated.Status != model.StatusConfirmed {
		t.Errorf("expected 2000 completed/confirmed, got %d %s/%s", updated.PaidAmount, updated.PaymentStatus, updated.Status)
	}
	if updated.TransactionID != "tx1" {
		t.Errorf("expected transaction id tx1, got %q", updated.TransactionID)
	}

	types := f.recorder.Types()
	want := []string{events.BookingCreated, events.BookingPaymentRecorded, events.BookingConfirmed}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestRecordPayment_BelowTotalStaysPartial(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	req := roomRequest(day(2024, 6, 1), day(2024, 6, 3))
	req.BookingType = model.BookingPartial
	created, err := f.service.Create(ctx, guest, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.service.RecordPayment(ctx, guest, created.ID, &model.PaymentRecord{Amount: 500, TransactionID: "tx1"})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if updated.PaidAmount != 700 || updated.PaymentStatus != model.PaymentPartial || updated.Status != model.StatusPending {
		t.Errorf("expected 700 partial/pending, got %d %s/%s", updated.PaidAmount, updated.PaymentStatus, updated.Status)
	}
}

func TestRecordPayment_Rejections(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	created, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 2)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	payment := &model.PaymentRecord{Amount: 100, TransactionID: "tx1"}

	_, err = f.service.RecordPayment(ctx, other, created.ID, payment)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.service.RecordPayment(ctx, admin, created.ID, payment)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.service.RecordPayment(ctx, guest, "665f1f77bcf86cd799439099", payment)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.service.RecordPayment(ctx, guest, created.ID, &model.PaymentRecord{Amount: 0, TransactionID: "tx1"})
	assertCode(t, err, apperrors.CodeValidation)

	if _, err := f.service.Cancel(ctx, guest, created.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = f.service.RecordPayment(ctx, guest, created.ID, payment)
	assertCode(t, err, apperrors.CodeAlreadyTerminal)
}

func TestRecordPayment_ConcurrentPaymentsAllCount(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	req := roomRequest(day(2024, 6, 1), day(2024, 6, 11))
	req.BookingType = model.BookingPartial
	created, err := f.service.Create(ctx, guest, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Deposit is 1000 of 10000; two payments of 100 must both land.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.RecordPayment(ctx, guest, created.ID, &model.PaymentRecord{Amount: 100, TransactionID: fmt.Sprintf("tx%d", i)})
		}()
	}
	wg.Wait()

	succeeded := int64(0)
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	booking, _ := f.repo.FindByID(ctx, created.ID)
	if booking.PaidAmount != 1000+100*succeeded {
		t.Errorf("lost update: paid %d after %d successful payments", booking.PaidAmount, succeeded)
	}
}

func TestCancel_Twice(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	created, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := f.service.Cancel(ctx, guest, created.ID, "change of plans")
	if err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancellationReason != "change of plans" {
		t.Errorf("expected reason to be stored, got %q", cancelled.CancellationReason)
	}

	_, err = f.service.Cancel(ctx, guest, created.ID, "")
	assertCode(t, err, apperrors.CodeAlreadyTerminal)
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	created, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.service.Cancel(ctx, other, created.ID, "")
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.service.Cancel(ctx, model.Requester{}, created.ID, "")
	assertCode(t, err, apperrors.CodeForbidden)

	if _, err := f.service.Cancel(ctx, admin, created.ID, ""); err != nil {
		t.Errorf("admin cancel: %v", err)
	}
}

func TestCancel_FreesInterval(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	first, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.Cancel(ctx, guest, first.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.service.Create(ctx, other, roomRequest(day(2024, 6, 1), day(2024, 6, 3))); err != nil {
		t.Errorf("cancelled booking still blocks: %v", err)
	}
}

func TestCancel_CompletedIsInvalidTransition(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	b := &model.Booking{
		ResourceID: roomID, OwnerID: guestID,
		CheckIn: *day(2024, 6, 1), CheckOut: *day(2024, 6, 2),
		Status: model.StatusCompleted, PaymentStatus: model.PaymentCompleted,
	}
	f.repo.Put(b)

	_, err := f.service.Cancel(ctx, guest, b.ID, "")
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		name      string
		from      model.BookingStatus
		to        model.BookingStatus
		requester model.Requester
		wantCode  string
	}{
		{name: "pending to confirmed", from: model.StatusPending, to: model.StatusConfirmed, requester: admin},
		{name: "confirmed to completed", from: model.StatusConfirmed, to: model.StatusCompleted, requester: admin},
		{name: "confirmed to no-show", from: model.StatusConfirmed, to: model.StatusNoShow, requester: admin},
		{name: "same status is a no-op", from: model.StatusConfirmed, to: model.StatusConfirmed, requester: admin},
		{name: "pending to completed", from: model.StatusPending, to: model.StatusCompleted, requester: admin, wantCode: apperrors.CodeInvalidTransition},
		{name: "completed to pending", from: model.StatusCompleted, to: model.StatusPending, requester: admin, wantCode: apperrors.CodeInvalidTransition},
		{name: "cancelled to confirmed", from: model.StatusCancelled, to: model.StatusConfirmed, requester: admin, wantCode: apperrors.CodeInvalidTransition},
		{name: "cancelled to cancelled", from: model.StatusCancelled, to: model.StatusCancelled, requester: admin, wantCode: apperrors.CodeInvalidTransition},
		{name: "completed to completed", from: model.StatusCompleted, to: model.StatusCompleted, requester: admin, wantCode: apperrors.CodeInvalidTransition},
		{name: "unknown target", from: model.StatusPending, to: "archived", requester: admin, wantCode: apperrors.CodeValidation},
		{name: "owner is not admin", from: model.StatusPending, to: model.StatusConfirmed, requester: guest, wantCode: apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, scenarioNow)
			b := &model.Booking{
				ResourceID: roomID, OwnerID: guestID,
				CheckIn: *day(2024, 6, 1), CheckOut: *day(2024, 6, 2),
				Status: tt.from, PaymentStatus: model.PaymentPending,
			}
			f.repo.Put(b)

			updated, err := f.service.SetStatus(context.Background(), tt.requester, b.ID, tt.to)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.Status != tt.to {
				t.Errorf("expected %s, got %s", tt.to, updated.Status)
			}
		})
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		requester model.Requester
		mutate    func(f *fixture, req *model.BookingRequest)
		wantCode  string
	}{
		{
			name:      "anonymous",
			requester: model.Requester{},
			wantCode:  apperrors.CodeUnauthorized,
		},
		{
			name:      "unknown resource",
			requester: guest,
			mutate:    func(_ *fixture, req *model.BookingRequest) { req.ResourceID = "665f1f77bcf86cd799439099" },
			wantCode:  apperrors.CodeNotFound,
		},
		{
			name:      "resource in maintenance",
			requester: guest,
			mutate:    func(f *fixture, _ *model.BookingRequest) { f.resources[roomID].Status = model.ResourceMaintenance },
			wantCode:  apperrors.CodeResourceUnavailable,
		},
		{
			name:      "inactive resource",
			requester: guest,
			mutate:    func(f *fixture, _ *model.BookingRequest) { f.resources[roomID].IsActive = false },
			wantCode:  apperrors.CodeResourceUnavailable,
		},
		{
			name:      "check-in in the past",
			requester: guest,
			mutate: func(_ *fixture, req *model.BookingRequest) {
				req.CheckIn = day(2024, 4, 1)
				req.CheckOut = day(2024, 4, 3)
			},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:      "reversed interval",
			requester: guest,
			mutate:    func(_ *fixture, req *model.BookingRequest) { req.CheckIn, req.CheckOut = req.CheckOut, req.CheckIn },
			wantCode:  apperrors.CodeValidation,
		},
		{
			name:      "over capacity",
			requester: guest,
			mutate:    func(_ *fixture, req *model.BookingRequest) { req.NumberOfGuests = 4 },
			wantCode:  apperrors.CodeValidation,
		},
		{
			name:      "stale rate",
			requester: guest,
			mutate:    func(_ *fixture, req *model.BookingRequest) { req.Rate = 900 },
			wantCode:  apperrors.CodeValidation,
		},
		{
			name:      "slot on a room",
			requester: guest,
			mutate: func(_ *fixture, req *model.BookingRequest) {
				req.CheckIn, req.CheckOut = nil, nil
				req.Date, req.TimeSlot = "2024-06-01", model.SlotDinner
			},
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, scenarioNow)
			req := roomRequest(day(2024, 6, 1), day(2024, 6, 3))
			if tt.mutate != nil {
				tt.mutate(f, req)
			}

			_, err := f.service.Create(context.Background(), tt.requester, req)
			assertCode(t, err, tt.wantCode)

			if n, _ := f.repo.Count(context.Background(), model.BookingFilter{}); n != 0 {
				t.Errorf("rejected request persisted %d bookings", n)
			}
		})
	}
}

func TestCreate_TableSlot(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	req := &model.BookingRequest{
		ResourceID:     tableID,
		Date:           "2024-06-01",
		TimeSlot:       model.SlotDinner,
		NumberOfGuests: 4,
	}
	created, err := f.service.Create(ctx, guest, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.Price.TotalPrice != 500 {
		t.Errorf("table bookings pay the flat rate, got %d", created.Price.TotalPrice)
	}
	wantIn := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	if !created.CheckIn.Equal(wantIn) {
		t.Errorf("expected check-in %s, got %s", wantIn, created.CheckIn)
	}
	if created.BookingNumber[:3] != "RT-" {
		t.Errorf("expected RT prefix, got %s", created.BookingNumber)
	}

	// Lunch on the same day does not collide with dinner.
	req.TimeSlot = model.SlotLunch
	if _, err := f.service.Create(ctx, other, req); err != nil {
		t.Errorf("lunch booking rejected: %v", err)
	}
}

func TestCreate_GuardRejectsImmediateDuplicate(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	if _, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3))); err != nil {
		t.Fatalf("create: %v", err)
	}
	key := model.GuardKey(roomID, model.Interval{Start: *day(2024, 6, 1), End: *day(2024, 6, 3)})
	if f.locks.Held(key) {
		t.Error("finished attempt should release the guard key")
	}

	_, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	assertCode(t, err, apperrors.CodeConflict)
}

func TestCreate_GuardKeyFreedAfterCancelAndExpiry(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()
	key := model.GuardKey(roomID, model.Interval{Start: *day(2024, 6, 1), End: *day(2024, 6, 3)})

	first, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.Cancel(ctx, guest, first.ID, "plans changed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.locks.Held(key) {
		t.Fatal("cancelled booking left the guard key held")
	}

	second, err := f.service.Create(ctx, other, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("rebooking after cancel rejected: %v", err)
	}
	if _, err := f.service.Cancel(ctx, other, second.ID, ""); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if _, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3))); err != nil {
		t.Errorf("third attempt within the window rejected: %v", err)
	}
}

func TestCreate_GuardFailsOpen(t *testing.T) {
	f := newFixture(t, scenarioNow)
	f.locks.Fail = errors.New("lock store unreachable")

	created, err := f.service.Create(context.Background(), guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("guard failure blocked booking: %v", err)
	}
	if created.ID == "" {
		t.Error("expected booking to be persisted")
	}
}

func TestCreate_FailedCreateReleasesGuard(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	f.repo.Put(&model.Booking{
		ResourceID: roomID, OwnerID: "someone",
		CheckIn: *day(2024, 6, 2), CheckOut: *day(2024, 6, 4),
		Status: model.StatusConfirmed, PaymentStatus: model.PaymentCompleted,
		CreatedAt: time.Now().Add(-time.Hour),
	})

	_, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	assertCode(t, err, apperrors.CodeConflict)

	key := model.GuardKey(roomID, model.Interval{Start: *day(2024, 6, 1), End: *day(2024, 6, 3)})
	if f.locks.Held(key) {
		t.Error("conflicting attempt should release the guard key")
	}
}

func TestCreate_ConcurrentNeverOverlaps(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	requests := make([]*model.BookingRequest, 200)
	for i := range requests {
		start := base.Add(time.Duration(rng.IntN(20*24)) * time.Hour)
		end := start.Add(time.Duration(1+rng.IntN(72)) * time.Hour)
		requests[i] = roomRequest(&start, &end)
	}

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			requester := model.Requester{ID: fmt.Sprintf("user-%d", i), Role: model.RoleGuest}
			_, err := f.service.Create(ctx, requester, req)
			if err != nil && !apperrors.HasCode(err, apperrors.CodeConflict) {
				t.Errorf("request %d: unexpected error %v", i, err)
			}
		}()
	}
	wg.Wait()

	stored, err := f.repo.FindAll(ctx, model.BookingFilter{ResourceID: roomID}, 1000, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(stored) == 0 {
		t.Fatal("expected at least one booking to succeed")
	}
	for i, a := range stored {
		for _, b := range stored[i+1:] {
			if a.Status.Blocks() && b.Status.Blocks() && a.Interval().Overlaps(b.Interval()) {
				t.Fatalf("overlapping bookings %s [%s,%s) and %s [%s,%s)",
					a.ID, a.CheckIn, a.CheckOut, b.ID, b.CheckIn, b.CheckOut)
			}
		}
	}
}

func TestGetByID_Ownership(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	created, err := f.service.Create(ctx, guest, roomRequest(day(2024, 6, 1), day(2024, 6, 3)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.service.GetByID(ctx, guest, created.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := f.service.GetByID(ctx, admin, created.ID); err != nil {
		t.Errorf("admin read: %v", err)
	}
	_, err = f.service.GetByID(ctx, other, created.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.service.GetByID(ctx, guest, "not-an-id")
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestList(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	for i := range 3 {
		in := day(2024, 6, 1+2*i)
		out := day(2024, 6, 2+2*i)
		requester := guest
		if i == 2 {
			requester = other
		}
		if _, err := f.service.Create(ctx, requester, roomRequest(in, out)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	_, _, err := f.service.List(ctx, guest, model.BookingFilter{}, 10, 0)
	assertCode(t, err, apperrors.CodeForbidden)

	all, total, err := f.service.List(ctx, admin, model.BookingFilter{}, 2, 0)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if total != 3 || len(all) != 2 {
		t.Errorf("expected 2 of 3, got %d of %d", len(all), total)
	}

	mine, total, err := f.service.ListMine(ctx, guest, 10, 0)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if total != 2 || len(mine) != 2 {
		t.Errorf("expected 2 own bookings, got %d (total %d)", len(mine), total)
	}

	_, _, err = f.service.ListMine(ctx, model.Requester{}, 10, 0)
	assertCode(t, err, apperrors.CodeUnauthorized)
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t, time.Now())
	ctx := context.Background()

	old := &model.Booking{
		ResourceID: roomID, OwnerID: guestID,
		CheckIn: time.Now().Add(48 * time.Hour), CheckOut: time.Now().Add(72 * time.Hour),
		Status: model.StatusPending, PaymentStatus: model.PaymentPending,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	paid := &model.Booking{
		ResourceID: roomID, OwnerID: guestID,
		CheckIn: time.Now().Add(96 * time.Hour), CheckOut: time.Now().Add(120 * time.Hour),
		Status: model.StatusPending, PaymentStatus: model.PaymentPartial,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := &model.Booking{
		ResourceID: roomID, OwnerID: guestID,
		CheckIn: time.Now().Add(144 * time.Hour), CheckOut: time.Now().Add(168 * time.Hour),
		Status: model.StatusPending, PaymentStatus: model.PaymentPending,
		CreatedAt: time.Now(),
	}
	f.repo.Put(old)
	f.repo.Put(paid)
	f.repo.Put(fresh)

	n, err := f.service.ExpirePending(ctx, time.Hour, 100)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired booking, got %d", n)
	}

	got, _ := f.repo.FindByID(ctx, old.ID)
	if got.Status != model.StatusCancelled {
		t.Errorf("stale booking not cancelled: %s", got.Status)
	}
	got, _ = f.repo.FindByID(ctx, paid.ID)
	if got.Status != model.StatusPending {
		t.Errorf("partially paid booking was expired")
	}
}

func TestCreate_NormalizesFreeText(t *testing.T) {
	f := newFixture(t, scenarioNow)
	ctx := context.Background()

	req := roomRequest(day(2024, 6, 1), day(2024, 6, 3))
	req.SpecialRequests = "  late\t\tcheck-in\x00 "

	created, err := f.service.Create(ctx, guest, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	booking, _ := f.repo.FindByID(ctx, created.ID)
	if booking.SpecialRequests != "late check-in" {
		t.Errorf("expected normalized special requests, got %q", booking.SpecialRequests)
	}

	cancelled, err := f.service.Cancel(ctx, guest, created.ID, "\n flight   moved \n")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancellationReason != "flight moved" {
		t.Errorf("expected normalized reason, got %q", cancelled.CancellationReason)
	}
}
