package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingserrors "maharaja/internal/bookings/errors"
	"maharaja/internal/bookings/repository"
	"maharaja/internal/bookings/validator"
	"maharaja/internal/events"
	"maharaja/pkg/config"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/model"
	"maharaja/pkg/sanitizer"
)

const (
	maxNumberAttempts  = 3
	maxPaymentAttempts = 3
)

type BookingService interface {
	Create(ctx context.Context, requester model.Requester, req *model.BookingRequest) (*model.BookingCreated, error)
	GetByID(ctx context.Context, requester model.Requester, id string) (*model.Booking, error)
	List(ctx context.Context, requester model.Requester, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	ListMine(ctx context.Context, requester model.Requester, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, requester model.Requester, id string, reason string) (*model.Booking, error)
	SetStatus(ctx context.Context, requester model.Requester, id string, status model.BookingStatus) (*model.Booking, error)
	RecordPayment(ctx context.Context, requester model.Requester, id string, payment *model.PaymentRecord) (*model.Booking, error)
	ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// ResourceCatalog resolves resources for booking. Errors are already AppErrors.
type ResourceCatalog interface {
	GetResource(ctx context.Context, id string) (*model.Resource, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	catalog   ResourceCatalog
	checker   *ConflictChecker
	guard     *Guard
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	catalog ResourceCatalog,
	checker *ConflictChecker,
	guard *Guard,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		catalog:   catalog,
		checker:   checker,
		guard:     guard,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, requester model.Requester, req *model.BookingRequest) (*model.BookingCreated, error) {
	if requester.Anonymous() {
		return nil, apperrors.Unauthorized("Authentication is required to create a booking")
	}
	req.SpecialRequests = sanitizer.SanitizeFreeText(req.SpecialRequests)
	if err := s.validate(req); err != nil {
		return nil, err
	}

	resource, err := s.catalog.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, err
	}
	if !resource.Bookable() {
		status := string(resource.Status)
		if !resource.IsActive {
			status = "inactive"
		}
		s.cfg.Log.Warn("Booking rejected for unavailable resource", "resource_id", resource.ID, "status", status)
		return nil, apperrors.ResourceUnavailable(string(resource.Kind), resource.ID, status)
	}

	interval, err := s.resolveInterval(resource, req)
	if err != nil {
		return nil, err
	}
	if err := s.checker.CheckInterval(interval, false); err != nil {
		return nil, err
	}
	if req.NumberOfGuests > resource.Capacity {
		return nil, apperrors.Validation("Number of guests exceeds capacity", map[string]any{
			"number_of_guests": req.NumberOfGuests,
			"capacity":         resource.Capacity,
		})
	}
	if req.Rate != 0 && req.Rate != resource.Rate {
		return nil, apperrors.Validation("Rate does not match the current rate", map[string]any{
			"rate":         req.Rate,
			"current_rate": resource.Rate,
		})
	}

	bookingType := req.BookingType
	if bookingType == "" {
		bookingType = model.BookingFull
	}
	price := Quote(resource.Kind, interval, resource.Rate, bookingType, s.cfg.PartialPaymentPercent)
	price.Currency = s.cfg.PaymentCurrency

	done, err := s.guard.Acquire(ctx, resource.ID, interval)
	if err != nil {
		return nil, err
	}
	created := false
	defer func() { done(created) }()

	conflict, err := s.checker.HasConflict(ctx, resource.ID, interval, AllowPast())
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, overlapConflict(resource.ID, interval)
	}

	booking := &model.Booking{
		Kind:            resource.Kind,
		ResourceID:      resource.ID,
		OwnerID:         requester.ID,
		CheckIn:         interval.Start,
		CheckOut:        interval.End,
		NumberOfGuests:  req.NumberOfGuests,
		Rate:            resource.Rate,
		Nights:          price.Nights,
		TotalPrice:      price.TotalPrice,
		PaidAmount:      price.PayableNow,
		BookingType:     bookingType,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentPending,
		SpecialRequests: req.SpecialRequests,
	}
	if resource.Kind.SlotBased() {
		booking.Date = req.Date
		booking.TimeSlot = req.TimeSlot
	}

	if err := s.insert(ctx, booking); err != nil {
		return nil, err
	}
	created = true

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"booking_number", booking.BookingNumber,
		"resource_id", booking.ResourceID,
		"check_in", booking.CheckIn,
		"check_out", booking.CheckOut,
		"total_price", booking.TotalPrice,
	)
	s.publisher.PublishBooking(ctx, events.BookingCreated, booking)

	return &model.BookingCreated{
		ID:            booking.ID,
		BookingNumber: booking.BookingNumber,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		CheckIn:       booking.CheckIn,
		CheckOut:      booking.CheckOut,
		Price:         price,
	}, nil
}

func (s *bookingService) insert(ctx context.Context, b *model.Booking) error {
	prefix := b.Kind.BookingPrefix()
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		b.BookingNumber = BookingNumber(prefix, s.now())
		err := s.repo.Create(ctx, b)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, bookingserrors.ErrDuplicateNumber):
			s.cfg.Log.Warn("Booking number collision, regenerating", "booking_number", b.BookingNumber, "attempt", attempt)
		case errors.Is(err, bookingserrors.ErrOverlap):
			s.cfg.Log.Info("Booking rejected by store overlap check", "resource_id", b.ResourceID)
			return overlapConflict(b.ResourceID, b.Interval())
		default:
			s.cfg.Log.Error("Failed to create booking", "resource_id", b.ResourceID, "error", err)
			return apperrors.Internal("Failed to create booking", err)
		}
	}
	s.cfg.Log.Error("Failed to allocate a unique booking number", "resource_id", b.ResourceID, "attempts", maxNumberAttempts)
	return apperrors.Internal("Failed to create booking", bookingserrors.ErrDuplicateNumber)
}

func (s *bookingService) resolveInterval(resource *model.Resource, req *model.BookingRequest) (model.Interval, error) {
	if resource.Kind.SlotBased() {
		if req.Date == "" || req.TimeSlot == "" {
			return model.Interval{}, apperrors.Validation("Table bookings require date and time_slot", map[string]any{
				"kind": resource.Kind,
			})
		}
		interval, err := model.SlotInterval(req.Date, req.TimeSlot, s.cfg.Location)
		if err != nil {
			return model.Interval{}, apperrors.Validation("Invalid date or time slot", map[string]any{"error": err.Error()})
		}
		return interval, nil
	}

	if req.CheckIn == nil || req.CheckOut == nil {
		return model.Interval{}, apperrors.Validation(fmt.Sprintf("%s bookings require check_in and check_out", resource.Kind), map[string]any{
			"kind": resource.Kind,
		})
	}
	return model.Interval{Start: req.CheckIn.UTC(), End: req.CheckOut.UTC()}, nil
}

func (s *bookingService) GetByID(ctx context.Context, requester model.Requester, id string) (*model.Booking, error) {
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(booking.OwnerID) {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, requester model.Requester, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !requester.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only administrators can list all bookings")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperrors.InvalidInput("Unknown booking status: " + string(filter.Status))
	}
	return s.list(ctx, filter, limit, offset)
}

func (s *bookingService) ListMine(ctx context.Context, requester model.Requester, limit int, offset int64) ([]*model.Booking, int64, error) {
	if requester.Anonymous() {
		return nil, 0, apperrors.Unauthorized("Authentication is required")
	}
	return s.list(ctx, model.BookingFilter{OwnerID: requester.ID}, limit, offset)
}

func (s *bookingService) list(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return bookings, count, nil
}

func (s *bookingService) Cancel(ctx context.Context, requester model.Requester, id string, reason string) (*model.Booking, error) {
	reason = sanitizer.SanitizeFreeText(reason)
	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.CanManage(booking.OwnerID) {
		return nil, apperrors.Forbidden("Only the booking owner or an administrator can cancel this booking")
	}
	if err := cancellable(booking); err != nil {
		return nil, err
	}

	updated, err := s.repo.ApplyTransition(ctx, id,
		model.BookingCondition{Statuses: model.BlockingStatuses},
		model.BookingPatch{
			Status:             model.Ptr(model.StatusCancelled),
			CancellationReason: model.Ptr(reason),
		},
	)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStaleState) {
			// Lost a race; report against whatever state won.
			current, findErr := s.find(ctx, id)
			if findErr != nil {
				return nil, findErr
			}
			if err := cancellable(current); err != nil {
				return nil, err
			}
		}
		return nil, s.translateWriteErr(err, id, "cancel")
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "by", requester.ID, "previous_status", booking.Status)
	s.publisher.PublishBooking(ctx, events.BookingCancelled, updated)
	return updated, nil
}

func cancellable(b *model.Booking) error {
	switch {
	case b.Status == model.StatusCancelled:
		return apperrors.AlreadyTerminal("Booking", string(b.Status))
	case b.Status.IsTerminal():
		return apperrors.InvalidTransition(string(b.Status), string(model.StatusCancelled))
	}
	return nil
}

func (s *bookingService) SetStatus(ctx context.Context, requester model.Requester, id string, status model.BookingStatus) (*model.Booking, error) {
	if !requester.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can change booking status")
	}
	if !status.Valid() {
		return nil, apperrors.Validation("Unknown booking status", map[string]any{"status": status})
	}

	booking, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	// Terminal states accept nothing, not even themselves.
	if booking.Status == status && !booking.Status.IsTerminal() {
		return booking, nil
	}
	if !booking.Status.CanTransitionTo(status) {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(status))
	}

	updated, err := s.repo.ApplyTransition(ctx, id,
		model.BookingCondition{Statuses: []model.BookingStatus{booking.Status}},
		model.BookingPatch{Status: model.Ptr(status)},
	)
	if err != nil {
		return nil, s.translateWriteErr(err, id, "set status")
	}

	s.cfg.Log.Info("Booking status updated successfully", "id", id, "from", booking.Status, "to", status)
	s.publisher.PublishBooking(ctx, events.BookingStatusChanged, updated)
	return updated, nil
}

func (s *bookingService) RecordPayment(ctx context.Context, requester model.Requester, id string, payment *model.PaymentRecord) (*model.Booking, error) {
	if err := s.validate(payment); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxPaymentAttempts; attempt++ {
		booking, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if !booking.OwnedBy(requester.ID) {
			return nil, apperrors.Forbidden("Only the booking owner can record a payment")
		}
		if booking.Status.IsTerminal() {
			return nil, apperrors.AlreadyTerminal("Booking", string(booking.Status))
		}
		if booking.PaymentStatus.Settled() {
			return nil, apperrors.Precondition("Booking payment is already settled", map[string]any{
				"payment_status": booking.PaymentStatus,
			})
		}

		paid := booking.PaidAmount + payment.Amount
		patch := model.BookingPatch{
			PaidAmount:    model.Ptr(paid),
			PaymentStatus: model.Ptr(model.PaymentPartial),
			TransactionID: model.Ptr(payment.TransactionID),
		}
		if paid >= booking.TotalPrice {
			patch.PaymentStatus = model.Ptr(model.PaymentCompleted)
			patch.Status = model.Ptr(model.StatusConfirmed)
		}

		updated, err := s.repo.ApplyTransition(ctx, id,
			model.BookingCondition{
				Statuses:        model.BlockingStatuses,
				PaymentStatuses: model.Unsettled,
				PaidAmount:      model.Ptr(booking.PaidAmount),
			},
			patch,
		)
		if errors.Is(err, bookingserrors.ErrStaleState) {
			s.cfg.Log.Warn("Concurrent payment update, retrying", "id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, s.translateWriteErr(err, id, "record payment")
		}

		s.cfg.Log.Info("Payment recorded successfully",
			"id", id,
			"amount", payment.Amount,
			"paid_amount", updated.PaidAmount,
			"payment_status", updated.PaymentStatus,
		)
		s.publisher.PublishBooking(ctx, events.BookingPaymentRecorded, updated)
		if updated.Status == model.StatusConfirmed && booking.Status != model.StatusConfirmed {
			s.publisher.PublishBooking(ctx, events.BookingConfirmed, updated)
		}
		return updated, nil
	}

	return nil, apperrors.Conflict("Booking was updated concurrently, please retry")
}

// ExpirePending cancels bookings still pending/pending after olderThan and
// reports how many were cancelled.
func (s *bookingService) ExpirePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	stale, err := s.repo.FindStalePending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, apperrors.Internal("Failed to find stale bookings", err)
	}

	reason := fmt.Sprintf("expired: no payment within %s", olderThan)
	expired := 0
	for _, b := range stale {
		updated, err := s.repo.ApplyTransition(ctx, b.ID,
			model.BookingCondition{
				Statuses:        []model.BookingStatus{model.StatusPending},
				PaymentStatuses: []model.PaymentStatus{model.PaymentPending},
			},
			model.BookingPatch{
				Status:             model.Ptr(model.StatusCancelled),
				CancellationReason: model.Ptr(reason),
			},
		)
		if errors.Is(err, bookingserrors.ErrStaleState) {
			continue
		}
		if err != nil {
			s.cfg.Log.Error("Failed to expire pending booking", "id", b.ID, "error", err)
			continue
		}
		expired++
		s.publisher.PublishBooking(ctx, events.BookingCancelled, updated)
	}

	if expired > 0 {
		s.cfg.Log.Info("Expired pending bookings", "count", expired, "older_than", olderThan)
	}
	return expired, nil
}

// --- Helpers ---

func (s *bookingService) find(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) translateWriteErr(err error, id, operation string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	case errors.Is(err, bookingserrors.ErrStaleState):
		return apperrors.Conflict("Booking was updated concurrently, please retry")
	}
	s.cfg.Log.Error("Failed to update booking", "id", id, "operation", operation, "error", err)
	return apperrors.Internal(fmt.Sprintf("Failed to %s", operation), err)
}

func (s *bookingService) validate(v any) error {
	var err error
	if req, ok := v.(*model.BookingRequest); ok {
		err = s.validator.ValidateRequest(req)
	} else {
		err = s.validator.Validate(v)
	}
	if err == nil {
		return nil
	}

	s.cfg.Log.Warn("Booking validation failed", "error", err)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Booking validation failed", verrs.Details())
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}

func overlapConflict(resourceID string, iv model.Interval) error {
	return apperrors.Conflict("The resource is already booked for the requested time").WithDetails(map[string]any{
		"resource_id": resourceID,
		"check_in":    iv.Start.Format(time.RFC3339),
		"check_out":   iv.End.Format(time.RFC3339),
	})
}
