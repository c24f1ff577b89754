package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"koubyte-be/internal/catalog"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/utils"

	"go.uber.org/zap"
)

type CatalogLookup interface {
	Get(ctx context.Context, id uint, includeInactive bool) (*catalog.Item, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, title, body string)
}

type Service interface {
	Book(ctx context.Context, userID uint, input BookInput) (*Appointment, error)
	Availability(ctx context.Context, date string) (*Availability, error)
	ListMine(ctx context.Context, userID uint) ([]Appointment, error)
	ListAll(ctx context.Context, status string) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id uint, to Status, requester utils.Requester) (*Appointment, error)
}

type service struct {
	repo     Repository
	catalog  CatalogLookup
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, catalog CatalogLookup, notifier Notifier) Service {
	return &service{repo: repo, catalog: catalog, notifier: notifier, now: time.Now}
}

func (s *service) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if d.Before(today) {
		return time.Time{}, ErrDateInPast
	}
	return d, nil
}

// started reports whether slot on day d has begun. Slots are local "HH:MM".
func (s *service) started(d time.Time, slot string) bool {
	t, err := time.ParseInLocation("15:04", slot, time.Local)
	if err != nil {
		return false
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
	return !start.After(s.now())
}

func (s *service) Book(ctx context.Context, userID uint, input BookInput) (*Appointment, error) {
	log := logger.Scoped(ctx, "service", "Book",
		zap.Uint("user_id", userID),
		zap.String("date", input.Date),
		zap.String("slot", input.TimeSlot),
	)

	d, err := s.parseDate(input.Date)
	if err != nil {
		return nil, err
	}
	if !ValidSlot(input.TimeSlot) {
		return nil, ErrInvalidSlot
	}
	if s.started(d, input.TimeSlot) {
		return nil, ErrSlotInPast
	}

	a := &Appointment{
		UserID:      userID,
		Date:        d.Format(DateLayout),
		TimeSlot:    input.TimeSlot,
		Description: strings.TrimSpace(input.Description),
		Status:      StatusPending,
	}
	if input.ServiceID != nil {
		it, err := s.catalog.Get(ctx, *input.ServiceID, false)
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, ErrServiceNotFound
		}
		if err != nil {
			return nil, err
		}
		a.ServiceID = &it.ID
		a.ServiceName = it.Name
	}

	// The partial unique index is the real guard; this only gives a clean error.
	taken, err := s.repo.TakenSlots(ctx, a.Date)
	if err != nil {
		return nil, err
	}
	for _, slot := range taken {
		if slot == a.TimeSlot {
			return nil, ErrSlotTaken
		}
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if !errors.Is(err, ErrSlotTaken) {
			log.Error("failed to book appointment", zap.Error(err))
		}
		return nil, err
	}

	s.notify(ctx, a, "Appointment requested", "We received your appointment request for "+a.Date+" at "+a.TimeSlot+".")
	log.Info("appointment booked", zap.Uint("appointment_id", a.ID))
	return a, nil
}

func (s *service) Availability(ctx context.Context, date string) (*Availability, error) {
	d, err := s.parseDate(date)
	if err != nil {
		return nil, err
	}
	day := d.Format(DateLayout)
	taken, err := s.repo.TakenSlots(ctx, day)
	if err != nil {
		return nil, err
	}

	busy := make(map[string]bool, len(taken))
	for _, t := range taken {
		busy[t] = true
	}
	out := &Availability{Date: day, Free: []string{}, Taken: taken}
	for _, slot := range Slots {
		if !busy[slot] && !s.started(d, slot) {
			out.Free = append(out.Free, slot)
		}
	}
	return out, nil
}

func (s *service) ListMine(ctx context.Context, userID uint) ([]Appointment, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) ListAll(ctx context.Context, status string) ([]Appointment, error) {
	if status != "" && !Status(status).Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, status)
}

// UpdateStatus lets admins move an appointment along its flow. Owners may
// only cancel their own appointment while it is still open.
func (s *service) UpdateStatus(ctx context.Context, id uint, to Status, requester utils.Requester) (*Appointment, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin() {
		if a.UserID != requester.UserID || to != StatusCancelled {
			return nil, ErrForbidden
		}
	}
	if !CanTransition(a.Status, to) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateStatus(ctx, id, a.Status, to); err != nil {
		return nil, err
	}
	a.Status = to

	if requester.IsAdmin() {
		s.notify(ctx, a, "Appointment "+string(to), "Your appointment on "+a.Date+" at "+a.TimeSlot+" is "+string(to)+".")
	}
	logger.Scoped(ctx, "service", "UpdateStatus").Info("appointment status changed",
		zap.Uint("appointment_id", id),
		zap.String("status", string(to)),
	)
	return a, nil
}

func (s *service) notify(ctx context.Context, a *Appointment, title, body string) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, a.UserID, "appointment", title, body)
	}
}
