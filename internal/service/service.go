package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hhsantos/flight-calendar/internal/database"
	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/hhsantos/flight-calendar/internal/notify"
)

// ErrValidation classifies errors caused by an invalid request
var ErrValidation = errors.New("validation failed")

// ValidationError carries a message that is safe to show to the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrValidation) hold
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Message: msg} }

// BookingService defines the reservation and fleet operations
type BookingService interface {
	ListAircraft(ctx context.Context, status models.AircraftStatus) ([]models.Aircraft, error)
	GetAircraft(ctx context.Context, id string) (*models.Aircraft, error)
	SetAircraftStatus(ctx context.Context, id string, status models.AircraftStatus) (*models.Aircraft, error)
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	CreateReservation(ctx context.Context, userID string, req *models.CreateReservationRequest) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, req *models.UpdateReservationRequest) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// bookingServiceImpl implements BookingService
type bookingServiceImpl struct {
	repo      *database.Repository
	publisher notify.Publisher
	now       func() time.Time
}

// NewBookingService creates a new BookingService. A nil publisher discards events.
func NewBookingService(repo *database.Repository, publisher notify.Publisher) BookingService {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	return &bookingServiceImpl{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *bookingServiceImpl) ListAircraft(ctx context.Context, status models.AircraftStatus) ([]models.Aircraft, error) {
	status = status.Canonical()
	if status != "" && !status.Valid() {
		return nil, invalid("Estado de avión no válido")
	}
	fleet, err := s.repo.ListAircraft(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return fleet, nil
	}
	out := make([]models.Aircraft, 0, len(fleet))
	for _, a := range fleet {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *bookingServiceImpl) GetAircraft(ctx context.Context, id string) (*models.Aircraft, error) {
	return s.repo.GetAircraftByID(ctx, id)
}

func (s *bookingServiceImpl) SetAircraftStatus(ctx context.Context, id string, status models.AircraftStatus) (*models.Aircraft, error) {
	status = status.Canonical()
	if !status.Valid() {
		return nil, invalid("Estado de avión no válido")
	}
	a, err := s.repo.UpdateAircraftStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	slog.Info("aircraft_event", "event", "aircraft_status_changed", "aircraft_id", a.ID, "status", a.Status)
	s.publish(ctx, notify.Event{
		Type:       notify.EventAircraftStatusChanged,
		AircraftID: a.ID,
		Aircraft:   a,
	})
	return a, nil
}

func (s *bookingServiceImpl) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	return s.repo.ListReservations(ctx, filter)
}

func (s *bookingServiceImpl) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	if id == "" {
		return nil, invalid("ID de reserva requerido")
	}
	return s.repo.GetReservationByID(ctx, id)
}

// CreateReservation books an aircraft for userID. The new pending reservation
// and the aircraft switching to reserved are committed together.
func (s *bookingServiceImpl) CreateReservation(ctx context.Context, userID string, req *models.CreateReservationRequest) (*models.Reservation, error) {
	if req == nil || req.AircraftID == "" || req.Date == "" || req.StartTime == "" || req.EndTime == "" {
		return nil, invalid("Faltan datos requeridos")
	}

	var (
		created  models.Reservation
		aircraft models.Aircraft
	)
	err := s.repo.Apply(ctx, func(tx *database.Tx) error {
		if tx.Aircraft(req.AircraftID) == nil {
			return fmt.Errorf("aircraft %s: %w", req.AircraftID, database.ErrNotFound)
		}
		created = tx.AddReservation(models.Reservation{
			UserID:     userID,
			AircraftID: req.AircraftID,
			Date:       req.Date,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Status:     models.ReservationStatusPending,
			Notes:      req.Notes,
		})
		a, err := tx.SetAircraftStatus(req.AircraftID, models.AircraftStatusReserved)
		if err != nil {
			return err
		}
		aircraft = *a
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("reservation_event", "event", "reservation_created", "reservation_id", created.ID, "aircraft_id", created.AircraftID, "user_id", userID, "date", created.Date)
	s.publish(ctx, notify.Event{
		Type:        notify.EventReservationCreated,
		AircraftID:  created.AircraftID,
		ActorID:     userID,
		Reservation: &created,
		Aircraft:    &aircraft,
	})
	return &created, nil
}

func (s *bookingServiceImpl) UpdateReservation(ctx context.Context, req *models.UpdateReservationRequest) (*models.Reservation, error) {
	if req == nil || req.ID == "" {
		return nil, invalid("ID de reserva requerido")
	}
	if req.Status != nil {
		st := req.Status.Canonical()
		req.Status = &st
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, invalid("Estado de reserva no válido")
	}

	updated, err := s.repo.UpdateReservation(ctx, req)
	if err != nil {
		return nil, err
	}

	slog.Info("reservation_event", "event", "reservation_updated", "reservation_id", updated.ID, "status", updated.Status)
	s.publish(ctx, notify.Event{
		Type:        notify.EventReservationUpdated,
		AircraftID:  updated.AircraftID,
		Reservation: updated,
	})
	return updated, nil
}

func (s *bookingServiceImpl) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return invalid("ID de reserva requerido")
	}

	var removed models.Reservation
	err := s.repo.Apply(ctx, func(tx *database.Tx) error {
		r := tx.Reservation(id)
		if r == nil {
			return database.ErrNotFound
		}
		removed = *r
		tx.DeleteReservation(id)
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("reservation_event", "event", "reservation_deleted", "reservation_id", id, "aircraft_id", removed.AircraftID)
	s.publish(ctx, notify.Event{
		Type:        notify.EventReservationDeleted,
		AircraftID:  removed.AircraftID,
		Reservation: &removed,
	})
	return nil
}

// publish never fails the caller: the change is already committed
func (s *bookingServiceImpl) publish(ctx context.Context, ev notify.Event) {
	ev.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("notify_event", "event", "publish_failed", "type", ev.Type, "error", err)
	}
}
