// Package notify fans reservation and fleet events out to interested parties:
// websocket clients, a NATS subject and the e-mail inbox of the pilot.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/hhsantos/flight-calendar/internal/models"
)

// EventType names a committed change
type EventType string

const (
	EventReservationCreated    EventType = "reservation_created"
	EventReservationUpdated    EventType = "reservation_updated"
	EventReservationDeleted    EventType = "reservation_deleted"
	EventAircraftStatusChanged EventType = "aircraft_status_changed"
)

// Event describes a change that has already been persisted
type Event struct {
	Type        EventType           `json:"type"`
	AircraftID  string              `json:"avionId,omitempty"`
	ActorID     string              `json:"actorId,omitempty"`
	Reservation *models.Reservation `json:"reserva,omitempty"`
	Aircraft    *models.Aircraft    `json:"avion,omitempty"`
	OccurredAt  time.Time           `json:"occurredAt"`
}

// Publisher delivers events to one destination
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes every event to each of its publishers. All publishers are
// tried; their errors are joined.
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

// Publish implements Publisher
func (Discard) Publish(context.Context, Event) error { return nil }
