package models

import "strings"

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
)

var legacyReservationStatus = map[ReservationStatus]ReservationStatus{
	"pendiente":  ReservationStatusPending,
	"confirmada": ReservationStatusConfirmed,
	"cancelada":  ReservationStatusCancelled,
	"completada": ReservationStatusCompleted,
}

// Canonical maps the Spanish values of older documents to the current ones
func (s ReservationStatus) Canonical() ReservationStatus {
	if c, ok := legacyReservationStatus[s]; ok {
		return c
	}
	return s
}

// Valid reports whether s is one of the known reservation statuses
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed,
		ReservationStatusCancelled, ReservationStatusCompleted:
		return true
	}
	return false
}

// Reservation represents a booking of an aircraft by a user
type Reservation struct {
	ID         string            `json:"id"`
	UserID     string            `json:"usuarioId"`
	AircraftID string            `json:"avionId"`
	Date       string            `json:"fecha"` // ISO date, may carry a time part
	StartTime  string            `json:"horaInicio"`
	EndTime    string            `json:"horaFin"`
	Status     ReservationStatus `json:"estado"`
	Notes      string            `json:"notas,omitempty"`
}

// DateOnly returns the calendar date part of an ISO date or timestamp
func DateOnly(s string) string {
	date, _, _ := strings.Cut(s, "T")
	return date
}

// OnDate reports whether the reservation falls on the calendar date of day
func (r *Reservation) OnDate(day string) bool {
	return DateOnly(r.Date) == DateOnly(day)
}

// CreateReservationRequest represents a request to book an aircraft
type CreateReservationRequest struct {
	AircraftID string `json:"avionId"`
	Date       string `json:"fecha"`
	StartTime  string `json:"horaInicio"`
	EndTime    string `json:"horaFin"`
	Notes      string `json:"notas,omitempty"`
}

// UpdateReservationRequest represents a partial update of a reservation.
// Nil fields are left untouched.
type UpdateReservationRequest struct {
	ID        string             `json:"id"`
	Date      *string            `json:"fecha,omitempty"`
	StartTime *string            `json:"horaInicio,omitempty"`
	EndTime   *string            `json:"horaFin,omitempty"`
	Status    *ReservationStatus `json:"estado,omitempty"`
	Notes     *string            `json:"notas,omitempty"`
}

// Apply merges the provided fields over r
func (u *UpdateReservationRequest) Apply(r *Reservation) {
	if u.Date != nil {
		r.Date = *u.Date
	}
	if u.StartTime != nil {
		r.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		r.EndTime = *u.EndTime
	}
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
}

// ReservationFilter narrows a reservation listing. Empty fields match everything.
type ReservationFilter struct {
	Date       string
	UserID     string
	AircraftID string
}

// Match reports whether r passes every non-empty criterion of f
func (f ReservationFilter) Match(r *Reservation) bool {
	if f.Date != "" && !r.OnDate(f.Date) {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.AircraftID != "" && r.AircraftID != f.AircraftID {
		return false
	}
	return true
}
