package database

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hhsantos/flight-calendar/internal/models"
)

// Repository handles all entity operations over a Store. Nothing is cached:
// every call goes back to the store.
type Repository struct {
	store Store
	newID func() string
}

// NewRepository creates a new repository
func NewRepository(store Store) *Repository {
	return &Repository{store: store, newID: uuid.NewString}
}

// Apply runs fn against the document as one atomic mutation. Either every
// change made through tx is persisted or none is.
func (r *Repository) Apply(ctx context.Context, fn func(tx *Tx) error) error {
	return r.store.Update(ctx, func(doc *models.Document) error {
		return fn(&Tx{doc: doc, newID: r.newID})
	})
}

// --- User Operations ---

// ListUsers returns all users
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Users, nil
}

// GetUserByID returns a user by ID
func (r *Repository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			return &doc.Users[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetUserByEmail returns the first user whose email matches, ignoring case
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if u := findUserByEmail(doc, email); u != nil {
		return u, nil
	}
	return nil, ErrNotFound
}

// CreateUser stores a new user under a generated ID
func (r *Repository) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	var created models.User
	err := r.Apply(ctx, func(tx *Tx) error {
		created = tx.AddUser(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// --- Aircraft Operations ---

// ListAircraft returns the whole fleet
func (r *Repository) ListAircraft(ctx context.Context) ([]models.Aircraft, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Aircraft, nil
}

// GetAircraftByID returns an aircraft by ID
func (r *Repository) GetAircraftByID(ctx context.Context, id string) (*models.Aircraft, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range doc.Aircraft {
		if doc.Aircraft[i].ID == id {
			return &doc.Aircraft[i], nil
		}
	}
	return nil, ErrNotFound
}

// UpdateAircraftStatus sets the status of an aircraft
func (r *Repository) UpdateAircraftStatus(ctx context.Context, id string, status models.AircraftStatus) (*models.Aircraft, error) {
	var updated models.Aircraft
	err := r.Apply(ctx, func(tx *Tx) error {
		a, err := tx.SetAircraftStatus(id, status)
		if err != nil {
			return err
		}
		updated = *a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// --- Reservation Operations ---

// ListReservations returns the reservations matching filter in insertion order
func (r *Repository) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Reservation, 0, len(doc.Reservations))
	for i := range doc.Reservations {
		if filter.Match(&doc.Reservations[i]) {
			out = append(out, doc.Reservations[i])
		}
	}
	return out, nil
}

// ListReservationsByUser returns the reservations owned by a user
func (r *Repository) ListReservationsByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return r.ListReservations(ctx, models.ReservationFilter{UserID: userID})
}

// ListReservationsByAircraft returns the reservations of an aircraft
func (r *Repository) ListReservationsByAircraft(ctx context.Context, aircraftID string) ([]models.Reservation, error) {
	return r.ListReservations(ctx, models.ReservationFilter{AircraftID: aircraftID})
}

// ListReservationsByDate returns the reservations on the calendar date of day
func (r *Repository) ListReservationsByDate(ctx context.Context, day string) ([]models.Reservation, error) {
	return r.ListReservations(ctx, models.ReservationFilter{Date: day})
}

// GetReservationByID returns a reservation by ID
func (r *Repository) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := reservationIndex(doc, id); i >= 0 {
		return &doc.Reservations[i], nil
	}
	return nil, ErrNotFound
}

// CreateReservation appends a reservation under a generated ID
func (r *Repository) CreateReservation(ctx context.Context, res models.Reservation) (*models.Reservation, error) {
	var created models.Reservation
	err := r.Apply(ctx, func(tx *Tx) error {
		created = tx.AddReservation(res)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateReservation merges the provided fields over an existing reservation
func (r *Repository) UpdateReservation(ctx context.Context, req *models.UpdateReservationRequest) (*models.Reservation, error) {
	var updated models.Reservation
	err := r.Apply(ctx, func(tx *Tx) error {
		res, err := tx.UpdateReservation(req)
		if err != nil {
			return err
		}
		updated = *res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteReservation removes a reservation. It reports false when the ID is unknown.
func (r *Repository) DeleteReservation(ctx context.Context, id string) (bool, error) {
	err := r.Apply(ctx, func(tx *Tx) error {
		if !tx.DeleteReservation(id) {
			// nothing to write
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Tx is the document being mutated inside Repository.Apply
type Tx struct {
	doc   *models.Document
	newID func() string
}

// Aircraft returns the aircraft with id or nil
func (tx *Tx) Aircraft(id string) *models.Aircraft {
	for i := range tx.doc.Aircraft {
		if tx.doc.Aircraft[i].ID == id {
			return &tx.doc.Aircraft[i]
		}
	}
	return nil
}

// Reservation returns the reservation with id or nil
func (tx *Tx) Reservation(id string) *models.Reservation {
	if i := reservationIndex(tx.doc, id); i >= 0 {
		return &tx.doc.Reservations[i]
	}
	return nil
}

// UserByEmail returns the user with email, ignoring case, or nil
func (tx *Tx) UserByEmail(email string) *models.User {
	return findUserByEmail(tx.doc, email)
}

// AddUser appends user with a fresh ID and returns the stored copy
func (tx *Tx) AddUser(user models.User) models.User {
	user.ID = tx.uniqueID(func(id string) bool {
		for i := range tx.doc.Users {
			if tx.doc.Users[i].ID == id {
				return true
			}
		}
		return false
	})
	tx.doc.Users = append(tx.doc.Users, user)
	return user
}

// SetAircraftStatus changes the status of an aircraft
func (tx *Tx) SetAircraftStatus(id string, status models.AircraftStatus) (*models.Aircraft, error) {
	a := tx.Aircraft(id)
	if a == nil {
		return nil, ErrNotFound
	}
	a.Status = status
	return a, nil
}

// AddReservation appends res with a fresh ID and returns the stored copy
func (tx *Tx) AddReservation(res models.Reservation) models.Reservation {
	res.ID = tx.uniqueID(func(id string) bool {
		return reservationIndex(tx.doc, id) >= 0
	})
	tx.doc.Reservations = append(tx.doc.Reservations, res)
	return res
}

// UpdateReservation merges req over the reservation it names
func (tx *Tx) UpdateReservation(req *models.UpdateReservationRequest) (*models.Reservation, error) {
	i := reservationIndex(tx.doc, req.ID)
	if i < 0 {
		return nil, ErrNotFound
	}
	req.Apply(&tx.doc.Reservations[i])
	return &tx.doc.Reservations[i], nil
}

// DeleteReservation removes the reservation with id and reports whether it existed
func (tx *Tx) DeleteReservation(id string) bool {
	i := reservationIndex(tx.doc, id)
	if i < 0 {
		return false
	}
	tx.doc.Reservations = append(tx.doc.Reservations[:i], tx.doc.Reservations[i+1:]...)
	return true
}

func (tx *Tx) uniqueID(exists func(id string) bool) string {
	for {
		id := tx.newID()
		if !exists(id) {
			return id
		}
	}
}

func reservationIndex(doc *models.Document, id string) int {
	for i := range doc.Reservations {
		if doc.Reservations[i].ID == id {
			return i
		}
	}
	return -1
}

func findUserByEmail(doc *models.Document, email string) *models.User {
	email = strings.TrimSpace(email)
	for i := range doc.Users {
		if strings.EqualFold(doc.Users[i].Email, email) {
			return &doc.Users[i]
		}
	}
	return nil
}
