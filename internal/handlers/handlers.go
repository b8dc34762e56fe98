package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hhsantos/flight-calendar/internal/database"
	"github.com/hhsantos/flight-calendar/internal/middleware"
	"github.com/hhsantos/flight-calendar/internal/models"
	"github.com/hhsantos/flight-calendar/internal/service"
)

// Handler contains HTTP handlers for the reservations and fleet API
type Handler struct {
	bookingService service.BookingService
}

// NewHandler creates a new Handler instance
func NewHandler(bookingService service.BookingService) *Handler {
	return &Handler{
		bookingService: bookingService,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error onto its status code. Internal
// errors are logged and answered with fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, notFound)
	default:
		slog.Error("internal_error", "error", err.Error(), "method", r.Method, "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// ListReservations handles GET /api/reservations
func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.ReservationFilter{
		Date:       q.Get("fecha"),
		UserID:     q.Get("usuarioId"),
		AircraftID: q.Get("avionId"),
	}

	reservations, err := h.bookingService.ListReservations(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err, "Reserva no encontrada", "Error al obtener reservas")
		return
	}
	respondJSON(w, http.StatusOK, reservations)
}

// GetReservation handles GET /api/reservations/{id}
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	reservation, err := h.bookingService.GetReservation(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "Reserva no encontrada", "Error al obtener la reserva")
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// CreateReservation handles POST /api/reservations
func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "No autorizado")
		return
	}

	var req models.CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
		return
	}

	reservation, err := h.bookingService.CreateReservation(r.Context(), p.ID, &req)
	if err != nil {
		respondServiceError(w, r, err, "Avión no encontrado", "Error al crear la reserva")
		return
	}
	respondJSON(w, http.StatusCreated, reservation)
}

// UpdateReservation handles PUT /api/reservations
func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
		return
	}

	reservation, err := h.bookingService.UpdateReservation(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err, "Reserva no encontrada", "Error al actualizar la reserva")
		return
	}
	respondJSON(w, http.StatusOK, reservation)
}

// DeleteReservation handles DELETE /api/reservations?id=
func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := h.bookingService.DeleteReservation(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "Reserva no encontrada", "Error al eliminar la reserva")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListAircraft handles GET /api/aircraft
func (h *Handler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	status := models.AircraftStatus(r.URL.Query().Get("estado"))
	fleet, err := h.bookingService.ListAircraft(r.Context(), status)
	if err != nil {
		respondServiceError(w, r, err, "Avión no encontrado", "Error al obtener aviones")
		return
	}
	respondJSON(w, http.StatusOK, fleet)
}

// GetAircraft handles GET /api/aircraft/{id}
func (h *Handler) GetAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft, err := h.bookingService.GetAircraft(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err, "Avión no encontrado", "Error al obtener el avión")
		return
	}
	respondJSON(w, http.StatusOK, aircraft)
}

// SetAircraftStatus handles PUT /api/aircraft/{id}/status
func (h *Handler) SetAircraftStatus(w http.ResponseWriter, r *http.Request) {
	var req models.SetAircraftStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Cuerpo de solicitud inválido")
		return
	}

	aircraft, err := h.bookingService.SetAircraftStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		respondServiceError(w, r, err, "Avión no encontrado", "Error al actualizar el avión")
		return
	}
	respondJSON(w, http.StatusOK, aircraft)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
