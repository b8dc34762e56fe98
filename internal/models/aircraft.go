package models

// AircraftStatus represents the availability of an aircraft
type AircraftStatus string

const (
	AircraftStatusAvailable   AircraftStatus = "available"
	AircraftStatusMaintenance AircraftStatus = "maintenance"
	AircraftStatusReserved    AircraftStatus = "reserved"
)

var legacyAircraftStatus = map[AircraftStatus]AircraftStatus{
	"disponible":    AircraftStatusAvailable,
	"mantenimiento": AircraftStatusMaintenance,
	"reservado":     AircraftStatusReserved,
}

// Canonical maps the Spanish values of older documents to the current ones
func (s AircraftStatus) Canonical() AircraftStatus {
	if c, ok := legacyAircraftStatus[s]; ok {
		return c
	}
	return s
}

// Valid reports whether s is one of the known aircraft statuses
func (s AircraftStatus) Valid() bool {
	switch s {
	case AircraftStatusAvailable, AircraftStatusMaintenance, AircraftStatusReserved:
		return true
	}
	return false
}

// Aircraft represents a plane of the club fleet
type Aircraft struct {
	ID          string         `json:"id"`
	Model       string         `json:"modelo"`
	TailNumber  string         `json:"matricula"`
	Status      AircraftStatus `json:"estado"`
	Seats       int            `json:"asientos"`
	Power       string         `json:"potencia"`
	CruiseSpeed string         `json:"velocidadCrucero"`
	Range       string         `json:"autonomia"`
	Description string         `json:"descripcion"`
}

// SetAircraftStatusRequest represents a manual status change of an aircraft
type SetAircraftStatusRequest struct {
	Status AircraftStatus `json:"estado"`
}
