package models

// Document is the whole persisted dataset
type Document struct {
	Users        []User        `json:"usuarios"`
	Aircraft     []Aircraft    `json:"aviones"`
	Reservations []Reservation `json:"reservas"`
}

// SeedDocument returns the content written when no document exists yet
func SeedDocument() *Document {
	return &Document{
		Users: []User{
			{
				ID:    "1",
				Name:  "Administrador",
				Email: "admin@aeroclub.com",
				Role:  RoleAdmin,
			},
		},
		Aircraft: []Aircraft{
			{
				ID:          "1",
				Model:       "Cessna 152",
				TailNumber:  "EC-ABC",
				Status:      AircraftStatusAvailable,
				Seats:       2,
				Power:       "110 HP",
				CruiseSpeed: "95 kts",
				Range:       "4 horas",
				Description: "Avión biplaza ideal para formación básica y vuelos locales.",
			},
			{
				ID:          "2",
				Model:       "Cessna 172",
				TailNumber:  "EC-DEF",
				Status:      AircraftStatusMaintenance,
				Seats:       4,
				Power:       "160 HP",
				CruiseSpeed: "122 kts",
				Range:       "5 horas",
				Description: "Avión de cuatro plazas perfecto para viajes y formación avanzada.",
			},
			{
				ID:          "3",
				Model:       "Piper PA-28",
				TailNumber:  "EC-GHI",
				Status:      AircraftStatusAvailable,
				Seats:       4,
				Power:       "180 HP",
				CruiseSpeed: "135 kts",
				Range:       "5.5 horas",
				Description: "Avión versátil de cuatro plazas con excelente rendimiento para viajes.",
			},
		},
		Reservations: []Reservation{},
	}
}

// Normalize replaces nil collections with empty ones so they serialize as []
// and rewrites legacy enum values
func (d *Document) Normalize() {
	for i := range d.Users {
		d.Users[i].Role = d.Users[i].Role.Canonical()
	}
	for i := range d.Aircraft {
		d.Aircraft[i].Status = d.Aircraft[i].Status.Canonical()
	}
	for i := range d.Reservations {
		d.Reservations[i].Status = d.Reservations[i].Status.Canonical()
	}
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Aircraft == nil {
		d.Aircraft = []Aircraft{}
	}
	if d.Reservations == nil {
		d.Reservations = []Reservation{}
	}
}
