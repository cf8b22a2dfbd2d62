package models

import "time"

// AnimalStatus captures availability of an animal for adoption.
type AnimalStatus string

const (
	AnimalStatusAvailable    AnimalStatus = "available"
	AnimalStatusReserved     AnimalStatus = "reserved"
	AnimalStatusAdopted      AnimalStatus = "adopted"
	AnimalStatusQuarantine   AnimalStatus = "quarantine"
	AnimalStatusNotAvailable AnimalStatus = "not_available"
)

// Animal is the directory record the adoption workflow reads and flips.
type Animal struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Species      string       `db:"species" json:"species"`
	Status       AnimalStatus `db:"status" json:"status"`
	Vaccinated   bool         `db:"vaccinated" json:"vaccinated"`
	Sterilized   bool         `db:"sterilized" json:"sterilized"`
	Microchipped bool         `db:"microchipped" json:"microchipped"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// FullyCertified is true when every baseline procedure flag is set.
func (a *Animal) FullyCertified() bool {
	return a.Vaccinated && a.Sterilized && a.Microchipped
}

// MedicalRecord is a single procedure entry in an animal's medical history.
type MedicalRecord struct {
	ID          string     `db:"id" json:"id"`
	AnimalID    string     `db:"animal_id" json:"animal_id"`
	Procedure   string     `db:"procedure" json:"procedure"`
	PerformedAt time.Time  `db:"performed_at" json:"performed_at"`
	NextDueDate *time.Time `db:"next_due_date" json:"next_due_date,omitempty"`
}

// Overdue reports whether a follow-up procedure was due before now.
func (r MedicalRecord) Overdue(now time.Time) bool {
	return r.NextDueDate != nil && r.NextDueDate.Before(now)
}
