package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shelter-adoption-api/internal/models"
)

// AnimalRepository reads the animal directory and its medical history.
type AnimalRepository struct {
	db *sqlx.DB
}

// NewAnimalRepository constructs the repository.
func NewAnimalRepository(db *sqlx.DB) *AnimalRepository {
	return &AnimalRepository{db: db}
}

// GetByID fetches an animal by identifier.
func (r *AnimalRepository) GetByID(ctx context.Context, id string) (*models.Animal, error) {
	const query = `SELECT id, name, species, status, vaccinated, sterilized, microchipped, updated_at FROM animals WHERE id = $1`
	var animal models.Animal
	if err := r.db.GetContext(ctx, &animal, query, id); err != nil {
		return nil, notFound(err, ErrAnimalNotFound)
	}
	return &animal, nil
}

// ListMedicalRecords returns the animal's procedures, latest first.
func (r *AnimalRepository) ListMedicalRecords(ctx context.Context, animalID string) ([]models.MedicalRecord, error) {
	const query = `SELECT id, animal_id, procedure, performed_at, next_due_date
	FROM medical_records WHERE animal_id = $1 ORDER BY performed_at DESC`
	var records []models.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, query, animalID); err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	return records, nil
}
