// internal/infra/database/postgres_medication_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"medication_reminder_bot/internal/domain/medication"

	"github.com/google/uuid"
)

type PostgresMedicationRepository struct {
	db *sql.DB
}

func NewPostgresMedicationRepository(db *sql.DB) *PostgresMedicationRepository {
	return &PostgresMedicationRepository{db: db}
}

// timingRow is the JSON shape timings are stored as.
type timingRow struct {
	Time   string `json:"time"`
	Period string `json:"period"`
}

func (r *PostgresMedicationRepository) Create(ctx context.Context, med *medication.Medication) error {
	timings, err := marshalTimings(med.Timings)
	if err != nil {
		return err
	}
	query := `INSERT INTO medications (id, user_id, name, dosage, instructions, start_date, days, timings, active)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	           RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		med.ID, med.UserID, med.Name, med.Dosage, med.Instructions,
		med.Duration.StartDate, med.Duration.Days, timings, med.Active,
	).Scan(&med.CreatedAt, &med.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating medication: %w", err)
	}
	return nil
}

func (r *PostgresMedicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*medication.Medication, error) {
	query := `SELECT id, user_id, name, dosage, instructions, start_date, days, timings, active, created_at, updated_at
	           FROM medications WHERE id = $1`
	med, err := scanMedication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, medication.ErrNotFound
		}
		return nil, fmt.Errorf("error getting medication by ID: %w", err)
	}
	return med, nil
}

func (r *PostgresMedicationRepository) Update(ctx context.Context, med *medication.Medication) error {
	timings, err := marshalTimings(med.Timings)
	if err != nil {
		return err
	}
	query := `UPDATE medications
	           SET name = $1, dosage = $2, instructions = $3, start_date = $4, days = $5, timings = $6, active = $7, updated_at = NOW()
	           WHERE id = $8
	           RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query,
		med.Name, med.Dosage, med.Instructions, med.Duration.StartDate, med.Duration.Days, timings, med.Active, med.ID,
	).Scan(&med.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return medication.ErrNotFound
		}
		return fmt.Errorf("error updating medication: %w", err)
	}
	return nil
}

func (r *PostgresMedicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting medication: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for medication delete: %w", err)
	}
	if affected == 0 {
		return medication.ErrNotFound
	}
	return nil
}

func (r *PostgresMedicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*medication.Medication, error) {
	query := `SELECT id, user_id, name, dosage, instructions, start_date, days, timings, active, created_at, updated_at
	           FROM medications WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying medications by user: %w", err)
	}
	defer rows.Close()

	meds := make([]*medication.Medication, 0)
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning medication row: %w", err)
		}
		meds = append(meds, med)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medication rows: %w", err)
	}
	return meds, nil
}

func scanMedication(row rowScanner) (*medication.Medication, error) {
	med := medication.Medication{}
	var timings []byte
	err := row.Scan(
		&med.ID, &med.UserID, &med.Name, &med.Dosage, &med.Instructions,
		&med.Duration.StartDate, &med.Duration.Days, &timings, &med.Active,
		&med.CreatedAt, &med.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var rows []timingRow
	if len(timings) > 0 {
		if err := json.Unmarshal(timings, &rows); err != nil {
			return nil, fmt.Errorf("error unmarshaling medication timings: %w", err)
		}
	}
	med.Timings = make([]medication.Timing, len(rows))
	for i, t := range rows {
		med.Timings[i] = medication.Timing{Time: t.Time, Period: medication.Period(t.Period)}
	}
	return &med, nil
}

func marshalTimings(timings []medication.Timing) ([]byte, error) {
	rows := make([]timingRow, len(timings))
	for i, t := range timings {
		rows[i] = timingRow{Time: t.Time, Period: string(t.Period)}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("error marshaling medication timings: %w", err)
	}
	return data, nil
}
