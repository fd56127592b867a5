package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type VehicleStore struct {
	db *sql.DB
}

func NewVehicleStore(db *sql.DB) *VehicleStore {
	return &VehicleStore{db: db}
}

const vehicleCols = `id, name, plate, make, model, year, odometer, service_due_date, service_due_odometer, created_at, updated_at`

func scanVehicle(scanner interface{ Scan(...any) error }) (*model.Vehicle, error) {
	var v model.Vehicle
	var dueDate sql.NullTime
	var dueOdometer sql.NullInt64
	err := scanner.Scan(&v.ID, &v.Name, &v.Plate, &v.Make, &v.Model, &v.Year,
		&v.Odometer, &dueDate, &dueOdometer, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		v.ServiceDueDate = &t
	}
	if dueOdometer.Valid {
		v.ServiceDueOdometer = &dueOdometer.Int64
	}
	return &v, nil
}

type VehicleParams struct {
	Name               string
	Plate              string
	Make               string
	Model              string
	Year               int
	ServiceDueDate     *time.Time
	ServiceDueOdometer *int64
}

func (s *VehicleStore) Create(p VehicleParams) (*model.Vehicle, error) {
	result, err := s.db.Exec(
		`INSERT INTO vehicles (name, plate, make, model, year, service_due_date, service_due_odometer)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Plate, p.Make, p.Model, p.Year, nullTime(p.ServiceDueDate), nullInt(p.ServiceDueOdometer),
	)
	if err != nil {
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *VehicleStore) GetByID(id int64) (*model.Vehicle, error) {
	row := s.db.QueryRow(`SELECT `+vehicleCols+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query vehicle: %w", err)
	}
	return v, nil
}

func (s *VehicleStore) List() ([]model.Vehicle, error) {
	rows, err := s.db.Query(`SELECT ` + vehicleCols + ` FROM vehicles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

func (s *VehicleStore) Update(id int64, p VehicleParams) (*model.Vehicle, error) {
	_, err := s.db.Exec(
		`UPDATE vehicles
		 SET name = ?, plate = ?, make = ?, model = ?, year = ?, service_due_date = ?, service_due_odometer = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Plate, p.Make, p.Model, p.Year, nullTime(p.ServiceDueDate), nullInt(p.ServiceDueOdometer), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	return s.GetByID(id)
}

// RecordOdometer sets the odometer reading if it is ahead of the stored one.
func (s *VehicleStore) RecordOdometer(id int64, reading int64) (*model.Vehicle, error) {
	_, err := s.db.Exec(
		`UPDATE vehicles SET odometer = MAX(odometer, ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		reading, id,
	)
	if err != nil {
		return nil, fmt.Errorf("record odometer: %w", err)
	}
	return s.GetByID(id)
}

func (s *VehicleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	return nil
}
