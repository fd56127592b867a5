package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type EquipmentStore struct {
	db *sql.DB
}

func NewEquipmentStore(db *sql.DB) *EquipmentStore {
	return &EquipmentStore{db: db}
}

const equipmentCols = `id, name, category, purchase_date, warranty_until, manual_note, maintenance_note, created_at, updated_at`

func scanEquipment(scanner interface{ Scan(...any) error }) (*model.Equipment, error) {
	var e model.Equipment
	var purchase, warranty sql.NullTime
	err := scanner.Scan(&e.ID, &e.Name, &e.Category, &purchase, &warranty,
		&e.ManualNote, &e.MaintenanceNote, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if purchase.Valid {
		t := purchase.Time.UTC()
		e.PurchaseDate = &t
	}
	if warranty.Valid {
		t := warranty.Time.UTC()
		e.WarrantyUntil = &t
	}
	return &e, nil
}

type EquipmentParams struct {
	Name            string
	Category        string
	PurchaseDate    *time.Time
	WarrantyUntil   *time.Time
	ManualNote      string
	MaintenanceNote string
}

func (s *EquipmentStore) Create(p EquipmentParams) (*model.Equipment, error) {
	result, err := s.db.Exec(
		`INSERT INTO equipment (name, category, purchase_date, warranty_until, manual_note, maintenance_note)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Category, nullTime(p.PurchaseDate), nullTime(p.WarrantyUntil), p.ManualNote, p.MaintenanceNote,
	)
	if err != nil {
		return nil, fmt.Errorf("insert equipment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EquipmentStore) GetByID(id int64) (*model.Equipment, error) {
	row := s.db.QueryRow(`SELECT `+equipmentCols+` FROM equipment WHERE id = ?`, id)
	e, err := scanEquipment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	return e, nil
}

func (s *EquipmentStore) List() ([]model.Equipment, error) {
	rows, err := s.db.Query(`SELECT ` + equipmentCols + ` FROM equipment ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("query equipment: %w", err)
	}
	defer rows.Close()

	var items []model.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

func (s *EquipmentStore) Update(id int64, p EquipmentParams) (*model.Equipment, error) {
	_, err := s.db.Exec(
		`UPDATE equipment
		 SET name = ?, category = ?, purchase_date = ?, warranty_until = ?, manual_note = ?, maintenance_note = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Category, nullTime(p.PurchaseDate), nullTime(p.WarrantyUntil), p.ManualNote, p.MaintenanceNote, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update equipment: %w", err)
	}
	return s.GetByID(id)
}

func (s *EquipmentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM equipment WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete equipment: %w", err)
	}
	return nil
}
