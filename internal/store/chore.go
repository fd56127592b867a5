package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func (s *ChoreStore) CreateArea(name string, sortOrder int) (*model.ChoreArea, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_areas (name, sort_order) VALUES (?, ?)`, name, sortOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("insert area: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAreaByID(id)
}

func (s *ChoreStore) GetAreaByID(id int64) (*model.ChoreArea, error) {
	var a model.ChoreArea
	err := s.db.QueryRow(
		`SELECT id, name, sort_order, created_at, updated_at FROM chore_areas WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query area: %w", err)
	}
	return &a, nil
}

func (s *ChoreStore) ListAreas() ([]model.ChoreArea, error) {
	rows, err := s.db.Query(`SELECT id, name, sort_order, created_at, updated_at FROM chore_areas ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("query areas: %w", err)
	}
	defer rows.Close()

	var areas []model.ChoreArea
	for rows.Next() {
		var a model.ChoreArea
		if err := rows.Scan(&a.ID, &a.Name, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (s *ChoreStore) UpdateArea(id int64, name string, sortOrder int) (*model.ChoreArea, error) {
	_, err := s.db.Exec(
		`UPDATE chore_areas SET name = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, sortOrder, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update area: %w", err)
	}
	return s.GetAreaByID(id)
}

func (s *ChoreStore) DeleteArea(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chore_areas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete area: %w", err)
	}
	return nil
}

const choreCols = `id, title, description, area_id, points, recurrence_rule, assigned_to, sort_order, created_at, updated_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var areaID, assignedTo sql.NullInt64
	err := scanner.Scan(&c.ID, &c.Title, &c.Description, &areaID, &c.Points,
		&c.RecurrenceRule, &assignedTo, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if areaID.Valid {
		c.AreaID = &areaID.Int64
	}
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	return &c, nil
}

func (s *ChoreStore) Create(title, description string, areaID *int64, points int, recurrenceRule string, assignedTo *int64) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (title, description, area_id, points, recurrence_rule, assigned_to)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, nullInt(areaID), points, recurrenceRule, nullInt(assignedTo),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) List() ([]model.Chore, error) {
	rows, err := s.db.Query(`SELECT ` + choreCols + ` FROM chores ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, title, description string, areaID *int64, points int, recurrenceRule string, assignedTo *int64) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores
		 SET title = ?, description = ?, area_id = ?, points = ?, recurrence_rule = ?, assigned_to = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, nullInt(areaID), points, recurrenceRule, nullInt(assignedTo), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func (s *ChoreStore) Complete(choreID int64, completedBy *int64, at time.Time) (*model.ChoreCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_completions (chore_id, completed_by, completed_at) VALUES (?, ?, ?)`,
		choreID, nullInt(completedBy), at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	var c model.ChoreCompletion
	var by sql.NullInt64
	err = s.db.QueryRow(
		`SELECT id, chore_id, completed_by, completed_at FROM chore_completions WHERE id = ?`, id,
	).Scan(&c.ID, &c.ChoreID, &by, &c.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("query completion: %w", err)
	}
	if by.Valid {
		c.CompletedBy = &by.Int64
	}
	return &c, nil
}

func (s *ChoreStore) DeleteCompletion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chore_completions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

// LastCompletion returns the most recent completion time for a chore, or nil.
func (s *ChoreStore) LastCompletion(choreID int64) (*time.Time, error) {
	var at sql.NullTime
	err := s.db.QueryRow(
		`SELECT MAX(completed_at) FROM chore_completions WHERE chore_id = ?`, choreID,
	).Scan(&at)
	if err != nil {
		return nil, fmt.Errorf("query last completion: %w", err)
	}
	if !at.Valid {
		return nil, nil
	}
	t := at.Time.UTC()
	return &t, nil
}
