package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/bywater/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, name, color, avatar_emoji, time_zone, day_start_hour, day_end_hour,
	pin IS NOT NULL, sort_order, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	err := scanner.Scan(&m.ID, &m.Name, &m.Color, &m.AvatarEmoji, &m.TimeZone,
		&m.DayStartHour, &m.DayEndHour, &m.HasPIN, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type MemberParams struct {
	Name         string
	Color        string
	AvatarEmoji  string
	TimeZone     string
	DayStartHour int
	DayEndHour   int
}

func (s *MemberStore) Create(p MemberParams) (*model.Member, error) {
	var maxOrder int
	err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), -1) FROM members").Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO members (name, color, avatar_emoji, time_zone, day_start_hour, day_end_hour, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Color, p.AvatarEmoji, p.TimeZone, p.DayStartHour, p.DayEndHour, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) List() ([]model.Member, error) {
	rows, err := s.db.Query(`SELECT ` + memberCols + ` FROM members ORDER BY sort_order`)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// DisplayName resolves a member id to its name for free-busy labeling.
// Unknown members resolve to an empty string.
func (s *MemberStore) DisplayName(id int64) (string, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM members WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query member name: %w", err)
	}
	return name, nil
}

// NameExists reports whether another member already uses the name. Pass the
// member's own id on update so it does not collide with itself.
func (s *MemberStore) NameExists(name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM members WHERE name = ? COLLATE NOCASE AND id != ?`,
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}

func (s *MemberStore) Update(id int64, p MemberParams) (*model.Member, error) {
	_, err := s.db.Exec(
		`UPDATE members
		 SET name = ?, color = ?, avatar_emoji = ?, time_zone = ?, day_start_hour = ?, day_end_hour = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Color, p.AvatarEmoji, p.TimeZone, p.DayStartHour, p.DayEndHour, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (s *MemberStore) UpdateSortOrder(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE members SET sort_order = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.Exec(i, id); err != nil {
			return fmt.Errorf("update sort order for id %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *MemberStore) SetPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec(`UPDATE members SET pin = ? WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *MemberStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(`UPDATE members SET pin = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *MemberStore) GetPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT pin FROM members WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("member not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}
