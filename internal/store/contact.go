package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

const contactCols = `id, name, relation, phone, email, address, birthday, notes, created_at, updated_at`

func scanContact(scanner interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	var birthday sql.NullTime
	err := scanner.Scan(&c.ID, &c.Name, &c.Relation, &c.Phone, &c.Email, &c.Address,
		&birthday, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if birthday.Valid {
		t := birthday.Time.UTC()
		c.Birthday = &t
	}
	return &c, nil
}

type ContactParams struct {
	Name     string
	Relation string
	Phone    string
	Email    string
	Address  string
	Birthday *time.Time
	Notes    string
}

func (s *ContactStore) Create(p ContactParams) (*model.Contact, error) {
	result, err := s.db.Exec(
		`INSERT INTO contacts (name, relation, phone, email, address, birthday, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Relation, p.Phone, p.Email, p.Address, nullTime(p.Birthday), p.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ContactStore) GetByID(id int64) (*model.Contact, error) {
	row := s.db.QueryRow(`SELECT `+contactCols+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query contact: %w", err)
	}
	return c, nil
}

func (s *ContactStore) List() ([]model.Contact, error) {
	rows, err := s.db.Query(`SELECT ` + contactCols + ` FROM contacts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (s *ContactStore) Update(id int64, p ContactParams) (*model.Contact, error) {
	_, err := s.db.Exec(
		`UPDATE contacts
		 SET name = ?, relation = ?, phone = ?, email = ?, address = ?, birthday = ?, notes = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Relation, p.Phone, p.Email, p.Address, nullTime(p.Birthday), p.Notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return s.GetByID(id)
}

func (s *ContactStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}
