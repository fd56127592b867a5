package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func (s *ShoppingStore) ListLists() ([]model.ShoppingList, error) {
	rows, err := s.db.Query(`SELECT id, name, sort_order, created_at FROM shopping_lists ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	for rows.Next() {
		var l model.ShoppingList
		if err := rows.Scan(&l.ID, &l.Name, &l.SortOrder, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shopping list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

const shoppingItemCols = `id, list_id, name, quantity, unit, note, checked, checked_by, checked_at, added_by, sort_order, created_at`

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var it model.ShoppingItem
	var checked int
	var checkedBy, addedBy sql.NullInt64
	var checkedAt sql.NullTime

	err := scanner.Scan(&it.ID, &it.ListID, &it.Name, &it.Quantity, &it.Unit, &it.Note,
		&checked, &checkedBy, &checkedAt, &addedBy, &it.SortOrder, &it.CreatedAt)
	if err != nil {
		return nil, err
	}
	it.Checked = checked != 0
	if checkedBy.Valid {
		it.CheckedBy = &checkedBy.Int64
	}
	if checkedAt.Valid {
		t := checkedAt.Time.UTC()
		it.CheckedAt = &t
	}
	if addedBy.Valid {
		it.AddedBy = &addedBy.Int64
	}
	return &it, nil
}

func (s *ShoppingStore) CreateItem(listID int64, name, quantity, unit, note string, addedBy *int64) (*model.ShoppingItem, error) {
	var maxOrder int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM shopping_items WHERE list_id = ?`, listID).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO shopping_items (list_id, name, quantity, unit, note, added_by, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		listID, name, quantity, unit, note, nullInt(addedBy), maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) GetItemByID(id int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+shoppingItemCols+` FROM shopping_items WHERE id = ?`, id)
	it, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shopping item: %w", err)
	}
	return it, nil
}

func (s *ShoppingStore) ListItems(listID int64) ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingItemCols+` FROM shopping_items WHERE list_id = ? ORDER BY checked, sort_order, id`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("query shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		it, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) UpdateItem(id int64, name, quantity, unit, note string) (*model.ShoppingItem, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_items SET name = ?, quantity = ?, unit = ?, note = ? WHERE id = ?`,
		name, quantity, unit, note, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) SetChecked(id int64, checked bool, checkedBy *int64, at time.Time) (*model.ShoppingItem, error) {
	var err error
	if checked {
		_, err = s.db.Exec(
			`UPDATE shopping_items SET checked = 1, checked_by = ?, checked_at = ? WHERE id = ?`,
			nullInt(checkedBy), at.UTC(), id,
		)
	} else {
		_, err = s.db.Exec(
			`UPDATE shopping_items SET checked = 0, checked_by = NULL, checked_at = NULL WHERE id = ?`, id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("set checked: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) DeleteItem(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// ClearChecked removes every checked item from the list and returns how many
// were removed.
func (s *ShoppingStore) ClearChecked(listID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM shopping_items WHERE list_id = ? AND checked = 1`, listID)
	if err != nil {
		return 0, fmt.Errorf("clear checked: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
