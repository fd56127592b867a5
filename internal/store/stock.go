package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type StockStore struct {
	db *sql.DB
}

func NewStockStore(db *sql.DB) *StockStore {
	return &StockStore{db: db}
}

const stockCols = `id, name, location, quantity, unit, min_quantity, best_before, created_at, updated_at`

func scanStockItem(scanner interface{ Scan(...any) error }) (*model.StockItem, error) {
	var it model.StockItem
	var bestBefore sql.NullTime
	err := scanner.Scan(&it.ID, &it.Name, &it.Location, &it.Quantity, &it.Unit,
		&it.MinQuantity, &bestBefore, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if bestBefore.Valid {
		t := bestBefore.Time.UTC()
		it.BestBefore = &t
	}
	return &it, nil
}

type StockParams struct {
	Name        string
	Location    string
	Quantity    float64
	Unit        string
	MinQuantity float64
	BestBefore  *time.Time
}

func (s *StockStore) Create(p StockParams) (*model.StockItem, error) {
	result, err := s.db.Exec(
		`INSERT INTO stock_items (name, location, quantity, unit, min_quantity, best_before)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Location, p.Quantity, p.Unit, p.MinQuantity, nullTime(p.BestBefore),
	)
	if err != nil {
		return nil, fmt.Errorf("insert stock item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *StockStore) GetByID(id int64) (*model.StockItem, error) {
	row := s.db.QueryRow(`SELECT `+stockCols+` FROM stock_items WHERE id = ?`, id)
	it, err := scanStockItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock item: %w", err)
	}
	return it, nil
}

func (s *StockStore) List() ([]model.StockItem, error) {
	rows, err := s.db.Query(`SELECT ` + stockCols + ` FROM stock_items ORDER BY location, name`)
	if err != nil {
		return nil, fmt.Errorf("query stock items: %w", err)
	}
	defer rows.Close()
	return collectStockItems(rows)
}

// ListBelowMin returns items that have fallen under their minimum quantity,
// for restocking the shopping list.
func (s *StockStore) ListBelowMin() ([]model.StockItem, error) {
	rows, err := s.db.Query(
		`SELECT ` + stockCols + ` FROM stock_items WHERE min_quantity > 0 AND quantity < min_quantity ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query below-min stock: %w", err)
	}
	defer rows.Close()
	return collectStockItems(rows)
}

func collectStockItems(rows *sql.Rows) ([]model.StockItem, error) {
	var items []model.StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *StockStore) Update(id int64, p StockParams) (*model.StockItem, error) {
	_, err := s.db.Exec(
		`UPDATE stock_items
		 SET name = ?, location = ?, quantity = ?, unit = ?, min_quantity = ?, best_before = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Name, p.Location, p.Quantity, p.Unit, p.MinQuantity, nullTime(p.BestBefore), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update stock item: %w", err)
	}
	return s.GetByID(id)
}

// AdjustQuantity adds delta (possibly negative) to the item's quantity,
// clamping at zero.
func (s *StockStore) AdjustQuantity(id int64, delta float64) (*model.StockItem, error) {
	_, err := s.db.Exec(
		`UPDATE stock_items SET quantity = MAX(0, quantity + ?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		delta, id,
	)
	if err != nil {
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}
	return s.GetByID(id)
}

func (s *StockStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM stock_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete stock item: %w", err)
	}
	return nil
}
