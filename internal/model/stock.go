package model

import "time"

type StockItem struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Quantity    float64    `json:"quantity"`
	Unit        string     `json:"unit"`
	MinQuantity float64    `json:"min_quantity"`
	BestBefore  *time.Time `json:"best_before,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BelowMin reports whether the item has fallen under its minimum quantity.
func (s *StockItem) BelowMin() bool {
	return s.MinQuantity > 0 && s.Quantity < s.MinQuantity
}
