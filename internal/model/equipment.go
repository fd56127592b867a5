package model

import "time"

type Equipment struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	PurchaseDate    *time.Time `json:"purchase_date,omitempty"`
	WarrantyUntil   *time.Time `json:"warranty_until,omitempty"`
	ManualNote      string     `json:"manual_note"`
	MaintenanceNote string     `json:"maintenance_note"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
