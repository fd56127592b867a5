package model

import "time"

type Vehicle struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Plate              string     `json:"plate"`
	Make               string     `json:"make"`
	Model              string     `json:"model"`
	Year               int        `json:"year"`
	Odometer           int64      `json:"odometer"`
	ServiceDueDate     *time.Time `json:"service_due_date,omitempty"`
	ServiceDueOdometer *int64     `json:"service_due_odometer,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
