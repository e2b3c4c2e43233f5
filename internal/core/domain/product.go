package domain

import "time"

type Product struct {
	ID                 int64
	Name               string
	Description        string
	Price              float64
	DiscountPercentage float64
	UnitsInStock       int64
	Version            int64 // bumped on every stock write
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
