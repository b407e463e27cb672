package property

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is the listing category.
type Type string

const (
	TypeApartment  Type = "APARTMENT"
	TypeHouse      Type = "HOUSE"
	TypeRoom       Type = "ROOM"
	TypeCommercial Type = "COMMERCIAL"
)

// Valid reports whether t is a known category.
func (t Type) Valid() bool {
	switch t {
	case TypeApartment, TypeHouse, TypeRoom, TypeCommercial:
		return true
	}
	return false
}

// Property is a rental listing owned by exactly one user.
type Property struct {
	ID          int64
	OwnerID     int64
	OwnerPhone  string
	Title       string
	Description string
	Type        Type
	Price       decimal.Decimal
	Location    string
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input carries listing fields from a request. Nil pointers mean "not supplied".
type Input struct {
	Title        *string          `json:"title" validate:"omitnil,notblank,max=255"`
	Description  *string          `json:"description" validate:"omitnil,notblank"`
	PropertyType *Type            `json:"property_type" validate:"omitnil,oneof=APARTMENT HOUSE ROOM COMMERCIAL"`
	Price        *decimal.Decimal `json:"price"`
	Location     *string          `json:"location" validate:"omitnil,notblank,max=255"`
	IsAvailable  *bool            `json:"is_available"`
}

// Filter narrows listings. Zero values are ignored.
type Filter struct {
	OwnerID       int64
	AvailableOnly bool
	Available     *bool
	Type          Type
	Search        string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}
