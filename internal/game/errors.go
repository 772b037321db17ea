package game

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidHex       = errors.New("hex is not on the grid")
	ErrNoFaction        = errors.New("no faction")
	ErrNoNation         = errors.New("no nation")
	ErrUnknownUnitType  = errors.New("unknown unit type")
	ErrUnknownGoodsType = errors.New("unknown goods type")
	ErrCityExists       = errors.New("hex already hosts a city")

	ErrNegative  = errors.New("value is negative")
	ErrNotFinite = errors.New("value is not finite")
)

// InvalidValueError reports a rejected assignment. Err is ErrNegative or ErrNotFinite.
type InvalidValueError struct {
	Field string
	Value any
	Err   error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

func negative(field string, v any) error {
	return &InvalidValueError{Field: field, Value: v, Err: ErrNegative}
}
