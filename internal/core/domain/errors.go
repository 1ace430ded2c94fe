package domain

import "errors"

var (
	ErrInvalidLongitude = errors.New("longitude outside [-180, 180]")
	ErrInvalidTileID    = errors.New("invalid S2 tile id")
	ErrInvalidPathRow   = errors.New("invalid path/row")
	ErrNotFound         = errors.New("not found")
)
