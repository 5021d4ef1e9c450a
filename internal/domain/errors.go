package domain

import "errors"

var (
	ErrMalformedAttributeData = errors.New("malformed attribute data")
	ErrMalformedQuantity      = errors.New("malformed quantity")
	ErrQueryFailed            = errors.New("catalog query failed")
	ErrMissingDefaultPrice    = errors.New("missing default price")
)
