package catalog

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Size is a drink size.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

var sizeFactor = map[Size]decimal.Decimal{
	SizeSmall:  decimal.RequireFromString("0.75"),
	SizeMedium: decimal.NewFromInt(1),
	SizeLarge:  decimal.RequireFromString("1.5"),
}

// ParseSize validates s. The empty string is medium.
func ParseSize(s string) (Size, error) {
	if s == "" {
		return SizeMedium, nil
	}
	size := Size(s)
	if _, ok := sizeFactor[size]; !ok {
		return "", errors.Wrapf(ErrInvalidSize, "%q", s)
	}
	return size, nil
}

// Apply returns the price of base at this size.
func (s Size) Apply(base decimal.Decimal) decimal.Decimal {
	f, ok := sizeFactor[s]
	if !ok {
		return base
	}
	return base.Mul(f)
}
