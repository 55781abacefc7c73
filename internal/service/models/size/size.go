package size

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Size is a ring size kept as a whole number of tenths, so 16.5 is stored as 165.
type Size int64

var ErrInvalidSize = errors.New("invalid size")

// MaxSize is the largest size the NUMERIC(5,1) column holds.
const MaxSize Size = 99999

var (
	ten       = decimal.NewFromInt(10)
	maxScaled = decimal.NewFromInt(int64(MaxSize))
)

// Parse reads a size written with either "." or "," as the decimal separator.
// Values finer than one decimal place, non-positive values and values above
// MaxSize are rejected.
func Parse(s string) (Size, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if raw == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidSize)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	return fromDecimal(d)
}

// FromAny normalizes the loosely typed values found in catalog size lists and request bodies.
func FromAny(v any) (Size, error) {
	switch t := v.(type) {
	case Size:
		return t, nil
	case string:
		return Parse(t)
	case json.Number:
		return Parse(t.String())
	case float64:
		return fromDecimal(decimal.NewFromFloat(t))
	case float32:
		return fromDecimal(decimal.NewFromFloat32(t))
	case int:
		return fromDecimal(decimal.NewFromInt(int64(t)))
	case int64:
		return fromDecimal(decimal.NewFromInt(t))
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidSize, v)
	}
}

func fromDecimal(d decimal.Decimal) (Size, error) {
	scaled := d.Mul(ten)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than one decimal place", ErrInvalidSize, d.String())
	}
	if !scaled.IsPositive() {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidSize, d.String())
	}
	if scaled.GreaterThan(maxScaled) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidSize, d.String())
	}

	return Size(scaled.IntPart()), nil
}

// Normalize converts a raw size list, silently dropping entries that cannot be parsed.
func Normalize(values []any) []Size {
	sizes := make([]Size, 0, len(values))
	for _, v := range values {
		s, err := FromAny(v)
		if err != nil {
			continue
		}
		sizes = append(sizes, s)
	}

	return sizes
}

// String renders the size with exactly one fractional digit.
func (s Size) String() string {
	return decimal.New(int64(s), -1).StringFixed(1)
}

func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (s *Size) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return fmt.Errorf("%w: null", ErrInvalidSize)
	}
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidSize, raw)
		}
		raw = unquoted
	}

	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

func (s Size) Value() (driver.Value, error) {
	return s.String(), nil
}

func (s *Size) Scan(src any) error {
	var (
		parsed Size
		err    error
	)
	switch v := src.(type) {
	case []byte:
		parsed, err = Parse(string(v))
	case nil:
		return fmt.Errorf("%w: null", ErrInvalidSize)
	default:
		parsed, err = FromAny(v)
	}
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}
