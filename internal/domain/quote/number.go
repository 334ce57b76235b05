package quote

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a price or quantity as delivered by the CRM. The backend has sent
// numbers, numeric strings ("10.00", "10,00"), empty strings and null for the
// same field, so decoding never fails: anything unusable is kept as invalid
// and contributes zero to totals.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

// ParseNumber interprets a textual amount. A single decimal comma is accepted.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return Num(v)
}

// Contribution is the value used in sums: invalid or negative numbers count as zero.
func (n Number) Contribution() float64 {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) || n.Value < 0 {
		return 0
	}
	return n.Value
}

// Int is the contribution truncated to an integer, used for quantities.
func (n Number) Int() int {
	return int(n.Contribution())
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*n = Number{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = Number{}
			return nil
		}
		*n = ParseNumber(s)
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			*n = Number{}
			return nil
		}
		*n = Num(v)
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}
