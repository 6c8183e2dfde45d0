package agreement

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Statistic is an agreement coefficient that may be undefined. Undefined
// values are NaN in memory and null on the wire.
type Statistic float64

// Undefined is the value reported when a coefficient is 0/0.
func Undefined() Statistic {
	return Statistic(math.NaN())
}

// Defined reports whether the coefficient has a value.
func (s Statistic) Defined() bool {
	return !math.IsNaN(float64(s)) && !math.IsInf(float64(s), 0)
}

// Float returns the raw value.
func (s Statistic) Float() float64 {
	return float64(s)
}

// Round returns the value rounded to the given number of decimals.
func (s Statistic) Round(decimals int) Statistic {
	if !s.Defined() {
		return s
	}
	p := math.Pow(10, float64(decimals))
	return Statistic(math.Round(float64(s)*p) / p)
}

func (s Statistic) String() string {
	if !s.Defined() {
		return "undefined"
	}
	return strconv.FormatFloat(float64(s), 'f', 3, 64)
}

func (s Statistic) MarshalJSON() ([]byte, error) {
	if !s.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(s))
}

func (s *Statistic) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Statistic(v)
	return nil
}
