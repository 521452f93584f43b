package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar date format used in the JSON output.
const DateLayout = "2006-01-02"

// RawRecord holds one unprocessed row of the source table, keyed by the
// German column names of the header row.
type RawRecord struct {
	Line   int
	Values map[string]string
}

// Get returns the raw value of column, or "" when the row has no such column.
func (r RawRecord) Get(column string) string {
	return r.Values[column]
}

// Station is the normalized record written to JSON.
// Fields are declared in lexicographic order of their JSON keys, so the
// encoder emits sorted keys.
type Station struct {
	Address      Address       `json:"address"`
	ChargePoints []ChargePoint `json:"chargePoints"`
	CreationDate Date          `json:"creationDate"`
	ID           int           `json:"id"`
	Location     *Location     `json:"location,omitempty"`
	Operator     *string       `json:"operator"`
	Type         *string       `json:"type"`
}

// Address is always present. Every field is null when the source cell was blank.
type Address struct {
	AdditionalInfo *string `json:"additionalInfo"`
	City           *string `json:"city"`
	District       *string `json:"district"`
	Postcode       *string `json:"postcode"`
	State          *string `json:"state"`
	Street         *string `json:"street"`
	StreetNumber   *string `json:"streetNumber"`
}

type Location struct {
	Latitude  Float `json:"latitude"`
	Longitude Float `json:"longitude"`
}

type ChargePoint struct {
	MaxPowerInKw Float  `json:"maxPowerInKw"`
	PlugTypes    string `json:"plugTypes"`
}

// Date is a calendar date without time of day.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("models: zero date is not serializable")
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// Float is a float64 that always keeps a fractional part or an exponent
// in JSON ("22.0", "13.4", "1e+16").
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("models: non-finite float %v is not serializable", v)
	}
	return []byte(formatFloat(v)), nil
}

// formatFloat follows the shortest round-trip representation with
// scientific notation for exponents below -4 or at/above 16.
func formatFloat(v float64) string {
	if v == 0 {
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
