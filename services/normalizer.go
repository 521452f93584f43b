package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"chargestation-converter/models"
	"chargestation-converter/utils"
)

// Source column names of the Bundesnetzagentur charging station register.
const (
	colOperator       = "Betreiber"
	colStreet         = "Straße"
	colStreetNumber   = "Hausnummer"
	colAdditionalInfo = "Adresszusatz"
	colPostcode       = "Postleitzahl"
	colCity           = "Ort"
	colState          = "Bundesland"
	colDistrict       = "Kreis/kreisfreie Stadt"
	colLatitude       = "Breitengrad"
	colLongitude      = "Längengrad"
	colType           = "Art der Ladeeinrichung"
	colCreationDate   = "Inbetriebnahmedatum"
	colConnectedLoad  = "Anschlussleistung"
	colChargePoints   = "Anzahl Ladepunkte"
)

// chargePointSlots is the number of P{n} [kW] / Steckertypen{n} column pairs.
const chargePointSlots = 3

// creationDateLayout accepts "05.03.14" as well as "5.3.14".
const creationDateLayout = "2.1.06"

var (
	ErrMissingColumns      = errors.New("missing required columns")
	ErrMissingCreationDate = errors.New("creation date is empty")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidNumber       = errors.New("invalid number")
)

// RequiredColumns lists every header column the normalizer reads or drops.
func RequiredColumns() []string {
	cols := []string{
		colOperator, colStreet, colStreetNumber, colAdditionalInfo, colPostcode,
		colCity, colState, colDistrict, colLatitude, colLongitude, colType,
		colCreationDate, colConnectedLoad, colChargePoints,
	}
	for i := 1; i <= 4; i++ {
		cols = append(cols, fmt.Sprintf("Public Key%d", i))
	}
	for i := 1; i <= chargePointSlots; i++ {
		cols = append(cols, powerColumn(i))
	}
	for i := 1; i <= chargePointSlots; i++ {
		cols = append(cols, plugColumn(i))
	}
	return cols
}

func powerColumn(slot int) string { return fmt.Sprintf("P%d [kW]", slot) }
func plugColumn(slot int) string  { return fmt.Sprintf("Steckertypen%d", slot) }

// ValidateHeader reports all required columns absent from header at once.
func ValidateHeader(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}

	var missing []string
	for _, col := range RequiredColumns() {
		if _, ok := present[col]; !ok {
			missing = append(missing, strconv.Quote(col))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// RowError locates a structural error in the input.
type RowError struct {
	Line   int
	ID     int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d (id %d), column %q: %v", e.Line, e.ID, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Normalizer turns raw register rows into Stations.
type Normalizer struct {
	logger      *utils.Logger
	workers     int
	skipInvalid bool
}

// NormalizerOptions configures NormalizeAll.
type NormalizerOptions struct {
	Workers         int
	SkipInvalidRows bool
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger, opts NormalizerOptions) *Normalizer {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Normalizer{logger: logger, workers: workers, skipInvalid: opts.SkipInvalidRows}
}

// Transform maps one raw row to a Station carrying the given id.
func (n *Normalizer) Transform(id int, rec models.RawRecord) (*models.Station, error) {
	fail := func(column string, err error) (*models.Station, error) {
		return nil, &RowError{Line: rec.Line, ID: id, Column: column, Err: err}
	}

	st := &models.Station{
		ID:       id,
		Operator: nullable(rec.Get(colOperator)),
		Type:     nullable(rec.Get(colType)),
	}

	created := nullable(rec.Get(colCreationDate))
	if created == nil {
		return fail(colCreationDate, ErrMissingCreationDate)
	}
	date, err := parseCreationDate(*created)
	if err != nil {
		return fail(colCreationDate, err)
	}
	st.CreationDate = date

	// The nested location needs both coordinates; the flat columns are
	// consumed either way.
	lat, lon := nullable(rec.Get(colLatitude)), nullable(rec.Get(colLongitude))
	if lat != nil && lon != nil {
		latitude, err := parseDecimalComma(*lat)
		if err != nil {
			return fail(colLatitude, err)
		}
		longitude, err := parseDecimalComma(*lon)
		if err != nil {
			return fail(colLongitude, err)
		}
		st.Location = &models.Location{Latitude: latitude, Longitude: longitude}
	}

	st.Address = models.Address{
		Street:         nullable(rec.Get(colStreet)),
		StreetNumber:   nullable(rec.Get(colStreetNumber)),
		AdditionalInfo: nullable(rec.Get(colAdditionalInfo)),
		Postcode:       nullable(rec.Get(colPostcode)),
		City:           nullable(rec.Get(colCity)),
		State:          nullable(rec.Get(colState)),
		District:       nullable(rec.Get(colDistrict)),
	}

	st.ChargePoints = make([]models.ChargePoint, 0, chargePointSlots)
	for slot := 1; slot <= chargePointSlots; slot++ {
		power, plugs := nullable(rec.Get(powerColumn(slot))), nullable(rec.Get(plugColumn(slot)))
		if power == nil || plugs == nil {
			continue
		}
		kw, err := parseDecimalComma(*power)
		if err != nil {
			return fail(powerColumn(slot), err)
		}
		st.ChargePoints = append(st.ChargePoints, models.ChargePoint{
			PlugTypes:    *plugs,
			MaxPowerInKw: kw,
		})
	}

	return st, nil
}

// NormalizeAll transforms rows with ids taken from their input position
// (1-based), independent of the order in which workers finish. Invalid
// rows abort the run unless skipping is enabled, in which case they are
// logged and left out; the remaining ids keep their positions.
func (n *Normalizer) NormalizeAll(ctx context.Context, rows []models.RawRecord) ([]*models.Station, []error, error) {
	results := make([]*models.Station, len(rows))
	errs := make([]error, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)

	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			st, err := n.Transform(i+1, rows[i])
			if err != nil {
				errs[i] = err
				if n.skipInvalid {
					return nil
				}
				return err
			}
			results[i] = st
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Report the earliest failing row, not whichever worker lost the race.
		for _, e := range errs {
			if e != nil {
				return nil, nil, fmt.Errorf("normalizer: %w", e)
			}
		}
		return nil, nil, fmt.Errorf("normalizer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("normalizer: %w", err)
	}

	stations := make([]*models.Station, 0, len(rows))
	var skipped []error
	for i, st := range results {
		if errs[i] != nil {
			n.logger.Warn("[normalizer] Skipping invalid row: %v", errs[i])
			skipped = append(skipped, errs[i])
			continue
		}
		stations = append(stations, st)
	}

	n.logger.Info("[normalizer] Normalized %d → %d stations (skipped %d)",
		len(rows), len(stations), len(skipped))
	return stations, skipped, nil
}

// nullable returns nil for blank values and a pointer to the untouched
// value otherwise.
func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func parseCreationDate(raw string) (models.Date, error) {
	t, err := time.Parse(creationDateLayout, raw)
	if err != nil {
		return models.Date{}, fmt.Errorf("%w %q: want day.month.yy", ErrInvalidDate, raw)
	}
	return models.NewDate(t.Year(), t.Month(), t.Day()), nil
}

// parseDecimalComma parses a number written with a decimal comma.
func parseDecimalComma(raw string) (models.Float, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w %q", ErrInvalidNumber, raw)
	}
	return models.Float(f), nil
}
