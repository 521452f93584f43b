package storage

import "chargestation-converter/models"

// StationWriter is the interface any output backend must satisfy.
type StationWriter interface {
	Write(stations []*models.Station) error
	Close() error
}

// RawRecordReader is the interface for sources of unprocessed rows.
type RawRecordReader interface {
	Header() []string
	Next() (models.RawRecord, error)
	Close() error
}

var (
	_ StationWriter   = (*JSONWriter)(nil)
	_ RawRecordReader = (*CSVReader)(nil)
)
