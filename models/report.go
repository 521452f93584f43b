package models

// ConversionReport holds aggregate figures over one run's stations.
type ConversionReport struct {
	TotalStations     int
	WithLocation      int
	WithoutLocation   int
	TotalChargePoints int
	TotalPowerKw      float64
	MaxPowerKw        float64
	Earliest          *Date
	Latest            *Date
	StationsByState   map[string]int
	PlugTypes         map[string]int
}
