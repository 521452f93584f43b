package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"chargestation-converter/models"
	"chargestation-converter/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(stations []*models.Station) *models.ConversionReport {
	report := &models.ConversionReport{
		StationsByState: make(map[string]int),
		PlugTypes:       make(map[string]int),
	}

	if len(stations) == 0 {
		return report
	}

	report.TotalStations = len(stations)

	for _, st := range stations {
		if st.Location != nil {
			report.WithLocation++
		} else {
			report.WithoutLocation++
		}

		if st.Address.State != nil {
			report.StationsByState[*st.Address.State]++
		}

		for _, cp := range st.ChargePoints {
			report.TotalChargePoints++
			kw := float64(cp.MaxPowerInKw)
			report.TotalPowerKw += kw
			if kw > report.MaxPowerKw {
				report.MaxPowerKw = kw
			}
			// A slot can list several plugs, e.g. "AC Typ 2, DC CCS".
			for _, plug := range strings.Split(cp.PlugTypes, ",") {
				if plug = strings.TrimSpace(plug); plug != "" {
					report.PlugTypes[plug]++
				}
			}
		}

		d := st.CreationDate
		if report.Earliest == nil || d.Before(report.Earliest.Time) {
			report.Earliest = &d
		}
		if report.Latest == nil || d.After(report.Latest.Time) {
			report.Latest = &d
		}
	}

	report.TotalPowerKw = round2(report.TotalPowerKw)

	s.logger.Debug("[summary] %d stations, %d charge points, %.2f kW total",
		report.TotalStations, report.TotalChargePoints, report.TotalPowerKw)
	return report
}

func (s *SummaryService) Print(w io.Writer, r *models.ConversionReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  CHARGING STATION CONVERSION SUMMARY\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Stations             : %d\n", r.TotalStations)
	fmt.Fprintf(w, "  With location        : %d\n", r.WithLocation)
	fmt.Fprintf(w, "  Without location     : %d\n", r.WithoutLocation)
	if r.Earliest != nil && r.Latest != nil {
		fmt.Fprintf(w, "  Commissioned         : %s … %s\n", r.Earliest, r.Latest)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Charge Points\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalChargePoints > 0 {
		fmt.Fprintf(w, "  Total charge points  : %d\n", r.TotalChargePoints)
		fmt.Fprintf(w, "  Total power          : %.2f kW\n", r.TotalPowerKw)
		fmt.Fprintf(w, "  Max power per point  : %.2f kW\n", r.MaxPowerKw)
	} else {
		fmt.Fprintf(w, "  No charge point data available\n")
	}
	fmt.Fprintln(w)

	printCounts(w, "Stations by State", r.StationsByState, thin)
	printCounts(w, "Plug Types", r.PlugTypes, thin)

	fmt.Fprintf(w, "%s\n\n", sep)
}

func printCounts(w io.Writer, title string, counts map[string]int, thin string) {
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(counts) == 0 {
		fmt.Fprintf(w, "  No data\n\n")
		return
	}

	type entry struct {
		key   string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, entry{k, c})
	}
	// Sort by count descending, then name, so output is stable.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	for _, e := range entries {
		fmt.Fprintf(w, "  %-40s %d\n", truncate(e.key, 38), e.count)
	}
	fmt.Fprintln(w)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
