package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"chargestation-converter/config"
	"chargestation-converter/metrics"
)

const preamble = "Ladesäulenregister\n" +
	"Stand: 01.03.2023\n" +
	"Quelle: Bundesnetzagentur\n" +
	"Lizenz: CC-BY 4.0\n" +
	"\n"

// writeRegister writes a register file with the standard preamble, the
// required header (plus P4/Steckertypen4) and one line per row.
func writeRegister(t *testing.T, dir string, rows ...map[string]string) string {
	t.Helper()

	header := append(RequiredColumns(), "P4 [kW]", "Steckertypen4")
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString(strings.Join(header, ";") + "\n")
	for _, row := range rows {
		fields := make([]string, len(header))
		for i, col := range header {
			fields[i] = row[col]
		}
		b.WriteString(strings.Join(fields, ";") + "\n")
	}

	path := filepath.Join(dir, "ladesaeulen.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func testConfig(dir string) *config.Config {
	cfg := config.Defaults()
	cfg.OutputPath = filepath.Join(dir, "output.json")
	return cfg
}

const sampleJSON = `[
    {
        "address":{
            "additionalInfo":null,
            "city":"Berlin",
            "district":"Berlin",
            "postcode":"12345",
            "state":"Berlin",
            "street":"Main St",
            "streetNumber":"1"
        },
        "chargePoints":[
            {
                "maxPowerInKw":22.0,
                "plugTypes":"Typ2"
            }
        ],
        "creationDate":"2020-01-01",
        "id":1,
        "location":{
            "latitude":52.52,
            "longitude":13.4
        },
        "operator":"ACME",
        "type":"Normal"
    }
]`

func TestConverterSampleStation(t *testing.T) {
	dir := t.TempDir()
	input := writeRegister(t, dir, sampleRow())
	cfg := testConfig(dir)

	reg := metrics.NewRegistry()
	out, err := NewConverter(cfg, newTestLogger(t), reg, &bytes.Buffer{}).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !filepath.IsAbs(out) {
		t.Errorf("output path %q is not absolute", out)
	}

	got, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != sampleJSON {
		t.Errorf("output mismatch:\n got: %s\nwant: %s", got, sampleJSON)
	}

	if v := testutil.ToFloat64(reg.RowsRead); v != 1 {
		t.Errorf("rows read metric: got %v, want 1", v)
	}
	if v := testutil.ToFloat64(reg.StationsWritten); v != 1 {
		t.Errorf("stations written metric: got %v, want 1", v)
	}
}

func TestConverterIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	second := sampleRow()
	second["Breitengrad"] = ""
	second["P1 [kW]"], second["Steckertypen1"] = "", ""
	second["P2 [kW]"], second["Steckertypen2"] = "50", "DC Kupplung Combo"
	input := writeRegister(t, dir, sampleRow(), second, sampleRow())
	cfg := testConfig(dir)

	run := func() []byte {
		if _, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input); err != nil {
			t.Fatalf("Run: %v", err)
		}
		b, err := os.ReadFile(cfg.OutputPath)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		return b
	}

	first := run()
	if again := run(); !bytes.Equal(first, again) {
		t.Error("two runs over the same input produced different output")
	}

	out := string(first)
	for _, want := range []string{`"id":1,`, `"id":2,`, `"id":3,`, `"plugTypes":"DC Kupplung Combo"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
	for _, gone := range []string{"Breitengrad", "Längengrad", "Anschlussleistung", "Public Key", "P4 [kW]", `""`} {
		if strings.Contains(out, gone) {
			t.Errorf("output must not contain %q", gone)
		}
	}
	if strings.Count(out, `"location"`) != 2 {
		t.Errorf("expected location on 2 of 3 stations")
	}
}

func TestConverterMissingColumnWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.csv")
	content := preamble + "Betreiber;Ort\nACME;Berlin\n"
	if err := os.WriteFile(input, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig(dir)

	_, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input)
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("got %v, want ErrMissingColumns", err)
	}
	if _, err := os.Stat(cfg.OutputPath); !os.IsNotExist(err) {
		t.Errorf("output file should not exist after a failed run")
	}
}

func TestConverterInvalidRowKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	if err := os.WriteFile(cfg.OutputPath, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	bad := sampleRow()
	bad["Inbetriebnahmedatum"] = "2020-01-01"
	input := writeRegister(t, dir, sampleRow(), bad)

	_, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input)
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got %v, want ErrInvalidDate", err)
	}
	got, _ := os.ReadFile(cfg.OutputPath)
	if string(got) != "[]" {
		t.Errorf("previous output was modified: %s", got)
	}
}

func TestConverterSkipInvalidRows(t *testing.T) {
	dir := t.TempDir()
	bad := sampleRow()
	bad["P1 [kW]"] = "zweiundzwanzig"
	input := writeRegister(t, dir, bad, sampleRow())
	cfg := testConfig(dir)
	cfg.SkipInvalidRows = true
	cfg.MetricsTextfile = filepath.Join(dir, "converter.prom")

	reg := metrics.NewRegistry()
	if _, err := NewConverter(cfg, newTestLogger(t), reg, &bytes.Buffer{}).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := os.ReadFile(cfg.OutputPath)
	if strings.Contains(string(got), `"id":1,`) || !strings.Contains(string(got), `"id":2,`) {
		t.Errorf("expected only station 2 in output:\n%s", got)
	}
	if v := testutil.ToFloat64(reg.RowsSkipped); v != 1 {
		t.Errorf("rows skipped metric: got %v, want 1", v)
	}

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(prom), "chargestation_rows_skipped_total 1") {
		t.Errorf("textfile missing skipped counter:\n%s", prom)
	}
}

func TestConverterPrintsSummaryWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	input := writeRegister(t, dir, sampleRow())
	cfg := testConfig(dir)
	cfg.PrintSummary = true

	var stdout bytes.Buffer
	if _, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &stdout).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(stdout.String(), "CHARGING STATION CONVERSION SUMMARY") {
		t.Errorf("summary not printed:\n%s", stdout.String())
	}
}

func TestConverterEmptyRegister(t *testing.T) {
	dir := t.TempDir()
	input := writeRegister(t, dir)
	cfg := testConfig(dir)

	if _, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := os.ReadFile(cfg.OutputPath)
	if string(got) != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestConverterEscapesNonASCIIByDefault(t *testing.T) {
	dir := t.TempDir()
	row := sampleRow()
	row["Ort"] = "Düsseldorf"
	row["Straße"] = "Königsallee"
	input := writeRegister(t, dir, row)
	cfg := testConfig(dir)

	if _, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, want := range []string{`"city":"D\u00fcsseldorf"`, `"street":"K\u00f6nigsallee"`} {
		if !strings.Contains(string(got), want) {
			t.Errorf("output missing %s:\n%s", want, got)
		}
	}

	cfg.JSONEscapeNonASCII = false
	if _, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ = os.ReadFile(cfg.OutputPath)
	if !strings.Contains(string(got), `"city":"Düsseldorf"`) {
		t.Errorf("raw UTF-8 expected with escaping disabled:\n%s", got)
	}
}

func TestConverterResolvesSymlinkedOutputPath(t *testing.T) {
	dir := t.TempDir()
	realDir := filepath.Join(dir, "real")
	if err := os.Mkdir(realDir, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(realDir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	input := writeRegister(t, dir, sampleRow())
	cfg := testConfig(dir)
	cfg.OutputPath = filepath.Join(link, "output.json")

	out, err := NewConverter(cfg, newTestLogger(t), metrics.NewRegistry(), &bytes.Buffer{}).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want, err := filepath.EvalSymlinks(filepath.Join(realDir, "output.json"))
	if err != nil {
		t.Fatal(err)
	}
	if out != want {
		t.Errorf("output path: got %q, want %q", out, want)
	}
}
