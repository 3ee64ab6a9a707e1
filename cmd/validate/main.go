// Command validate checks an exported consolidated sector CSV for internal
// consistency: annual coverage, category sums, and the net load identity.
//
// Usage:
//
//	loads CA Alameda residential -o alameda.csv --precision 6
//	go run ./cmd/validate -csv alameda.csv -tolerance 1e-6
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/county-loads/internal/timeseries"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "consolidated sector CSV to validate")
	tolerance := flag.Float64("tolerance", 0.005, "absolute tolerance for sum checks (match the export precision)")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*csvPath, *tolerance))
}

func run(path string, tol float64) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	defer f.Close()

	table, err := timeseries.ReadCSV(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read table: %v\n", err)
		return 1
	}

	fmt.Println("=== Consolidated Load Profile Validation ===")
	fmt.Println()

	phases := []*phase{
		validateCoverage(table),
		validateSchema(table),
		validateCategorySums(table, tol),
		validateNetLoad(table, tol),
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-40s %s\n", p.name, status)
	}
	fmt.Printf("\nRows: %d, columns: %d\n", table.Len(), len(table.Columns()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		max := len(p.errors)
		if max > 20 {
			max = 20
		}
		for i := 0; i < max; i++ {
			fmt.Printf("  [%d] %s\n", i+1, p.errors[i])
		}
		if len(p.errors) > max {
			fmt.Printf("  ... and %d more\n", len(p.errors)-max)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateCoverage checks the annual fold: a full year of rows at a constant
// interval, chronologically ordered, no duplicates, one calendar year.
func validateCoverage(table *timeseries.Table) *phase {
	p := &phase{name: "Phase 1: Annual Coverage"}
	index := table.Index()
	if len(index) < 2 {
		p.errorf("too few rows: %d", len(index))
		return p
	}

	step := index[1].Sub(index[0])
	if step <= 0 {
		p.errorf("index is not increasing at row 2")
		return p
	}
	for i := 1; i < len(index); i++ {
		d := index[i].Sub(index[i-1])
		if d == 0 {
			p.errorf("duplicate timestamp %s at row %d", index[i], i+1)
		} else if d != step {
			p.errorf("irregular interval at row %d: %v, want %v", i+1, d, step)
		}
	}

	year := index[0].Year()
	expected := int(time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC).
		Sub(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)) / step)
	if len(index) != expected {
		p.errorf("row count: expected %d for year %d at %v, got %d", expected, year, step, len(index))
	}
	if last := index[len(index)-1]; last.Year() != year {
		p.errorf("index spans years %d-%d", year, last.Year())
	}
	return p
}

// validateSchema checks the consolidated column set and its ordering.
func validateSchema(table *timeseries.Table) *phase {
	p := &phase{name: "Phase 2: Schema"}
	required := []string{
		"elec_baseload_MW", "elec_cooling_MW", "elec_dg_MW", "elec_heating_MW",
		"elec_net_MW", "elec_total_MW",
		"nonelec_baseload_MW", "nonelec_cooling_MW", "nonelec_heating_MW",
		"nonelec_total_MW",
	}
	for _, name := range required {
		if !table.HasColumn(name) {
			p.errorf("missing column %q", name)
		}
	}
	if table.HasColumn("nonelec_dg_MW") {
		p.errorf("column nonelec_dg_MW should have been dropped")
	}
	cols := table.Columns()
	if !sort.StringsAreSorted(cols) {
		p.errorf("columns are not in alphabetical order: %v", cols)
	}
	return p
}

// validateCategorySums checks that per-carrier category columns sum to the
// carrier total within tolerance. Distributed generation is carried
// separately from the total, so it is excluded from the electric sum.
func validateCategorySums(table *timeseries.Table, tol float64) *phase {
	p := &phase{name: "Phase 3: Category Sums"}
	checkSum(p, table, tol, "elec_total_MW",
		"elec_baseload_MW", "elec_cooling_MW", "elec_heating_MW")
	checkSum(p, table, tol, "nonelec_total_MW",
		"nonelec_baseload_MW", "nonelec_cooling_MW", "nonelec_heating_MW")
	return p
}

// validateNetLoad checks elec_net_MW == elec_total_MW + elec_dg_MW.
func validateNetLoad(table *timeseries.Table, tol float64) *phase {
	p := &phase{name: "Phase 4: Net Load Identity"}
	checkSum(p, table, tol, "elec_net_MW", "elec_total_MW", "elec_dg_MW")
	return p
}

func checkSum(p *phase, table *timeseries.Table, tol float64, total string, parts ...string) {
	totals, ok := table.Column(total)
	if !ok {
		p.errorf("missing column %q", total)
		return
	}
	sum := table.SumOf(parts...)
	for i, want := range totals {
		if math.IsNaN(want) && math.IsNaN(sum[i]) {
			continue
		}
		if math.Abs(want-sum[i]) > tol {
			p.errorf("row %d: %s=%g but parts sum to %g", i+1, total, want, sum[i])
		}
	}
}
