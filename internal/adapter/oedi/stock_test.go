package oedi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/observability"
)

const countyFixture = "CA,06,001,Alameda County,H1\nCA,06,075,San Francisco County,H1\n"

// stockFixture is four 15-minute intervals in the aggregate file format:
// naive EST end-of-interval timestamps, energy per interval, and a constant
// stock column. The extra column is not in the dictionary and is dropped.
const stockFixture = `timestamp,out.electricity.total.energy_consumption,out.electricity.cooling.energy_consumption,unmapped,units_represented
2018-01-01 00:15:00,10.0,2.0,99,50.0
2018-01-01 00:30:00,10.0,2.0,99,50.0
2018-01-01 00:45:00,10.0,2.0,99,50.0
2018-01-01 01:00:00,10.0,2.0,99,50.0
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := testLogger()
	store, err := cache.New(t.TempDir(), logger, observability.NewMetricsForTesting())
	require.NoError(t, err)
	fetcher := fetch.NewClient(5*time.Second, logger, observability.NewMetricsForTesting())
	counties, err := geo.ParseCounties([]byte(countyFixture))
	require.NoError(t, err)

	c := NewClient(store, fetcher, counties,
		srv.URL+"/resstock", srv.URL+"/comstock", srv.URL+"/weather", 2018, logger)
	return c, srv
}

func TestResStock(t *testing.T) {
	t.Run("normalizes to watts per unit with UTC index", func(t *testing.T) {
		var gotPath string
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			io.WriteString(w, stockFixture) //nolint:errcheck
		}))

		bl, err := c.ResStock(context.Background(), StockRequest{
			State: "CA", County: "Alameda", BuildingType: "RSD",
		})
		require.NoError(t, err)

		assert.Equal(t, "/resstock/by_county/state=CA/g0600010-single-family_detached.csv", gotPath)
		assert.False(t, bl.Degraded)
		assert.Equal(t, 50.0, bl.Stock)
		assert.Equal(t, "units", bl.StockName)

		require.Equal(t, 4, bl.Table.Len())
		// End-of-interval EST labels shift to top-of-interval UTC: 00:15 EST
		// becomes 05:00 UTC.
		assert.Equal(t, time.Date(2018, 1, 1, 5, 0, 0, 0, time.UTC), bl.Table.Index()[0])

		total, ok := bl.Table.Column("elec_total")
		require.True(t, ok)
		assert.InDelta(t, 200.0, total[0], 1e-9, "10 kWh-equivalent / 50 units * 1000")
		assert.False(t, bl.Table.HasColumn("unmapped"))
	})

	t.Run("resamples to the requested frequency", func(t *testing.T) {
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, stockFixture) //nolint:errcheck
		}))

		bl, err := c.ResStock(context.Background(), StockRequest{
			State: "CA", County: "Alameda", BuildingType: "RSD", Freq: time.Hour,
		})
		require.NoError(t, err)

		require.Equal(t, 1, bl.Table.Len())
		total, _ := bl.Table.Column("elec_total")
		assert.InDelta(t, 800.0, total[0], 1e-9, "per-interval value divided by 0.25h")
	})

	t.Run("statewide request uses the by_state layout", func(t *testing.T) {
		var gotPath string
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			io.WriteString(w, stockFixture) //nolint:errcheck
		}))

		_, err := c.ResStock(context.Background(), StockRequest{State: "CA", BuildingType: "RMH"})
		require.NoError(t, err)
		assert.Equal(t, "/resstock/by_state/state=CA/ca-mobile_home.csv", gotPath)
	})

	t.Run("unknown building type is fatal", func(t *testing.T) {
		c, _ := testClient(t, http.NotFoundHandler())
		_, err := c.ResStock(context.Background(), StockRequest{State: "CA", County: "Alameda", BuildingType: "XXX"})
		assert.ErrorIs(t, err, ErrUnknownBuildingType)
	})

	t.Run("missing county data degrades to a zero table", func(t *testing.T) {
		c, _ := testClient(t, http.NotFoundHandler())

		bl, err := c.ResStock(context.Background(), StockRequest{
			State: "CA", County: "Alameda", BuildingType: "RSD", Freq: time.Hour,
		})
		require.NoError(t, err)

		assert.True(t, bl.Degraded)
		assert.Equal(t, 0.0, bl.Stock)
		require.Equal(t, 8760, bl.Table.Len())
		assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), bl.Table.Index()[0])
		assert.Equal(t, time.Date(2018, 12, 31, 23, 0, 0, 0, time.UTC), bl.Table.Index()[8759])

		total, ok := bl.Table.Column("elec_total")
		require.True(t, ok)
		for _, v := range total {
			require.Zero(t, v)
		}
	})

	t.Run("second call is served from cache", func(t *testing.T) {
		requests := 0
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			io.WriteString(w, stockFixture) //nolint:errcheck
		}))

		req := StockRequest{State: "CA", County: "Alameda", BuildingType: "RSD"}
		first, err := c.ResStock(context.Background(), req)
		require.NoError(t, err)
		second, err := c.ResStock(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 1, requests)
		f, _ := first.Table.Column("elec_total")
		s, _ := second.Table.Column("elec_total")
		assert.Equal(t, f, s)
	})
}

func TestComStock(t *testing.T) {
	fixture := strings.ReplaceAll(stockFixture, "units_represented", "floor_area_represented")

	var gotPath string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, fixture) //nolint:errcheck
	}))

	bl, err := c.ComStock(context.Background(), StockRequest{
		State: "CA", County: "Alameda", BuildingType: "CMW",
	})
	require.NoError(t, err)

	assert.Equal(t, "/comstock/by_county/state=CA/g0600010-warehouse.csv", gotPath)
	assert.Equal(t, "floor_area", bl.StockName)
	assert.Equal(t, 50.0, bl.Stock)
}

func TestParseStockCSVNonConstantStock(t *testing.T) {
	fixture := `timestamp,out.electricity.total.energy_consumption,units_represented
2018-01-01 00:15:00,10.0,40.0
2018-01-01 00:30:00,10.0,60.0
`
	table, stock, err := parseStockCSV(stockDataset{
		name:        "resstock",
		columns:     ResidentialColumns,
		stockColumn: "units_represented",
	}, []byte(fixture), StockRequest{State: "CA", County: "Alameda", BuildingType: "RSD"}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 60.0, stock, "max wins when the driver varies")
	total, _ := table.Column("elec_total")
	assert.InDelta(t, 10.0/60.0*1000, total[0], 1e-9)
}

func TestParseStockCSVZeroStock(t *testing.T) {
	fixture := `timestamp,out.electricity.total.energy_consumption,units_represented
2018-01-01 00:15:00,10.0,0.0
2018-01-01 00:30:00,10.0,0.0
`
	table, stock, err := parseStockCSV(stockDataset{
		name:        "resstock",
		columns:     ResidentialColumns,
		stockColumn: "units_represented",
	}, []byte(fixture), StockRequest{}, testLogger())
	require.NoError(t, err)

	assert.Zero(t, stock)
	total, _ := table.Column("elec_total")
	assert.Equal(t, []float64{0, 0}, total, "zero stock yields zeros, not NaN")
}

func TestParseStockCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"missing timestamp column", "x,units_represented\n1,2\n"},
		{"missing stock column", "timestamp,x\n2018-01-01 00:15:00,1\n"},
		{"bad timestamp", "timestamp,units_represented\nnot-a-time,1\n"},
		{"no rows", "timestamp,units_represented\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseStockCSV(stockDataset{
				columns:     ResidentialColumns,
				stockColumn: "units_represented",
			}, []byte(tt.fixture), StockRequest{}, testLogger())
			assert.Error(t, err)
		})
	}
}

func TestZeroStockCSVShape(t *testing.T) {
	data := zeroStockCSV(stockDataset{
		columns:     map[string]string{"out.a": "a", "out.b": "b"},
		stockColumn: "units_represented",
	}, 2018, time.Hour)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 8761, "header plus one row per hour")
	assert.Equal(t, "timestamp,out.a,out.b,units_represented", lines[0])
	assert.Equal(t, "2018-01-01 00:15:00,0.0,0.0,0.0", lines[1])
	assert.Equal(t, fmt.Sprintf("%s,0.0,0.0,0.0", "2018-12-31 23:15:00"), lines[8760])
}
