package openei

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/county-loads/internal/adapter/cache"
	"github.com/couchcryptid/county-loads/internal/adapter/fetch"
	"github.com/couchcryptid/county-loads/internal/geo"
	"github.com/couchcryptid/county-loads/internal/observability"
)

const countyFixture = "CA,06,001,Alameda County,H1\nCA,06,075,San Francisco County,H1\n"

// inventoryWorkbook builds a regional workbook's County sheet. Rows with a
// missing prototype or an unparseable area are noise the reducer must skip.
func inventoryWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetName("Sheet1", "County"))

	all := append([][]interface{}{
		{"statecode", "countyid", "county_name", "doe_prototype", "area_sum"},
	}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("County", cell, &row))
	}

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func testAreaClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := cache.New(t.TempDir(), logger, observability.NewMetricsForTesting())
	require.NoError(t, err)
	fetcher := fetch.NewClient(5*time.Second, logger, observability.NewMetricsForTesting())
	counties, err := geo.ParseCounties([]byte(countyFixture))
	require.NoError(t, err)

	return NewClient(store, fetcher, counties, srv.URL, logger)
}

// regionHandler serves the West workbook with California data and a minimal
// workbook for the other four regions, recording every path requested.
func regionHandler(t *testing.T, paths *[]string) http.Handler {
	west := inventoryWorkbook(t, [][]interface{}{
		{"CA", "6001", "Alameda", "office", "1,000"},
		{"CA", "6001", "Alameda", "office", "500"},
		{"CA", "6001", "Alameda", "warehouse", "200"},
		{"CA", "6001", "Alameda", "no_match", "50"},
		{"CA", "6075", "San Francisco", "office", "999"},
		{"WA", "53033", "King", "office", "777"},
		{"CA", "6001", "Alameda", "", "123"},
		{"CA", "6001", "Alameda", "retail", "n/a"},
	})
	other := inventoryWorkbook(t, [][]interface{}{
		{"TX", "48201", "Harris", "office", "100"},
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*paths = append(*paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "West") {
			w.Write(west) //nolint:errcheck
			return
		}
		w.Write(other) //nolint:errcheck
	})
}

func TestFloorAreas(t *testing.T) {
	t.Run("groups prototypes and filters to the county", func(t *testing.T) {
		var paths []string
		c := testAreaClient(t, regionHandler(t, &paths))

		areas, err := c.FloorAreas(context.Background(), "CA", "Alameda", 0)
		require.NoError(t, err)

		// One workbook per census region, at the default release year.
		require.Len(t, paths, 5)
		assert.Contains(t, paths, "/2019 Commercial Building Inventory - West.xlsx")
		assert.Contains(t, paths, "/2019 Commercial Building Inventory - Midwest.xlsx")

		require.Len(t, areas, 3)
		assert.Equal(t, []string{"CSO", "CMO", "CLO"}, areas[0].Codes)
		assert.Equal(t, 1500.0, areas[0].Area, "duplicate prototype rows are summed")
		assert.Equal(t, []string{"CMW"}, areas[1].Codes)
		assert.Equal(t, 200.0, areas[1].Area)
		assert.Empty(t, areas[2].Codes, "no_match carries area but no codes")
		assert.Equal(t, 50.0, areas[2].Area)
	})

	t.Run("second county reuses the nationwide cache", func(t *testing.T) {
		var paths []string
		c := testAreaClient(t, regionHandler(t, &paths))

		_, err := c.FloorAreas(context.Background(), "CA", "Alameda", 0)
		require.NoError(t, err)
		areas, err := c.FloorAreas(context.Background(), "CA", "San Francisco", 0)
		require.NoError(t, err)

		assert.Len(t, paths, 5, "no refetch for the second county")
		require.Len(t, areas, 1)
		assert.Equal(t, 999.0, areas[0].Area)
	})

	t.Run("unknown county fails before any fetch", func(t *testing.T) {
		var paths []string
		c := testAreaClient(t, regionHandler(t, &paths))

		_, err := c.FloorAreas(context.Background(), "CA", "Nowhere", 0)
		assert.ErrorIs(t, err, geo.ErrUnknownCounty)
		assert.Empty(t, paths)
	})
}
