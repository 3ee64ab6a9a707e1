package nrel

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
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

// energyFixture is deliberately unsorted. FIPS 6003 is not a valid county, so
// its load folds into the preceding county in FIPS order, and San Francisco
// (6075) has no row at all.
const energyFixture = `fips_matching,Net_electricity,Natural_gas,Diesel,Coal,Ethanol
6003,2.0,0.0,0.0,0.0,9.0
6001,10.0,20.0,0.0,0.0,9.0
6001,0.0,0.0,5.0,1.0,9.0
`

func gzipped(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testEnergyClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := cache.New(t.TempDir(), logger, observability.NewMetricsForTesting())
	require.NoError(t, err)
	fetcher := fetch.NewClient(5*time.Second, logger, observability.NewMetricsForTesting())
	counties, err := geo.ParseCounties([]byte(countyFixture))
	require.NoError(t, err)

	return NewClient(store, fetcher, counties,
		srv.URL+"/industry.csv.gz", srv.URL+"/agriculture.csv.gz", logger)
}

func TestIndustry(t *testing.T) {
	t.Run("sums fuels and converts to average MW", func(t *testing.T) {
		c := testEnergyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(gzipped(t, energyFixture)) //nolint:errcheck
		}))

		load, err := c.Industry(context.Background(), "CA", "Alameda")
		require.NoError(t, err)

		// Both 6001 rows plus the orphan 6003 row. Ethanol is not a tracked
		// fuel and Coal is non-electric.
		assert.InDelta(t, (10.0+2.0)*tbtuToMW, load.NetElectricMW, 1e-9)
		assert.InDelta(t, (20.0+5.0+1.0)*tbtuToMW, load.NonElectricMW, 1e-9)
	})

	t.Run("counties without rows inherit the preceding load", func(t *testing.T) {
		c := testEnergyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write(gzipped(t, energyFixture)) //nolint:errcheck
		}))

		load, err := c.Industry(context.Background(), "CA", "San Francisco")
		require.NoError(t, err)

		// The last row before 6075 in FIPS order is the orphan 6003 row.
		assert.InDelta(t, 2.0*tbtuToMW, load.NetElectricMW, 1e-9)
		assert.Zero(t, load.NonElectricMW)
	})

	t.Run("accepts an uncompressed source", func(t *testing.T) {
		c := testEnergyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, energyFixture) //nolint:errcheck
		}))

		load, err := c.Industry(context.Background(), "CA", "Alameda")
		require.NoError(t, err)
		assert.InDelta(t, 12.0*tbtuToMW, load.NetElectricMW, 1e-9)
	})

	t.Run("source is fetched once for all counties", func(t *testing.T) {
		requests := 0
		c := testEnergyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			w.Write(gzipped(t, energyFixture)) //nolint:errcheck
		}))

		_, err := c.Industry(context.Background(), "CA", "Alameda")
		require.NoError(t, err)
		_, err = c.Industry(context.Background(), "CA", "San Francisco")
		require.NoError(t, err)

		assert.Equal(t, 1, requests)
	})

	t.Run("unknown county fails before any fetch", func(t *testing.T) {
		requests := 0
		c := testEnergyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))

		_, err := c.Industry(context.Background(), "CA", "Nowhere")
		assert.ErrorIs(t, err, geo.ErrUnknownCounty)
		assert.Zero(t, requests)
	})
}

func TestAgriculture(t *testing.T) {
	var gotPath string
	c := testEnergyClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(gzipped(t, energyFixture)) //nolint:errcheck
	}))

	load, err := c.Agriculture(context.Background(), "CA", "Alameda")
	require.NoError(t, err)

	assert.Equal(t, "/agriculture.csv.gz", gotPath)
	// Coal is not part of the agriculture fuel set.
	assert.InDelta(t, 12.0*tbtuToMW, load.NetElectricMW, 1e-9)
	assert.InDelta(t, (20.0+5.0)*tbtuToMW, load.NonElectricMW, 1e-9)
}

func TestNormalizeSourceSortsByFIPS(t *testing.T) {
	out, err := normalizeSource([]byte(energyFixture))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	require.Len(t, lines, 4)
	assert.True(t, bytes.HasPrefix(lines[1], []byte("6001,")))
	assert.True(t, bytes.HasPrefix(lines[3], []byte("6003,")))
}

func TestNormalizeSourceErrors(t *testing.T) {
	_, err := normalizeSource([]byte("no_fips_column,x\n1,2\n"))
	assert.Error(t, err)
	_, err = normalizeSource([]byte("fips_matching\n"))
	assert.Error(t, err)
}
