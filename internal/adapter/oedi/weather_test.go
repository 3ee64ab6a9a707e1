package oedi

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/county-loads/internal/geo"
)

const weatherFixture = `date_time,Dry Bulb Temperature [°C],Relative Humidity [%],Global Horizontal Radiation [W/m2],Direct Normal Radiation [W/m2],Diffuse Horizontal Radiation [W/m2]
2018-01-01 12:00:00,0.0,55.26,100.0,200.0,50.0
2018-01-01 13:00:00,20.0,40.0,150.0,250.0,60.0
`

func TestWeather(t *testing.T) {
	t.Run("converts units and shifts the index to UTC", func(t *testing.T) {
		var gotPath string
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			io.WriteString(w, weatherFixture) //nolint:errcheck
		}))

		table, err := c.Weather(context.Background(), "CA", "Alameda")
		require.NoError(t, err)

		assert.Equal(t, "/weather/G0600010_2018.csv", gotPath)

		require.Equal(t, 2, table.Len())
		// California is UTC-8 and the archive labels run one hour ahead, so
		// 12:00 shifts back nine hours.
		assert.Equal(t, time.Date(2018, 1, 1, 3, 0, 0, 0, time.UTC), table.Index()[0])

		temp, ok := table.Column("temperature[degF]")
		require.True(t, ok)
		assert.InDelta(t, 32.0, temp[0], 1e-9)
		assert.InDelta(t, 68.0, temp[1], 1e-9)

		hum, ok := table.Column("humidity[%]")
		require.True(t, ok)
		assert.InDelta(t, 55.3, hum[0], 1e-9, "humidity rounds to one decimal")

		direct, ok := table.Column("direct[W/m^2]")
		require.True(t, ok)
		assert.Equal(t, 200.0, direct[0])
	})

	t.Run("caches the transformed table, not the raw archive", func(t *testing.T) {
		requests := 0
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
			io.WriteString(w, weatherFixture) //nolint:errcheck
		}))

		first, err := c.Weather(context.Background(), "CA", "Alameda")
		require.NoError(t, err)
		second, err := c.Weather(context.Background(), "CA", "Alameda")
		require.NoError(t, err)

		assert.Equal(t, 1, requests)
		f, _ := first.Column("temperature[degF]")
		s, _ := second.Column("temperature[degF]")
		assert.Equal(t, f, s)
	})

	t.Run("unknown county fails before any fetch", func(t *testing.T) {
		requests := 0
		c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))

		_, err := c.Weather(context.Background(), "CA", "Nowhere")
		assert.ErrorIs(t, err, geo.ErrUnknownCounty)
		assert.Zero(t, requests)
	})
}

func TestTransformWeatherErrors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"missing date_time", "x,Dry Bulb Temperature\n1,2\n"},
		{"missing channel", "date_time,Dry Bulb Temperature\n2018-01-01 12:00:00,1\n"},
		{"no rows", "date_time\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := transformWeather([]byte(tt.fixture), 8, 2018)
			assert.Error(t, err)
		})
	}
}
