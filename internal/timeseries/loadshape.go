package timeseries

import (
	"fmt"
	"time"
)

// LoadShape distributes a scalar annual load across time. It is a tagged
// variant: either an explicit multiplier series with its own timestamps, or a
// normalized shape tiled over a generated date range.
type LoadShape struct {
	explicit bool
	index    []time.Time
	values   []float64

	shape []float64
	start time.Time
	end   time.Time
	freq  time.Duration
}

// ExplicitShape builds a load shape from a multiplier series and matching
// timestamps.
func ExplicitShape(index []time.Time, values []float64) (LoadShape, error) {
	if len(index) == 0 {
		return LoadShape{}, fmt.Errorf("load shape: empty index")
	}
	if len(index) != len(values) {
		return LoadShape{}, fmt.Errorf("load shape: %d timestamps for %d values", len(index), len(values))
	}
	return LoadShape{explicit: true, index: index, values: values}, nil
}

// RangeShape builds a load shape from a normalized multiplier sequence tiled
// over the inclusive [start, end] range at the given frequency. A shape
// shorter than the range is repeated fully as many times as fits, then the
// remainder is filled with the leading elements of the shape.
func RangeShape(shape []float64, start, end time.Time, freq time.Duration) (LoadShape, error) {
	if len(shape) == 0 {
		return LoadShape{}, fmt.Errorf("load shape: empty shape")
	}
	if freq <= 0 {
		return LoadShape{}, fmt.Errorf("load shape: invalid frequency %v", freq)
	}
	if end.Before(start) {
		return LoadShape{}, fmt.Errorf("load shape: end %v before start %v", end, start)
	}
	return LoadShape{shape: shape, start: start, end: end, freq: freq}, nil
}

// Index returns the timestamps the shape covers.
func (s LoadShape) Index() []time.Time {
	if s.explicit {
		return s.index
	}
	return Range(s.start, s.end, s.freq)
}

// Multipliers returns the per-interval multiplier for every timestamp in
// Index, tiling the shape when generated from a range.
func (s LoadShape) Multipliers() []float64 {
	if s.explicit {
		return s.values
	}
	n := len(s.Index())
	out := make([]float64, n)
	for i := range out {
		out[i] = s.shape[i%len(s.shape)]
	}
	return out
}

// Rollout multiplies each named scalar by the shape, producing one column per
// scalar over the shape's index. Column order follows the given names.
func (s LoadShape) Rollout(names []string, scalars map[string]float64) (*Table, error) {
	index := s.Index()
	mult := s.Multipliers()
	out := New(index)
	for _, name := range names {
		v, ok := scalars[name]
		if !ok {
			return nil, fmt.Errorf("load shape rollout: no scalar for column %q", name)
		}
		col := make([]float64, len(mult))
		for i, m := range mult {
			col[i] = m * v
		}
		if err := out.AddColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}
