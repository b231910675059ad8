package location

import "github.com/relabs-tech/activity_computer/internal/geo"

// throttle drops fixes that arrive sooner or closer than WatchOptions
// allows, relative to the last delivered fix.
type throttle struct {
	opts WatchOptions
	last Fix
	has  bool
}

func (t *throttle) allow(f Fix) bool {
	if !t.has {
		t.last, t.has = f, true
		return true
	}
	if t.opts.TimeInterval > 0 && f.Timestamp.Sub(t.last.Timestamp) < t.opts.TimeInterval {
		return false
	}
	if t.opts.DistanceInterval > 0 {
		meters := geo.HaversineKm(t.last.Latitude, t.last.Longitude, f.Latitude, f.Longitude) * 1000
		if meters < t.opts.DistanceInterval {
			return false
		}
	}
	t.last = f
	return true
}
