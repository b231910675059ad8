package geo

// Accumulator keeps a running great-circle distance over a sequence of
// positions. Only the previous position is retained.
type Accumulator struct {
	totalKm float64
	prevLat float64
	prevLon float64
	hasPrev bool
}

// Add records a position and returns the distance added, in km. The first
// position only seeds the reference.
func (a *Accumulator) Add(lat, lon float64) float64 {
	if !a.hasPrev {
		a.prevLat, a.prevLon, a.hasPrev = lat, lon, true
		return 0
	}
	d := HaversineKm(a.prevLat, a.prevLon, lat, lon)
	a.totalKm += d
	a.prevLat, a.prevLon = lat, lon
	return d
}

// Reseed drops the previous position so the next Add only seeds. The
// total is kept.
func (a *Accumulator) Reseed() {
	a.hasPrev = false
}

// Last returns the reference position, if any.
func (a *Accumulator) Last() (lat, lon float64, ok bool) {
	return a.prevLat, a.prevLon, a.hasPrev
}

// TotalKm returns the accumulated distance.
func (a *Accumulator) TotalKm() float64 { return a.totalKm }

// Reset clears the total and the previous position.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}
