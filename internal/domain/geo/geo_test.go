package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("zero for identical points", func(t *testing.T) {
		assert.Zero(t, Distance(37.5665, 126.9780, 37.5665, 126.9780))
	})

	t.Run("symmetric", func(t *testing.T) {
		d1 := Distance(37.5665, 126.9780, 35.1796, 129.0756)
		d2 := Distance(35.1796, 129.0756, 37.5665, 126.9780)
		assert.InDelta(t, d1, d2, 1e-9)
	})

	t.Run("one degree of latitude is about 111km", func(t *testing.T) {
		d := Distance(0, 0, 1, 0)
		assert.InDelta(t, 111.19, d, 0.5)
	})

	t.Run("seoul to busan is about 325km", func(t *testing.T) {
		d := Distance(37.5665, 126.9780, 35.1796, 129.0756)
		assert.InDelta(t, 325, d, 10)
	})
}

func TestDistanceBetween(t *testing.T) {
	a := Point{Lat: 37.5665, Lon: 126.9780}
	b := Point{Lat: 37.5700, Lon: 126.9820}
	assert.Equal(t, Distance(a.Lat, a.Lon, b.Lat, b.Lon), DistanceBetween(a, b))
	assert.Less(t, DistanceBetween(a, b), 1.0)
}
