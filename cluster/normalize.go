package cluster

import (
	"math"

	"github.com/hupe1980/geocluster/model"
)

// Dim is the number of features per point: latitude, longitude and
// log-scaled population.
const Dim = 3

// Features returns the raw feature vector of c before scaling. Invalid
// numbers count as 0; population becomes log(population+1) and negative
// populations are treated as 0.
func Features(c model.City) [Dim]float64 {
	pop := math.Max(c.Population.Float(), 0)
	return [Dim]float64{
		c.Latitude.Float(),
		c.Longitude.Float(),
		math.Log(pop + 1),
	}
}

// Normalize builds the PointBuffer of cities: every feature is min-max scaled
// to [0,1] over the dataset. A feature with zero range is divided by 1.
//
// The result depends only on the input, so normalizing the same cities twice
// yields bit-identical buffers.
func Normalize(cities []model.City) PointBuffer {
	n := len(cities)
	buf := make(PointBuffer, n*Dim)
	if n == 0 {
		return buf
	}

	var lo, hi [Dim]float64
	for d := range Dim {
		lo[d] = math.Inf(1)
		hi[d] = math.Inf(-1)
	}

	for i, c := range cities {
		f := Features(c)
		copy(buf[i*Dim:(i+1)*Dim], f[:])
		for d := range Dim {
			lo[d] = math.Min(lo[d], f[d])
			hi[d] = math.Max(hi[d], f[d])
		}
	}

	var span [Dim]float64
	for d := range Dim {
		span[d] = hi[d] - lo[d]
		if span[d] == 0 {
			span[d] = 1
		}
	}

	for i := 0; i < n; i++ {
		p := buf[i*Dim : (i+1)*Dim]
		for d := range Dim {
			p[d] = (p[d] - lo[d]) / span[d]
		}
	}

	return buf
}
