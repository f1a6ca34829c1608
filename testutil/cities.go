package testutil

import (
	"fmt"
	"math"

	"github.com/hupe1980/geocluster/model"
)

// Cities generates n cities uniformly distributed over the globe with
// populations between 1 and 10^7. Ids are 1..n.
func (r *RNG) Cities(n int) []model.City {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.City, n)
	for i := range out {
		out[i] = model.City{
			ID:          int64(i + 1),
			Name:        fmt.Sprintf("City %d", i+1),
			Country:     "Testland",
			CountryCode: "TL",
			Latitude:    model.Num(-90 + r.rand.Float64()*180),
			Longitude:   model.Num(-180 + r.rand.Float64()*360),
			Population:  model.Num(math.Floor(math.Pow(10, r.rand.Float64()*7))),
		}
	}
	return out
}

// ClusteredCities generates num cities split round-robin into groups. Group g
// is centred at latitude -60+g*120/(groups) and longitude -150+g*300/groups
// with a fixed population of 1000*(g+1); spread is the maximum coordinate
// deviation in degrees.
func (r *RNG) ClusteredCities(num, groups int, spread float64) []model.City {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.City, num)
	for i := range out {
		g := i % groups
		lat := -60 + float64(g)*120/float64(groups)
		lon := -150 + float64(g)*300/float64(groups)
		out[i] = model.City{
			ID:         int64(i + 1),
			Name:       fmt.Sprintf("G%d-%d", g, i),
			Country:    fmt.Sprintf("Group %d", g),
			Latitude:   model.Num(lat + (r.rand.Float64()*2-1)*spread),
			Longitude:  model.Num(lon + (r.rand.Float64()*2-1)*spread),
			Population: model.Num(float64(1000 * (g + 1))),
		}
	}
	return out
}

// Group returns the group index encoded by ClusteredCities in the city name.
func Group(c model.City) int {
	var g, i int
	if _, err := fmt.Sscanf(c.Name, "G%d-%d", &g, &i); err != nil {
		return -1
	}
	return g
}
