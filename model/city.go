package model

// City is a record returned by the upstream city source.
//
// Only the fields the engines need are modeled. Records are treated as
// immutable once fetched.
type City struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Latitude    Number `json:"latitude"`
	Longitude   Number `json:"longitude"`
	Population  Number `json:"population"`
}

// DisplayName returns Name, falling back to City.
func (c City) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.City
}

// DisplayCountry returns Country, falling back to CountryCode.
func (c City) DisplayCountry() string {
	if c.Country != "" {
		return c.Country
	}
	return c.CountryCode
}

// Slim is the reduced projection of a City kept for storage and output.
type Slim struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	Latitude   Number `json:"latitude"`
	Longitude  Number `json:"longitude"`
	Population Number `json:"population"`
}

// Slim projects c to its slim form.
func (c City) Slim() Slim {
	return Slim{
		ID:         c.ID,
		Name:       c.DisplayName(),
		Country:    c.DisplayCountry(),
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		Population: c.Population,
	}
}

// City converts a slim record back into a City.
func (s Slim) City() City {
	return City{
		ID:         s.ID,
		Name:       s.Name,
		Country:    s.Country,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Population: s.Population,
	}
}

// SlimAll projects every city.
func SlimAll(cities []City) []Slim {
	out := make([]Slim, len(cities))
	for i, c := range cities {
		out[i] = c.Slim()
	}
	return out
}

// UniqueByID returns cities with duplicate IDs removed, keeping the first
// occurrence and the original order.
func UniqueByID(cities []City) []City {
	seen := make(map[int64]struct{}, len(cities))
	out := make([]City, 0, len(cities))
	for _, c := range cities {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
