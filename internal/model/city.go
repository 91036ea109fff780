// Package model defines the city and per-city metric types shared across the pipeline.
package model

// City is a configured place to aggregate indicators for. Name is the join key
// against emissions rows, fallback rows and boundary NAME attributes.
type City struct {
	Name      string  `json:"name" mapstructure:"name"`
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`
}

// CityNames returns the names of cities in input order.
func CityNames(cities []City) []string {
	names := make([]string, len(cities))
	for i, c := range cities {
		names[i] = c.Name
	}
	return names
}
