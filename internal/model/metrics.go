package model

// CityMetrics is one output row. TRIFacilities is never absent and starts at 0.
type CityMetrics struct {
	City          string
	Latitude      float64
	Longitude     float64
	PM25          NullFloat
	CO2           NullFloat
	TRIFacilities int

	// PM25Source names the resolver that supplied PM25 ("" when missing).
	PM25Source string
}
