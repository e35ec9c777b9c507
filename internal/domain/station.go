package domain

// Station is one row of the stations directory used for name autocomplete
// and coordinate lookups.
type Station struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Slug          string  `json:"slug,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Country       string  `json:"country"`
	DBID          string  `json:"dbId,omitempty"`
	UIC           string  `json:"uic,omitempty"`
	IsMainStation bool    `json:"isMainStation"`
}
