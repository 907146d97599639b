package models

// StyleDescriptor is the path styling handed to the map view for one feature.
// It is derived on demand and never stored.
type StyleDescriptor struct {
	FillColor    Color   `json:"fillColor"`
	StrokeColor  Color   `json:"color"`
	StrokeWeight float64 `json:"weight"`
	Opacity      float64 `json:"opacity"`
	FillOpacity  float64 `json:"fillOpacity"`
}

// LegendEntry is one row of the legend.
type LegendEntry struct {
	Label string `json:"label"`
	Color Color  `json:"color"`
}
