package domain

import "time"

// HistogramRow is one bucket of a histogram: the bucket's start instant and
// the number of observations that fell into it.
type HistogramRow struct {
	Start time.Time `json:"bucket_start"`
	Count int       `json:"count"`
}

// Chart is the line-graph payload handed to the presenter.
// YMax is zero when Rows is empty.
type Chart struct {
	Title    string         `json:"title"`
	Label    string         `json:"label"`
	Kind     Kind           `json:"kind"`
	Timespan string         `json:"timespan"`
	Labels   []string       `json:"labels"`
	Values   []int          `json:"values"`
	YMax     int            `json:"ymax"`
	Mean     float64        `json:"mean"`
	Total    int            `json:"total"`
	Rows     []HistogramRow `json:"rows"`
}
