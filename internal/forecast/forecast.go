// Package forecast projects occupancy a few intervals ahead from the
// observed count series. A least-squares linear trend over the recent tail
// of the history stands in for the original model-based forecaster; it keeps
// the same input series and the same output shape.
package forecast

import (
	"errors"

	"github.com/dandantas/turnstile/internal/model"
)

// trendWindow caps how many trailing observations feed the fit, so an old
// ramp-up does not drown the current trend.
const trendWindow = 30

var (
	// ErrNotEnoughData is returned when fewer than two observations exist
	ErrNotEnoughData = errors.New("at least two observations are required to project a trend")
	// ErrInvalidHorizon is returned for a non-positive interval count
	ErrInvalidHorizon = errors.New("forecast horizon must be at least one interval")
)

// Projection is one projected occupancy point, Interval steps past the end
// of the observed series
type Projection struct {
	Interval           int `json:"interval"`
	TotalPresentInside int `json:"total_present_inside"`
}

// Project fits a linear trend to the tail of the history and extends it for
// the requested number of intervals. Projected occupancy is clamped at zero.
func Project(history []model.Observation, intervals int) ([]Projection, error) {
	if intervals < 1 {
		return nil, ErrInvalidHorizon
	}
	if len(history) < 2 {
		return nil, ErrNotEnoughData
	}

	window := history
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	slope, intercept := fitLine(window)

	n := float64(len(window))
	projections := make([]Projection, 0, intervals)
	for i := 1; i <= intervals; i++ {
		value := slope*(n-1+float64(i)) + intercept
		rounded := int(value + 0.5)
		if value < 0 {
			rounded = 0
		}
		projections = append(projections, Projection{
			Interval:           i,
			TotalPresentInside: rounded,
		})
	}

	return projections, nil
}

// fitLine computes the least-squares line through (index, occupancy) points
func fitLine(window []model.Observation) (slope, intercept float64) {
	n := float64(len(window))

	var sumX, sumY, sumXY, sumXX float64
	for i, obs := range window {
		x := float64(i)
		y := float64(obs.TotalPresentInside)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		// Single distinct x cannot happen with len >= 2, but keep the guard
		return 0, sumY / n
	}

	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
