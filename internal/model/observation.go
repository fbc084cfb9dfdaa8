package model

import (
	"errors"
	"fmt"
	"strconv"
)

// Observation is one timestamped count snapshot produced by the engine
type Observation struct {
	Timestamp            string `json:"timestamp" bson:"timestamp"`
	TotalPresentInside   int    `json:"total_present_inside" bson:"total_present_inside"`
	IncomingLastInterval int    `json:"incoming_last_interval" bson:"incoming_last_interval"`
	OutgoingLastInterval int    `json:"outgoing_last_interval" bson:"outgoing_last_interval"`
}

// ObservationRow is an observation as the engine reports it: count fields
// arrive as decimal strings and must be parsed on read.
type ObservationRow struct {
	Timestamp            string `json:"timestamp"`
	TotalPresentInside   string `json:"total_present_inside"`
	IncomingLastInterval string `json:"incoming_last_interval"`
	OutgoingLastInterval string `json:"outgoing_last_interval"`
}

// Parse strictly converts a wire row into an Observation. A row with a
// missing or non-numeric count poisons the whole fetch rather than being
// silently skipped.
func (r ObservationRow) Parse() (Observation, error) {
	if r.Timestamp == "" {
		return Observation{}, errors.New("observation row has empty timestamp")
	}

	total, err := parseCount("total_present_inside", r.TotalPresentInside)
	if err != nil {
		return Observation{}, err
	}
	incoming, err := parseCount("incoming_last_interval", r.IncomingLastInterval)
	if err != nil {
		return Observation{}, err
	}
	outgoing, err := parseCount("outgoing_last_interval", r.OutgoingLastInterval)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		Timestamp:            r.Timestamp,
		TotalPresentInside:   total,
		IncomingLastInterval: incoming,
		OutgoingLastInterval: outgoing,
	}, nil
}

func parseCount(field, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", field, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s value %d: counts cannot be negative", field, n)
	}
	return n, nil
}

// ParseObservationRows parses a full result-history payload in order
func ParseObservationRows(rows []ObservationRow) ([]Observation, error) {
	observations := make([]Observation, 0, len(rows))
	for i, row := range rows {
		obs, err := row.Parse()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		observations = append(observations, obs)
	}
	return observations, nil
}
