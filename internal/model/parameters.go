package model

import (
	"errors"
	"fmt"
	"strings"
)

// DoorDirection is the side of the frame the monitored door sits on.
type DoorDirection string

const (
	DoorUp    DoorDirection = "up"
	DoorDown  DoorDirection = "down"
	DoorLeft  DoorDirection = "left"
	DoorRight DoorDirection = "right"
)

// ParseDoorDirection parses a door direction string
func ParseDoorDirection(s string) (DoorDirection, error) {
	switch DoorDirection(strings.ToLower(strings.TrimSpace(s))) {
	case DoorUp:
		return DoorUp, nil
	case DoorDown:
		return DoorDown, nil
	case DoorLeft:
		return DoorLeft, nil
	case DoorRight:
		return DoorRight, nil
	default:
		return "", fmt.Errorf("invalid door direction: %q (must be 'up', 'down', 'left' or 'right')", s)
	}
}

// ParameterSet is the counting configuration submitted with a job.
// It is freely mutable on a session until a job is submitted; at submission
// time it is copied into the job record and never altered for that job.
type ParameterSet struct {
	DoorDirection       DoorDirection `json:"door_direction" bson:"door_direction"`
	Confidence          float64       `json:"confidence" bson:"confidence"`
	SkipFrames          int           `json:"skip_frames" bson:"skip_frames"`
	PollIntervalSeconds int           `json:"poll_interval_seconds" bson:"poll_interval_seconds"`
	CenterCrop          bool          `json:"center_crop" bson:"center_crop"`
	ShowPreview         bool          `json:"show_preview" bson:"show_preview"`
}

// Validate validates parameter ranges
func (p *ParameterSet) Validate() error {
	if _, err := ParseDoorDirection(string(p.DoorDirection)); err != nil {
		return err
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return errors.New("confidence must be between 0 and 1")
	}
	if p.SkipFrames < 0 || p.SkipFrames > 2 {
		return errors.New("skip_frames must be between 0 and 2")
	}
	if p.PollIntervalSeconds < 1 || p.PollIntervalSeconds > 60 {
		return errors.New("poll_interval_seconds must be between 1 and 60")
	}
	return nil
}
