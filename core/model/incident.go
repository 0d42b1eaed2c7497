package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kilianp07/erdispatch/core/roadnet"
)

// Priority ranks incidents. Higher values are served first.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

var (
	// ErrInvalidPriority is returned for unknown priority names or values.
	ErrInvalidPriority = errors.New("model: invalid priority")
	// ErrInvalidDescription is returned for descriptions that cannot be
	// stored on a single text line.
	ErrInvalidDescription = errors.New("model: invalid description")
)

// String returns HIGH, MEDIUM or LOW.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool { return p >= PriorityLow && p <= PriorityHigh }

// ParsePriority converts a priority name, ignoring case and surrounding
// spaces.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return PriorityHigh, nil
	case "MEDIUM":
		return PriorityMedium, nil
	case "LOW":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// MarshalText encodes the priority by name. Values outside the defined
// priorities encode as UNKNOWN.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText decodes a priority name. UNKNOWN decodes to the zero value.
func (p *Priority) UnmarshalText(b []byte) error {
	if strings.EqualFold(strings.TrimSpace(string(b)), "UNKNOWN") {
		*p = 0
		return nil
	}
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ValidateDescription rejects line breaks and other control characters.
// Tabs are allowed.
func ValidateDescription(desc string) error {
	for _, r := range desc {
		if r != '\t' && unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U", ErrInvalidDescription, r)
		}
	}
	return nil
}

// Incident is a reported emergency. Only Resolved changes after creation.
type Incident struct {
	ID          int            `json:"id"`
	Location    roadnet.NodeID `json:"location"`
	Priority    Priority       `json:"priority"`
	Description string         `json:"description"`
	Resolved    bool           `json:"resolved"`
	ReportedAt  time.Time      `json:"reported_at"`
}
