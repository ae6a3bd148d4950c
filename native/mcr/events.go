package mcr

import (
	"math/big"
	"strconv"

	"coverpool/core/types"
)

const (
	EventTypeUpdated        = "mcr.updated"
	EventTypeDesiredUpdated = "mcr.desired_updated"
)

// Updated is emitted whenever a ratchet step is committed.
type Updated struct {
	Stored    *big.Int
	Desired   *big.Int
	UpdatedAt int64
}

func (Updated) EventType() string { return EventTypeUpdated }

func (e Updated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeUpdated,
		Attributes: map[string]string{
			"stored":    formatAmount(e.Stored),
			"desired":   formatAmount(e.Desired),
			"updatedAt": strconv.FormatInt(e.UpdatedAt, 10),
		},
	}
}

// DesiredUpdated is emitted when the feedback collaborator moves the target.
type DesiredUpdated struct {
	Desired   *big.Int
	UpdatedAt int64
}

func (DesiredUpdated) EventType() string { return EventTypeDesiredUpdated }

func (e DesiredUpdated) Event() *types.Event {
	return &types.Event{
		Type: EventTypeDesiredUpdated,
		Attributes: map[string]string{
			"desired":   formatAmount(e.Desired),
			"updatedAt": strconv.FormatInt(e.UpdatedAt, 10),
		},
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
