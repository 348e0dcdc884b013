// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"phonenorm_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// Event names, also used as Bus subscription keys.
const (
	NameCountryTableReloaded      = "phone.country_table.reloaded"
	NameNormalizationJobCompleted = "phone.normalization_job.completed"
)

// CountryTableReloaded is published after the normalizer swapped in a new
// country table. Origin is "local" for reloads triggered on this instance and
// "peer" for reloads received over Redis from another instance.
type CountryTableReloaded struct {
	BaseEvent
	Source  string `json:"source"`
	Entries int    `json:"entries"`
	Version uint64 `json:"version"`
	Origin  string `json:"origin"`
}

func (e CountryTableReloaded) EventName() string { return NameCountryTableReloaded }

// NormalizationJobCompleted is published when a background batch job finished,
// successfully or not.
type NormalizationJobCompleted struct {
	BaseEvent
	JobID   uuid.UUID `json:"jobId"`
	Status  string    `json:"status"`
	Total   int       `json:"total"`
	Failed  int       `json:"failed"`
	Message string    `json:"message,omitempty"`
}

func (e NormalizationJobCompleted) EventName() string { return NameNormalizationJobCompleted }
