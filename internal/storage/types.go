package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/tabular/shotsmarts/internal/exposure"
)

// Record is one saved calculation. Input and result fields are embedded so
// they serialize flat next to the metadata.
type Record struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Notes string    `json:"notes"`

	exposure.Input
	exposure.Result
}

// Draft is a record that has not been assigned an identity yet.
type Draft struct {
	Name  string
	Notes string

	exposure.Input
	// Result is computed from Input when left zero.
	exposure.Result
}

type Stats struct {
	RecordCount int                             `json:"record_count"`
	Oldest      time.Time                       `json:"oldest,omitempty"`
	Newest      time.Time                       `json:"newest,omitempty"`
	ByLight     map[exposure.LightCondition]int `json:"by_light"`
	ByScene     map[exposure.SceneMode]int      `json:"by_scene"`
	LastSaved   time.Time                       `json:"last_saved,omitempty"`
	Backend     string                          `json:"backend"`
	Dirty       bool                            `json:"dirty"`
}
