package config

// ResourceDefinition is the on-disk description of one resource pool: its
// capacity and calendar overrides (applied before the project calendar),
// keyed by name at the ProjectDefinition level.
type ResourceDefinition struct {
	Capacity            float64             `json:"capacity"`
	AllowOverallocation bool                `json:"allow_overallocation,omitempty"`
	UnavailablePeriods  []UnavailablePeriod `json:"unavailable_periods,omitempty"`
}

// UnavailablePeriod marks an inclusive date range (YYYY-MM-DD) during which
// a resource has zero availability, e.g. a planned absence.
type UnavailablePeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ResourceRequirementDefinition names a resource a task needs and how many
// units of it, for the duration of the task.
type ResourceRequirementDefinition struct {
	Name  string  `json:"name"`
	Units float64 `json:"units"`
}

// TaskDefinition is the on-disk description of one task, keyed by id at
// the ProjectDefinition level.
type TaskDefinition struct {
	Name               string                          `json:"name"`
	AggressiveDuration float64                          `json:"aggressive_duration"`
	SafeDuration       float64                          `json:"safe_duration"`
	Dependencies       []string                        `json:"dependencies,omitempty"`
	Resources          []ResourceRequirementDefinition `json:"resources,omitempty"`
	Tags               []string                        `json:"tags,omitempty"`
}

// ProjectDefinition is the top-level, serializable description of a CCPM
// project: everything set_start_date/set_resources/add_task would
// otherwise be called with one at a time, loaded as a single document.
type ProjectDefinition struct {
	StartDate      string                        `json:"start_date"`
	BufferStrategy string                        `json:"buffer_strategy"`
	Resources      map[string]ResourceDefinition `json:"resources"`
	Tasks          map[string]TaskDefinition     `json:"tasks"`
}
