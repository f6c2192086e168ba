package config

// DefaultProjectDefinition returns an empty project scaffold: no
// resources or tasks, start date unset (callers are expected to set it
// explicitly), and cut_and_paste as the buffer strategy — the simplest
// always-defined policy, matching buffer.New's own fallback.
func DefaultProjectDefinition() *ProjectDefinition {
	return &ProjectDefinition{
		BufferStrategy: "cut_and_paste",
		Resources:      map[string]ResourceDefinition{},
		Tasks:          map[string]TaskDefinition{},
	}
}
