package extractor

import "github.com/ArionMiles/stmtx/pkg/api"

// LoadReport describes what one invocation registered. It is rebuilt on every
// run and never cached.
type LoadReport struct {
	Loaded  []Loaded  `json:"loaded"`
	Failed  []Failed  `json:"failed"`
	Skipped []Skipped `json:"skipped,omitempty"`
	Dirs    []string  `json:"dirs,omitempty"`
}

// Loaded is an extractor that made it into the registry.
type Loaded struct {
	Name   string     `json:"name"`
	Origin api.Origin `json:"origin"`
	Kind   api.Kind   `json:"kind"`
	Source string     `json:"source,omitempty"`
}

// Failed is a plugin file that could not be loaded.
type Failed struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Skipped is an extractor left out on purpose.
type Skipped struct {
	Name   string     `json:"name"`
	Origin api.Origin `json:"origin"`
	Reason string     `json:"reason"`
}

// Fail records a plugin load failure.
func (r *LoadReport) Fail(err *api.PluginLoadError) {
	r.Failed = append(r.Failed, Failed{Path: err.Path, Reason: err.Err.Error()})
}
