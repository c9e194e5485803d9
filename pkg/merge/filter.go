package merge

import "github.com/kestrel-tools/resforge/pkg/configdesc"

// AxisFilter restricts which configurations survive a merge. A configuration
// matches when, on every axis the filter constrains, it either defines
// nothing or agrees with at least one of the allowed configurations. The
// default configuration always matches.
type AxisFilter struct {
	configs  []configdesc.Config
	axisMask uint32
}

// AddConfig allows a configuration. The axes it defines become constrained.
func (f *AxisFilter) AddConfig(c configdesc.Config) {
	f.configs = append(f.configs, c)
	f.axisMask |= c.DefinedAxes()
}

// Match reports whether values under c should be kept.
func (f *AxisFilter) Match(c configdesc.Config) bool {
	constrained := c.DefinedAxes() & f.axisMask
	if constrained == 0 {
		return true
	}

	for _, allowed := range f.configs {
		if c.Diff(allowed)&allowed.DefinedAxes()&constrained == 0 {
			return true
		}
	}

	return false
}
