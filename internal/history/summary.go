package history

import (
	"github.com/mvp-joe/fwscan/internal/analysis"
)

// Summary holds the headline numbers of a run.
type Summary struct {
	Libraries     int   `json:"libraries" yaml:"libraries"`
	UnusedLibs    int   `json:"unused_libs" yaml:"unused_libs"`
	TotalIncludes int   `json:"total_includes" yaml:"total_includes"`
	Variables     int   `json:"variables" yaml:"variables"`
	RAMEstimate   int   `json:"ram_estimate" yaml:"ram_estimate"`
	BuildRAMUsed  int64 `json:"build_ram_used,omitempty" yaml:"build_ram_used,omitempty"`
	BuildFlash    int64 `json:"build_flash_used,omitempty" yaml:"build_flash_used,omitempty"`
	Issues        int   `json:"issues" yaml:"issues"`
	Functions     int   `json:"functions" yaml:"functions"`
	Cycles        int   `json:"cycles" yaml:"cycles"`
	Advice        int   `json:"advice" yaml:"advice"`
}

// Summarize extracts the headline numbers from whatever reports r holds.
func Summarize(r *analysis.Result) Summary {
	var s Summary
	if r == nil {
		return s
	}
	if libs := r.Libraries; libs != nil {
		s.Libraries = len(libs.SourceIncludes)
		s.UnusedLibs = len(libs.UnusedLibs)
		s.TotalIncludes = libs.TotalIncludes
		s.Advice += len(libs.Advice)
	}
	if st := r.Static; st != nil {
		s.Variables = len(st.Variables)
		s.RAMEstimate = st.RAMEstimate()
		if st.BuildInfo.RAM != nil {
			s.BuildRAMUsed = st.BuildInfo.RAM.Used
		}
		if st.BuildInfo.Flash != nil {
			s.BuildFlash = st.BuildInfo.Flash.Used
		}
		s.Issues = len(st.QualityIssues)
		s.Functions = len(st.Functions)
		s.Advice += len(st.Advice)
	}
	if deps := r.Dependencies; deps != nil && deps.Graph != nil {
		s.Cycles = len(deps.Graph.Cycles)
	}
	return s
}
