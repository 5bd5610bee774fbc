package analysis

// Advice kinds.
const (
	AdviceMultipleNetwork = "multiple_network_libraries"
	AdviceMultipleDisplay = "multiple_display_libraries"
	AdviceHeavyLibraries  = "memory_intensive_libraries"
	AdviceUnusedLibraries = "unused_libraries"
	AdviceHighRAM         = "high_ram_usage"
	AdviceManyGlobals     = "many_globals"
	AdviceUninitGlobals   = "uninitialized_globals"
	AdviceComplexFuncs    = "complex_functions"
)

// Advice is an optimisation hint derived from a report.
type Advice struct {
	Kind       string   `json:"kind" yaml:"kind"`
	Message    string   `json:"message" yaml:"message"`
	Suggestion string   `json:"suggestion" yaml:"suggestion"`
	Items      []string `json:"items,omitempty" yaml:"items,omitempty"`
}
