package extract

import (
	"regexp"
	"strconv"
	"strings"
)

type declarationPattern struct {
	name  string
	re    *regexp.Regexp
	array bool
}

// declarationPatterns run independently over the whole file text. A
// statement like "static const int x = 1;" matches several of them and is
// recorded once per match.
var declarationPatterns = []declarationPattern{
	{name: "global_var", re: regexp.MustCompile(`(?m)^(?:extern\s+)?(?:const\s+)?(\w+(?:\s*\*)*)\s+(\w+)(?:\s*=\s*[^;]+)?;`)},
	{name: "static_var", re: regexp.MustCompile(`(?m)^static\s+(?:const\s+)?(\w+(?:\s*\*)*)\s+(\w+)(?:\s*=\s*[^;]+)?;`)},
	{name: "const_var", re: regexp.MustCompile(`(?m)^const\s+(\w+(?:\s*\*)*)\s+(\w+)(?:\s*=\s*[^;]+)?;`)},
	{name: "array_var", re: regexp.MustCompile(`(?m)^(?:static\s+)?(?:const\s+)?(\w+)\s+(\w+)\[([^\]]+)\](?:\s*=\s*[^;]+)?;`), array: true},
}

const globalPatternName = "global_var"

type typeSize struct {
	name string
	size int
}

// typeSizes is matched by substring in order, so "uint16_t" must come
// before "int".
var typeSizes = []typeSize{
	{"bool", 1},
	{"char", 1},
	{"uint8_t", 1},
	{"int8_t", 1},
	{"uint16_t", 2},
	{"int16_t", 2},
	{"uint32_t", 4},
	{"int32_t", 4},
	{"int", 4},
	{"float", 4},
	{"double", 8},
	{"long", 4},
	{"size_t", 4},
}

var ramTypes = []string{"char", "int", "float", "double", "bool"}

const (
	defaultTypeSize  = 4
	pointerSize      = 4
	symbolicArrayLen = 100
	unparsedArrayLen = 10
)

// ScanVariables matches every declaration pattern against content and
// classifies each match.
func ScanVariables(file, content string) []Variable {
	var vars []Variable
	for _, p := range declarationPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(content, -1) {
			text := content[loc[0]:loc[1]]
			groups := submatches(content, loc)
			line := strings.Count(content[:loc[0]], "\n") + 1
			vars = append(vars, classifyDeclaration(p, text, groups, file, line))
		}
	}
	return vars
}

func submatches(content string, loc []int) []string {
	groups := make([]string, 0, len(loc)/2-1)
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, content[loc[i]:loc[i+1]])
	}
	return groups
}

func classifyDeclaration(p declarationPattern, text string, groups []string, file string, line int) Variable {
	varType, name := groups[0], groups[1]

	size := EstimateTypeSize(varType)
	if p.array {
		size = EstimateArraySize(varType, groups[2])
	}

	return Variable{
		Name:         name,
		Type:         varType,
		File:         file,
		Line:         line,
		Scope:        ResolveScope(text, p.name == globalPatternName),
		Storage:      ResolveStorage(text, varType),
		SizeEstimate: size,
		Initialized:  strings.Contains(text, "="),
	}
}

// ResolveScope: "static" anywhere in the declaration wins over the global pattern.
func ResolveScope(declaration string, fromGlobalPattern bool) Scope {
	switch {
	case strings.Contains(declaration, "static"):
		return ScopeStatic
	case fromGlobalPattern:
		return ScopeGlobal
	default:
		return ScopeUnknown
	}
}

// ResolveStorage applies the markers in priority order before falling back
// to the primitive type list.
func ResolveStorage(declaration, varType string) Storage {
	switch {
	case strings.Contains(declaration, "const"):
		return StorageFlash
	case strings.Contains(declaration, "PROGMEM"):
		return StorageFlash
	case strings.Contains(declaration, "PSRAM"), strings.Contains(declaration, "ps_malloc"):
		return StoragePSRAM
	}
	for _, t := range ramTypes {
		if strings.Contains(varType, t) {
			return StorageRAM
		}
	}
	return StorageUnknown
}

// EstimateTypeSize returns the byte size guessed for a type token.
func EstimateTypeSize(varType string) int {
	if strings.Contains(varType, "*") {
		return pointerSize
	}
	for _, ts := range typeSizes {
		if strings.Contains(varType, ts.name) {
			return ts.size
		}
	}
	return defaultTypeSize
}

// EstimateArraySize multiplies the element size by the declared length.
// Macro or expression lengths use a placeholder count.
func EstimateArraySize(varType, length string) int {
	base := EstimateTypeSize(varType)
	if !isDigits(length) {
		return base * symbolicArrayLen
	}
	n, err := strconv.Atoi(length)
	if err != nil {
		return base * unparsedArrayLen
	}
	return base * n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
