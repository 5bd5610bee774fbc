package depgraph

import "strings"

// Module categories. A file belongs to the first matching prefix; anything
// else is treated as core.
const (
	ModuleMain    = "main.cpp"
	ModuleApp     = "app/"
	ModuleDrivers = "drivers/"
	ModuleCore    = "core/"
	ModuleSystem  = "system/"
)

// Library categories used by the module graph.
const (
	LibraryTFT     = "TFT_eSPI"
	LibraryFastLED = "FastLED"
	LibraryWiFi    = "WiFi"
	LibraryArduino = "Arduino"
)

// Modules lists the module categories in display order.
var Modules = []string{ModuleMain, ModuleApp, ModuleDrivers, ModuleCore, ModuleSystem}

// Libraries lists the library categories in display order.
var Libraries = []string{LibraryTFT, LibraryFastLED, LibraryWiFi, LibraryArduino}

// ModuleCategory returns the module a source-relative path belongs to.
func ModuleCategory(path string) string {
	if strings.Contains(path, ModuleMain) {
		return ModuleMain
	}
	for _, prefix := range []string{ModuleApp, ModuleDrivers, ModuleCore, ModuleSystem} {
		if strings.HasPrefix(path, prefix) {
			return prefix
		}
	}
	return ModuleCore
}

// LibraryCategory returns the library category of a system header, or ""
// when it belongs to none. The checks are ordered: "led" matches before "wifi".
func LibraryCategory(header string) string {
	lower := strings.ToLower(header)
	switch {
	case strings.Contains(header, "TFT_eSPI"), strings.Contains(lower, "tft"):
		return LibraryTFT
	case strings.Contains(header, "FastLED"), strings.Contains(lower, "led"):
		return LibraryFastLED
	case strings.Contains(header, "WiFi"), strings.Contains(lower, "wifi"):
		return LibraryWiFi
	case strings.Contains(header, "Arduino"):
		return LibraryArduino
	}
	return ""
}
