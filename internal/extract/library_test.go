package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for library classification and include parsing:
// - known headers map to their library label
// - the first matching label wins and the answer does not depend on call order
// - extension-less, non-esp headers are tagged Local
// - other unmatched headers are not counted
// - ScanLibraryIncludes counts every occurrence and drops unclassified ones
// - ParseIncludeDirectives distinguishes local and system includes per line
// - CountLibraryCalls counts substring occurrences, including overlapping prefixes

func TestClassifyHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		label  string
		ok     bool
	}{
		{"Arduino.h", "Arduino", true},
		{"WiFi.h", "WiFi", true},
		{"WiFiClient.h", "WiFi", true},
		{"TFT_eSPI.h", "TFT_eSPI", true},
		{"FastLED.h", "FastLED", true},
		{"SPIFFS.h", "SPIFFS", true},
		{"FS.h", "SPIFFS", true},
		{"SD_MMC.h", "SD", true},
		{"AsyncTCP.h", "AsyncTCP", true},
		{"ESPAsyncWebServer.h", "ESPAsyncWebServer", true},
		{"esp_log.h", "esp_system", true},
		{"freertos/task.h", "FreeRTOS", true},
		{"vector", LocalLabel, true},
		{"esp_wifi", "", false},
		{"config/app_config.h", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			label, ok := ClassifyHeader(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestClassifyHeader_Deterministic(t *testing.T) {
	t.Parallel()

	first, _ := ClassifyHeader("WiFiUdp.h")
	for _, h := range []string{"TFT_eSPI.h", "vector", "Wire.h", "esp_err.h"} {
		ClassifyHeader(h)
	}
	again, _ := ClassifyHeader("WiFiUdp.h")

	assert.Equal(t, "WiFi", first)
	assert.Equal(t, first, again)
}

func TestKnownLibraryLabels_PriorityOrder(t *testing.T) {
	t.Parallel()

	labels := KnownLibraryLabels()
	assert.Equal(t, "Arduino", labels[0])
	assert.Equal(t, "FreeRTOS", labels[len(labels)-1])
	assert.Len(t, labels, 16)
}

func TestScanLibraryIncludes(t *testing.T) {
	t.Parallel()

	content := "#include <WiFi.h>\n#include \"app_main.h\"\n#include <vector>\n#include<WiFi.h>\n"
	assert.Equal(t, []string{"WiFi", "Local", "WiFi"}, ScanLibraryIncludes(content))
}

func TestParseIncludeDirectives(t *testing.T) {
	t.Parallel()

	content := "// header\n#include \"core/state/system_state.h\"\n  #include <Arduino.h>\nint x;\n#include MACRO\n"
	directives := ParseIncludeDirectives("main.cpp", content)

	assert.Equal(t, []IncludeDirective{
		{File: "main.cpp", Header: "core/state/system_state.h", Kind: IncludeLocal, Line: 2},
		{File: "main.cpp", Header: "Arduino.h", Kind: IncludeSystem, Line: 3},
	}, directives)
}

func TestParseIncludeDirectives_NoIncludes(t *testing.T) {
	t.Parallel()

	directives := ParseIncludeDirectives("empty.cpp", "int main() { return 0; }\n")
	assert.NotNil(t, directives)
	assert.Empty(t, directives)
}

func TestCountLibraryCalls(t *testing.T) {
	t.Parallel()

	content := `
void setup() {
  Serial.begin(115200);
  Serial.println("boot");
  Serial.print("x");
  WiFi.begin(ssid, pass);
  while (WiFi.status() != WL_CONNECTED) {}
}
`
	counts := CountLibraryCalls(content)

	assert.Equal(t, map[string]int{
		"Serial::Serial.begin":   1,
		"Serial::Serial.print":   2,
		"Serial::Serial.println": 1,
		"WiFi::WiFi.begin":       1,
		"WiFi::WiFi.status":      1,
	}, counts)
}
