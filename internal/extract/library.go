package extract

import (
	"regexp"
	"strings"
)

// LocalLabel tags includes that look like project-local, extension-less headers.
const LocalLabel = "Local"

type libraryPattern struct {
	label    string
	patterns []string
}

// knownLibraries is checked in order; the first label with a matching
// substring wins.
var knownLibraries = []libraryPattern{
	{"Arduino", []string{"Arduino.h", "WString.h", "Print.h"}},
	{"WiFi", []string{"WiFi.h", "WiFiClient.h", "WiFiServer.h", "WiFiUdp.h"}},
	{"TFT_eSPI", []string{"TFT_eSPI.h", "TFT_eSPI"}},
	{"FastLED", []string{"FastLED.h", "FastLED"}},
	{"ArduinoJson", []string{"ArduinoJson.h", "ArduinoJson"}},
	{"PubSubClient", []string{"PubSubClient.h"}},
	{"AsyncTCP", []string{"AsyncTCP.h"}},
	{"ESPAsyncWebServer", []string{"ESPAsyncWebServer.h"}},
	{"SPIFFS", []string{"SPIFFS.h", "FS.h"}},
	{"SD", []string{"SD.h", "SD_MMC.h"}},
	{"Wire", []string{"Wire.h"}},
	{"SPI", []string{"SPI.h"}},
	{"EEPROM", []string{"EEPROM.h"}},
	{"Preferences", []string{"Preferences.h"}},
	{"esp_system", []string{"esp_system.h", "esp_log.h", "esp_err.h"}},
	{"FreeRTOS", []string{"freertos/FreeRTOS.h", "freertos/task.h"}},
}

var includePattern = regexp.MustCompile(`#include\s*[<"]([^>"]+)[>"]`)

// ClassifyHeader maps an included header name to a library label.
// It returns false when the include should not be counted at all.
func ClassifyHeader(header string) (string, bool) {
	for _, lib := range knownLibraries {
		for _, p := range lib.patterns {
			if strings.Contains(header, p) {
				return lib.label, true
			}
		}
	}

	if !strings.HasPrefix(header, "esp") && !strings.HasSuffix(header, ".h") {
		return LocalLabel, true
	}
	return "", false
}

// KnownLibraryLabels lists the classifier's labels in priority order.
func KnownLibraryLabels() []string {
	labels := make([]string, len(knownLibraries))
	for i, lib := range knownLibraries {
		labels[i] = lib.label
	}
	return labels
}

// ScanLibraryIncludes returns the library label of every include in content,
// one entry per occurrence, in source order. Unclassified includes are dropped.
func ScanLibraryIncludes(content string) []string {
	var labels []string
	for _, m := range includePattern.FindAllStringSubmatch(content, -1) {
		if label, ok := ClassifyHeader(m[1]); ok {
			labels = append(labels, label)
		}
	}
	return labels
}

// ParseIncludeDirectives reads #include lines one at a time. A quoted name
// wins over an angle-bracketed one on the same line.
func ParseIncludeDirectives(file, content string) []IncludeDirective {
	directives := []IncludeDirective{}
	for i, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "#include") {
			continue
		}

		d := IncludeDirective{File: file, Line: i + 1}
		if parts := strings.Split(line, `"`); len(parts) > 1 {
			d.Header = parts[1]
			d.Kind = IncludeLocal
		} else if lt := strings.Index(line, "<"); lt >= 0 && strings.Contains(line, ">") {
			rest := line[lt+1:]
			if gt := strings.Index(rest, ">"); gt >= 0 {
				rest = rest[:gt]
			}
			d.Header = rest
			d.Kind = IncludeSystem
		} else {
			continue
		}
		directives = append(directives, d)
	}
	return directives
}

// splitLines splits on \n, drops a trailing \r per line, and does not
// produce an empty element for a final newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.TrimSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
