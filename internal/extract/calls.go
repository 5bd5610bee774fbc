package extract

import "strings"

type libraryCalls struct {
	library string
	calls   []string
}

var knownCalls = []libraryCalls{
	{"WiFi", []string{"WiFi.begin", "WiFi.status", "WiFi.localIP", "WiFi.disconnect"}},
	{"TFT_eSPI", []string{"tft.begin", "tft.fillScreen", "tft.drawString", "tft.setRotation"}},
	{"FastLED", []string{"FastLED.show", "FastLED.setBrightness", "FastLED.addLeds"}},
	{"Serial", []string{"Serial.begin", "Serial.print", "Serial.println", "Serial.available"}},
	{"SPIFFS", []string{"SPIFFS.begin", "SPIFFS.open", "SPIFFS.exists"}},
	{"Preferences", []string{"preferences.begin", "preferences.getString", "preferences.putString"}},
}

// CountLibraryCalls counts substring occurrences of well-known library calls,
// keyed "Library::call". Only calls that occur are returned. "Serial.print"
// also counts the prefix of every "Serial.println".
func CountLibraryCalls(content string) map[string]int {
	counts := make(map[string]int)
	for _, lib := range knownCalls {
		for _, call := range lib.calls {
			if n := strings.Count(content, call); n > 0 {
				counts[lib.library+"::"+call] += n
			}
		}
	}
	return counts
}
