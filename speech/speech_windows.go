//go:build windows

package speech

import (
	"fmt"
	"strings"
)

var engines = []string{"powershell"}

// SAPI rate runs -10..10 with 0 as normal.
func args(_ string, text string, rate float64) []string {
	sapi := max(-10, min(10, int((rate-1)*10)))
	quoted := strings.ReplaceAll(text, "'", "''")
	script := fmt.Sprintf(
		"Add-Type -AssemblyName System.Speech; $s = New-Object System.Speech.Synthesis.SpeechSynthesizer; $s.Rate = %d; $s.Speak('%s')",
		sapi, quoted)
	return []string{"-NoProfile", "-NonInteractive", "-Command", script}
}
