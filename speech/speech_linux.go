//go:build linux

package speech

import "strconv"

var engines = []string{"espeak-ng", "espeak", "spd-say"}

// espeak speaks at 175 words per minute by default; spd-say takes -100..100.
func args(name, text string, rate float64) []string {
	switch name {
	case "spd-say":
		r := int((rate - 1) * 100)
		return []string{"-w", "-r", strconv.Itoa(max(-100, min(100, r))), text}
	default:
		return []string{"-s", strconv.Itoa(wordsPerMinute(175, rate)), text}
	}
}
