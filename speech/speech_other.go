//go:build !linux && !darwin && !windows

package speech

import "strconv"

var engines = []string{"espeak-ng", "espeak"}

func args(_ string, text string, rate float64) []string {
	return []string{"-s", strconv.Itoa(wordsPerMinute(175, rate)), text}
}
