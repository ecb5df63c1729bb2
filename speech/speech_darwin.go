//go:build darwin

package speech

import "strconv"

var engines = []string{"say"}

func args(_ string, text string, rate float64) []string {
	return []string{"-r", strconv.Itoa(wordsPerMinute(175, rate)), text}
}
