package speech

import "math"

func wordsPerMinute(normal int, rate float64) int {
	if rate <= 0 {
		rate = 1
	}
	return max(80, int(math.Round(float64(normal)*rate)))
}
