package domain

const (
	// ScoreMin and ScoreMax bound every stored lead score. The entity store
	// enforces the same bounds with a CHECK constraint so no caller can
	// bypass the clamp.
	ScoreMin = 0
	ScoreMax = 100
)

// ClampScore bounds a raw score to [ScoreMin, ScoreMax].
func ClampScore(score int) int {
	if score < ScoreMin {
		return ScoreMin
	}
	if score > ScoreMax {
		return ScoreMax
	}
	return score
}
