/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "math"

const (
	MinPoints = 100
	MaxPoints = 1000
)

// CalculatePoints decays linearly from MaxPoints for an instant answer to
// MinPoints at or past maxTimeMs.
func CalculatePoints(responseTimeMs, maxTimeMs float64) int {
	if maxTimeMs <= 0 || math.IsNaN(responseTimeMs) {
		return MinPoints
	}

	ratio := max(0, 1-responseTimeMs/maxTimeMs)
	points := int(math.Round(MinPoints + (MaxPoints-MinPoints)*ratio))

	return min(max(points, MinPoints), MaxPoints)
}
