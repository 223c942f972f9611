package lesson

import "math"

// XPPerLevel is the XP needed to advance one level, for students and skills alike.
const XPPerLevel = 100

// XPEarned is round(rating * duration * weight * 0.1), halves rounded away from zero.
func XPEarned(rating, durationMinutes int, xpWeight float64) int {
	return int(math.Round(float64(rating) * float64(durationMinutes) * xpWeight * 0.1))
}

// LevelForXP returns floor(xp/100)+1.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// SkillShare splits xpEarned evenly across skills, dropping the remainder.
func SkillShare(xpEarned, skills int) int {
	if skills <= 0 {
		return 0
	}
	return xpEarned / skills
}
