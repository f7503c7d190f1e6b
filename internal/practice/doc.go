// Package practice implements the student-facing records around drills:
// daily check-ins, the attendance lock, attempts, streaks, and weak-area
// recommendations.
package practice
