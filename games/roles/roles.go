/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package roles draws classroom roles for a list of student names and keeps
// a bounded, per-session history of the draws.
package roles

// RepeatWarning is shown whenever there are more names than roles.
const RepeatWarning = "There are more students than roles, so some roles will be assigned more than once."

var defaultRoles = [...]string{
	"Leader",
	"Presenter",
	"Recorder",
	"Timekeeper",
	"Researcher",
	"Organizer",
	"Encourager",
	"Quality Checker",
}

// Default returns a fresh copy of the fixed role set.
func Default() []string {
	out := make([]string, len(defaultRoles))
	copy(out, defaultRoles[:])

	return out
}

// RolesRepeat reports whether n names will force some role in roleSet to be
// handed out more than once.
func RolesRepeat(n int, roleSet []string) bool {
	return n > len(roleSet)
}
