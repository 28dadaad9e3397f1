/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package roles

// Assignment pairs one student with the role they drew.
type Assignment struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Result is the outcome of one draw. A draw with no names yields a single
// Role and no Assignments; otherwise Assignments holds one entry per name
// and Role is empty.
type Result struct {
	Role        string       `json:"role,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
}

// IsSolo reports whether the result came from a draw without names.
func (r Result) IsSolo() bool {
	return len(r.Assignments) == 0
}

// Size is the number of history rows the result produces.
func (r Result) Size() int {
	if r.IsSolo() {
		return 1
	}

	return len(r.Assignments)
}

// Assign hands every name exactly one role from roleSet.
//
// The role pool is built from enough whole copies of roleSet to cover every
// name, then shuffled on its own; a copy of names is shuffled separately and
// the two are paired by position. Roles only repeat when the pool holds more
// than one copy. names is never modified.
func Assign(names, roleSet []string, src Source) Result {
	if len(roleSet) == 0 {
		return Result{}
	}

	if len(names) == 0 {
		return Result{Role: roleSet[src.IntN(len(roleSet))]}
	}

	copies := (len(names) + len(roleSet) - 1) / len(roleSet)

	pool := make([]string, 0, copies*len(roleSet))
	for range copies {
		pool = append(pool, roleSet...)
	}
	src.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	shuffled := make([]string, len(names))
	copy(shuffled, names)
	src.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	assignments := make([]Assignment, len(shuffled))
	for i, name := range shuffled {
		assignments[i] = Assignment{
			Name: name,
			Role: pool[i],
		}
	}

	return Result{Assignments: assignments}
}
