package roles

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource returns queued ints and reverses on every shuffle.
type scriptedSource struct {
	ints     []int
	shuffles []int
}

func (s *scriptedSource) IntN(n int) int {
	v := s.ints[0] % n
	s.ints = s.ints[1:]

	return v
}

func (s *scriptedSource) Shuffle(n int, swap func(i, j int)) {
	s.shuffles = append(s.shuffles, n)
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("student-%02d", i+1)
	}

	return out
}

func TestDefaultRoleSet(t *testing.T) {
	roleSet := Default()
	require.Len(t, roleSet, 8)

	seen := map[string]bool{}
	for _, r := range roleSet {
		require.NotEmpty(t, r)
		require.False(t, seen[r], "duplicate role %q", r)
		seen[r] = true
	}

	roleSet[0] = "changed"
	assert.Equal(t, "Leader", Default()[0], "Default must hand out copies")
}

func TestRolesRepeat(t *testing.T) {
	roleSet := Default()

	assert.False(t, RolesRepeat(0, roleSet))
	assert.False(t, RolesRepeat(8, roleSet))
	assert.True(t, RolesRepeat(9, roleSet))
}

func TestAssignSolo(t *testing.T) {
	src := &scriptedSource{ints: []int{3}}

	r := Assign(nil, Default(), src)

	require.True(t, r.IsSolo())
	assert.Equal(t, "Timekeeper", r.Role)
	assert.Empty(t, r.Assignments)
	assert.Equal(t, 1, r.Size())
	assert.Empty(t, src.shuffles)
}

func TestAssignSoloAlwaysFromRoleSet(t *testing.T) {
	src := NewSeededSource(7)
	roleSet := Default()

	for range 200 {
		r := Assign([]string{}, roleSet, src)
		require.Contains(t, roleSet, r.Role)
	}
}

func TestAssignDeterministicWithScriptedSource(t *testing.T) {
	src := &scriptedSource{}

	r := Assign([]string{"Ann", "Ben", "Cal"}, Default(), src)

	want := []Assignment{
		{Name: "Cal", Role: "Quality Checker"},
		{Name: "Ben", Role: "Encourager"},
		{Name: "Ann", Role: "Organizer"},
	}
	assert.Equal(t, want, r.Assignments)
	assert.Equal(t, []int{8, 3}, src.shuffles, "pool is shuffled before names")
}

func TestAssignDeterministicWithRepeatedPool(t *testing.T) {
	src := &scriptedSource{}

	r := Assign(names(10), Default(), src)

	want := []Assignment{
		{Name: "student-10", Role: "Quality Checker"},
		{Name: "student-09", Role: "Encourager"},
		{Name: "student-08", Role: "Organizer"},
		{Name: "student-07", Role: "Researcher"},
		{Name: "student-06", Role: "Timekeeper"},
		{Name: "student-05", Role: "Recorder"},
		{Name: "student-04", Role: "Presenter"},
		{Name: "student-03", Role: "Leader"},
		{Name: "student-02", Role: "Quality Checker"},
		{Name: "student-01", Role: "Encourager"},
	}
	assert.Equal(t, want, r.Assignments)
	assert.Equal(t, []int{16, 10}, src.shuffles)
}

func TestAssignSeededSourceIsReproducible(t *testing.T) {
	in := names(13)

	a := Assign(in, Default(), NewSeededSource(42))
	b := Assign(in, Default(), NewSeededSource(42))

	assert.Equal(t, a, b)
}

func TestAssignCoversEveryNameOnce(t *testing.T) {
	src := NewSeededSource(1)
	roleSet := Default()

	for _, n := range []int{1, 2, 7, 8, 9, 16, 17, 40} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			in := names(n)
			r := Assign(in, roleSet, src)

			require.Len(t, r.Assignments, n)

			got := make([]string, 0, n)
			counts := map[string]int{}
			for _, a := range r.Assignments {
				require.Contains(t, roleSet, a.Role)
				got = append(got, a.Name)
				counts[a.Role]++
			}
			assert.ElementsMatch(t, in, got)

			copies := (n + len(roleSet) - 1) / len(roleSet)
			for role, c := range counts {
				assert.LessOrEqual(t, c, copies, "role %q", role)
			}
		})
	}
}

func TestAssignKeepsDuplicateNames(t *testing.T) {
	r := Assign([]string{"Ann", "Ann", "Ben"}, Default(), NewSeededSource(3))

	got := make([]string, 0, len(r.Assignments))
	for _, a := range r.Assignments {
		got = append(got, a.Name)
	}
	assert.ElementsMatch(t, []string{"Ann", "Ann", "Ben"}, got)
}

func TestAssignDoesNotModifyNames(t *testing.T) {
	in := names(12)
	orig := append([]string(nil), in...)

	_ = Assign(in, Default(), NewSeededSource(9))

	assert.Equal(t, orig, in)
}

func TestAssignUniqueRolesWhenPoolHasOneCopy(t *testing.T) {
	src := NewSeededSource(11)

	for range 500 {
		r := Assign(names(8), Default(), src)

		seen := map[string]bool{}
		for _, a := range r.Assignments {
			require.False(t, seen[a.Role], "role %q drawn twice", a.Role)
			seen[a.Role] = true
		}
	}
}

func TestAssignEveryPairingReachable(t *testing.T) {
	src := NewSeededSource(2024)
	roleSet := Default()
	in := names(9)

	seen := map[Assignment]bool{}
	for range 3000 {
		for _, a := range Assign(in, roleSet, src).Assignments {
			seen[a] = true
		}
	}

	for _, name := range in {
		for _, role := range roleSet {
			assert.True(t, seen[Assignment{Name: name, Role: role}], "%s never drew %s", name, role)
		}
	}
}

func TestAssignEmptyRoleSet(t *testing.T) {
	assert.Equal(t, Result{}, Assign(names(3), nil, NewSource()))
}
