package blend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func candidateNames(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

func TestCandidates_NoHeaderUsesPreferenceOrder(t *testing.T) {
	candidates := Candidates(nil, "")

	assert.Equal(t, []string{
		"blender-4.2", "blender-4.1", "blender-4.0", "blender-3.6",
		"blender-3.3", "blender-2.93", "blender-2.79", "blender-2.49",
	}, candidateNames(candidates))
}

func TestCandidates_HeaderMatchPromotedToFront(t *testing.T) {
	header := &Header{Major: 3, Minor: 6}
	candidates := Candidates(header, "")

	names := candidateNames(candidates)
	assert.Equal(t, "blender-3.6", names[0])
	assert.Len(t, names, len(versionPreference), "promotion must not duplicate the matched build")
}

func TestCandidates_UnknownHeaderVersionLeavesOrder(t *testing.T) {
	header := &Header{Major: 5, Minor: 0}
	candidates := Candidates(header, "")

	assert.Equal(t, "blender-4.2", candidates[0].Name)
}

func TestCandidates_DefaultExecutableAppended(t *testing.T) {
	candidates := Candidates(nil, "blender")

	names := candidateNames(candidates)
	assert.Equal(t, "blender", names[len(names)-1])
	assert.False(t, candidates[len(candidates)-1].Legacy)
}

func TestCandidates_DefaultInheritsLegacyFromHeader(t *testing.T) {
	header := &Header{Major: 2, Minor: 49}
	candidates := Candidates(header, "blender")

	last := candidates[len(candidates)-1]
	assert.Equal(t, "blender", last.Name)
	assert.True(t, last.Legacy)
}

func TestCandidates_DefaultAlreadyInTableNotDuplicated(t *testing.T) {
	candidates := Candidates(nil, "blender-3.3")

	assert.Len(t, candidates, len(versionPreference))
}

func TestCandidates_LegacyFlagsCarriedFromTable(t *testing.T) {
	for _, candidate := range Candidates(nil, "") {
		switch candidate.Name {
		case "blender-2.79", "blender-2.49":
			assert.True(t, candidate.Legacy, candidate.Name)
		default:
			assert.False(t, candidate.Legacy, candidate.Name)
		}
	}
}
