package blend

// Candidate is one versioned build of the external renderer, tried in
// order during extraction.
type Candidate struct {
	Name   string
	Path   string
	Legacy bool
}

// versionPreference is the static executable table, newest-first.
// Modern builds lead because they read the widest range of file
// versions; the legacy builds at the tail exist for files the modern
// loaders refuse.
var versionPreference = []Candidate{
	{Name: "blender-4.2"},
	{Name: "blender-4.1"},
	{Name: "blender-4.0"},
	{Name: "blender-3.6"},
	{Name: "blender-3.3"},
	{Name: "blender-2.93"},
	{Name: "blender-2.79", Legacy: true},
	{Name: "blender-2.49", Legacy: true},
}

// Candidates produces the ordered executable fallback chain for one
// extraction. When a parsed header names a version that exists in the
// preference table, that build is promoted to the front; the configured
// default executable is appended if not already present.
func Candidates(header *Header, defaultExecutable string) []Candidate {
	ordered := make([]Candidate, 0, len(versionPreference)+1)

	if header != nil {
		exact := "blender-" + header.Version()
		for _, candidate := range versionPreference {
			if candidate.Name == exact {
				ordered = append(ordered, candidate)
				break
			}
		}
	}

	for _, candidate := range versionPreference {
		if !containsCandidate(ordered, candidate.Name) {
			ordered = append(ordered, candidate)
		}
	}

	if defaultExecutable != "" && !containsCandidate(ordered, defaultExecutable) {
		legacy := header != nil && header.Legacy()
		ordered = append(ordered, Candidate{Name: defaultExecutable, Legacy: legacy})
	}

	return ordered
}

func containsCandidate(candidates []Candidate, name string) bool {
	for _, candidate := range candidates {
		if candidate.Name == name {
			return true
		}
	}
	return false
}
