package story

// WordPolicy adapts the requested word list to what a template expects.
type WordPolicy interface {
	Apply(words []string) []string
}

// Unrestricted passes word lists through unchanged.
type Unrestricted struct{}

// Apply returns a copy of words.
func (Unrestricted) Apply(words []string) []string {
	return append([]string{}, words...)
}

// FixedCount pads short lists from Fillers and truncates long ones so that
// templates written for exactly Count words always get them.
type FixedCount struct {
	Count   int
	Fillers []string
}

// Apply pads with fillers that are not already present, then truncates.
func (p FixedCount) Apply(words []string) []string {
	out := append([]string{}, words...)

	seen := make(map[string]struct{}, len(out))
	for _, word := range out {
		seen[word] = struct{}{}
	}

	for _, filler := range p.Fillers {
		if len(out) >= p.Count {
			break
		}

		if _, ok := seen[filler]; ok {
			continue
		}

		out = append(out, filler)
	}

	if len(out) > p.Count {
		out = out[:p.Count]
	}

	return out
}

// PolicyFor returns FixedCount when count is positive and Unrestricted otherwise.
func PolicyFor(count int, fillers []string) WordPolicy {
	if count <= 0 {
		return Unrestricted{}
	}

	return FixedCount{Count: count, Fillers: fillers}
}
