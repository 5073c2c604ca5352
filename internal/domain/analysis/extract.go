package analysis

// ExtractAnswer returns the first choice's effective text. Error state is not
// consulted and later choices are ignored: one analysis yields one finding.
func ExtractAnswer(r *Response) (string, bool) {
	if r == nil || len(r.Choices) == 0 {
		return "", false
	}
	return r.Choices[0].EffectiveText()
}
