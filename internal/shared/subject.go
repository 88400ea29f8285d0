package shared

// Subject is the snapshot of the signed-in user a session carries. It is
// the record persisted across restarts: grant IDs decide every
// authorization outcome, the token feeds outbound request decoration.
// Credential material never enters a Subject.
type Subject struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Token    string   `json:"token"`
	Grants   []string `json:"grants"`
}

// HasGrant reports whether the subject holds the given grant ID.
func (s *Subject) HasGrant(id string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.Grants {
		if g == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate session state.
func (s *Subject) Clone() *Subject {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Grants = append([]string(nil), s.Grants...)
	return &dup
}
