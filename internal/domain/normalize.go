package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for titles and profile names.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeParticipants drops empty and duplicate ids, keeping the first occurrence.
// The result is never nil.
func NormalizeParticipants(ids []UserID) []UserID {
	out := make([]UserID, 0, len(ids))
	seen := make(map[UserID]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
