package taskview

import (
	"encoding/json"
	"strings"

	"intranet/internal/service"
)

// Unassigned is shown for tasks without an assignee.
const Unassigned = "Unassigned"

// AssigneeName returns a display name for the task's assignee. It reads the
// expanded person value first and falls back to the claims string, turning
// "i:0#.f|membership|jane.doe@contoso.com" into "jane doe".
func AssigneeName(t service.Task) string {
	if name := personName(t.AssignedTo); name != "" {
		return name
	}
	claims := t.AssignedToClaims
	if claims == "" {
		return Unassigned
	}
	if !strings.Contains(claims, "|") {
		return claims
	}
	email := claims[strings.LastIndex(claims, "|")+1:]
	user, _, _ := strings.Cut(email, "@")
	return strings.NewReplacer(".", " ", "_", " ").Replace(user)
}

func personName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		// A persisted person field is an array of entries.
		var field service.PersonField
		if json.Unmarshal(raw, &field) == nil && len(field) > 0 {
			return field[0].DisplayText
		}
		return ""
	}
	for _, k := range []string{"displayName", "DisplayName", "Title"} {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// PriorityLabel returns High, Medium or Low from the priority id, or
// Normal when the task has none.
func PriorityLabel(t service.Task) string {
	if p, ok := service.PriorityFromID(t.PriorityID); ok {
		return string(p)
	}
	return "Normal"
}
