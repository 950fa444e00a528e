package domain

// PlaceholderColor is used for reference values that cannot be resolved
// against the loaded reference data.
const PlaceholderColor = "#808080"

// ReferenceKind names a reference lookup set.
type ReferenceKind string

const (
	RefStatus     ReferenceKind = "status"
	RefPriority   ReferenceKind = "priority"
	RefDepartment ReferenceKind = "department"
	RefType       ReferenceKind = "type"
)

// ReferenceItem is the shared shape of statuses, priorities, departments
// and ticket types. Immutable once loaded for the session.
type ReferenceItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// IsZero reports whether the item carries no data at all.
func (r ReferenceItem) IsZero() bool {
	return r.ID == "" && r.Name == "" && r.Color == ""
}

// Placeholder synthesizes a reference item for an unresolvable raw value.
func Placeholder(raw string) ReferenceItem {
	return ReferenceItem{ID: raw, Name: raw, Color: PlaceholderColor}
}
