package domain

import "strings"

const (
	DefaultPlanID    = "default_plan"
	DefaultPlanName  = "My First Weekend"
	DefaultPlanColor = "#0000ff"

	// TempIDPrefix marks a plan ID minted by the client while the backend
	// create call is still in flight.
	TempIDPrefix = "temp_"
)

// Plan is a named, colored, categorized weekend schedule owned by one user.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Category Category `json:"category"`
	Schedule Schedule `json:"schedule"`
}

// NewPlan builds a plan in the shape the backend creates: two empty
// weekend days and category "all".
func NewPlan(id, name, color string) Plan {
	return Plan{
		ID:       id,
		Name:     name,
		Color:    color,
		Category: CategoryAll,
		Schedule: DefaultSchedule(),
	}
}

// Clone returns a deep copy of p.
func (p Plan) Clone() Plan {
	p.Schedule = p.Schedule.Clone()
	return p
}

// IsTemporary reports whether the plan still carries a client-side placeholder ID.
func (p Plan) IsTemporary() bool {
	return IsTemporaryID(p.ID)
}

// IsTemporaryID reports whether id is a client-side placeholder.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Document returns the full set of plan fields as an update, which is how
// plans created offline are replayed.
func (p Plan) Document() PlanUpdate {
	name, color, category := p.Name, p.Color, p.Category
	schedule := p.Schedule.Clone()
	return PlanUpdate{Name: &name, Color: &color, Category: &category, Schedule: &schedule}
}

// ClonePlans deep-copies a plan slice.
func ClonePlans(plans []Plan) []Plan {
	if plans == nil {
		return nil
	}
	out := make([]Plan, len(plans))
	for i, p := range plans {
		out[i] = p.Clone()
	}
	return out
}
