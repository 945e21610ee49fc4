package domain

// PlanUpdate is a shallow partial update: every non-nil field overwrites the
// whole field on the target plan. Supplying Schedule replaces every day.
type PlanUpdate struct {
	Name     *string   `json:"name,omitempty"`
	Color    *string   `json:"color,omitempty"`
	Category *Category `json:"category,omitempty"`
	Schedule *Schedule `json:"schedule,omitempty"`
}

// IsEmpty reports whether u touches no field.
func (u PlanUpdate) IsEmpty() bool {
	return u.Name == nil && u.Color == nil && u.Category == nil && u.Schedule == nil
}

// Fields lists the plan fields u overwrites.
func (u PlanUpdate) Fields() []Field {
	var fields []Field
	if u.Name != nil {
		fields = append(fields, FieldName)
	}
	if u.Color != nil {
		fields = append(fields, FieldColor)
	}
	if u.Category != nil {
		fields = append(fields, FieldCategory)
	}
	if u.Schedule != nil {
		fields = append(fields, FieldSchedule)
	}
	return fields
}

// Apply returns p with u merged in. p is not modified.
func (u PlanUpdate) Apply(p Plan) Plan {
	out := p.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Color != nil {
		out.Color = *u.Color
	}
	if u.Category != nil {
		out.Category = *u.Category
	}
	if u.Schedule != nil {
		out.Schedule = u.Schedule.Clone()
	}
	return out
}

// Merge folds later on top of u; fields set in later win.
func (u PlanUpdate) Merge(later PlanUpdate) PlanUpdate {
	out := u.Clone()
	if later.Name != nil {
		v := *later.Name
		out.Name = &v
	}
	if later.Color != nil {
		v := *later.Color
		out.Color = &v
	}
	if later.Category != nil {
		v := *later.Category
		out.Category = &v
	}
	if later.Schedule != nil {
		v := later.Schedule.Clone()
		out.Schedule = &v
	}
	return out
}

// Clone deep-copies u so callers can keep it past further mutations.
func (u PlanUpdate) Clone() PlanUpdate {
	var out PlanUpdate
	if u.Name != nil {
		v := *u.Name
		out.Name = &v
	}
	if u.Color != nil {
		v := *u.Color
		out.Color = &v
	}
	if u.Category != nil {
		v := *u.Category
		out.Category = &v
	}
	if u.Schedule != nil {
		v := u.Schedule.Clone()
		out.Schedule = &v
	}
	return out
}

// Only returns the subset of u restricted to fields.
func (u PlanUpdate) Only(fields ...Field) PlanUpdate {
	var out PlanUpdate
	for _, f := range fields {
		switch f {
		case FieldName:
			out.Name = u.Name
		case FieldColor:
			out.Color = u.Color
		case FieldCategory:
			out.Category = u.Category
		case FieldSchedule:
			out.Schedule = u.Schedule
		}
	}
	return out.Clone()
}
