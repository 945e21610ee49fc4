package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/alexanderramin/weekendly/internal/store"
)

// resolvePlanID finds a plan by exact ID, case-insensitive name or ID prefix,
// in that order.
func resolvePlanID(st store.State, input string) (string, error) {
	if input == "" {
		if st.ActivePlanID == "" {
			return "", store.ErrNoActivePlan
		}
		return st.ActivePlanID, nil
	}

	for _, p := range st.Plans {
		if p.ID == input {
			return p.ID, nil
		}
	}

	var named []string
	for _, p := range st.Plans {
		if strings.EqualFold(p.Name, input) {
			named = append(named, p.ID)
		}
	}
	if len(named) == 1 {
		return named[0], nil
	}
	if len(named) > 1 {
		return "", fmt.Errorf("plan name %q is ambiguous (%d matches), use the ID", input, len(named))
	}

	var matches []string
	for _, p := range st.Plans {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("plan not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("plan ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// activePlan returns the plan the day and activity commands act on.
func activePlan(st store.State) (domain.Plan, error) {
	p, ok := st.ActivePlan()
	if !ok {
		return domain.Plan{}, store.ErrNoActivePlan
	}
	return p, nil
}

// resolveInstance finds an activity of the plan by exact instance ID or
// unique prefix and returns the day it is on.
func resolveInstance(p domain.Plan, input string) (day string, act domain.ScheduledActivity, err error) {
	if input == "" {
		return "", act, fmt.Errorf("activity ID is required")
	}
	type hit struct {
		day string
		act domain.ScheduledActivity
	}
	var prefixed []hit
	for _, d := range p.Schedule {
		for _, a := range d.Activities {
			if a.InstanceID == input {
				return d.Key, a, nil
			}
			if strings.HasPrefix(a.InstanceID, input) {
				prefixed = append(prefixed, hit{d.Key, a})
			}
		}
	}
	switch len(prefixed) {
	case 0:
		return "", act, fmt.Errorf("activity not found: %q", input)
	case 1:
		return prefixed[0].day, prefixed[0].act, nil
	default:
		return "", act, fmt.Errorf("activity ID prefix %q is ambiguous (%d matches)", input, len(prefixed))
	}
}
