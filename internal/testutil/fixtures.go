package testutil

import (
	"fmt"
	"sync/atomic"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/google/uuid"
)

var testInstanceCounter atomic.Int64

// Plan options
type PlanOption func(*domain.Plan)

func WithPlanID(id string) PlanOption {
	return func(p *domain.Plan) {
		p.ID = id
	}
}

func WithColor(c string) PlanOption {
	return func(p *domain.Plan) {
		p.Color = c
	}
}

func WithCategory(c domain.Category) PlanOption {
	return func(p *domain.Plan) {
		p.Category = c
	}
}

// WithDays replaces the schedule with empty days in the given order.
func WithDays(keys ...string) PlanOption {
	return func(p *domain.Plan) {
		p.Schedule = make(domain.Schedule, 0, len(keys))
		for _, k := range keys {
			p.Schedule = append(p.Schedule, domain.Day{Key: k, Activities: []domain.ScheduledActivity{}})
		}
	}
}

// WithActivities appends activities to an existing day of the plan.
func WithActivities(day string, acts ...domain.ScheduledActivity) PlanOption {
	return func(p *domain.Plan) {
		i := p.Schedule.Index(day)
		if i < 0 {
			p.Schedule = append(p.Schedule, domain.Day{Key: day, Activities: []domain.ScheduledActivity{}})
			i = len(p.Schedule) - 1
		}
		for _, a := range acts {
			p.Schedule[i].Activities = append(p.Schedule[i].Activities, a.Clone())
		}
	}
}

func NewTestPlan(name string, opts ...PlanOption) domain.Plan {
	p := domain.NewPlan(uuid.New().String(), name, domain.DefaultPlanColor)
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Activity options
type ActivityOption func(*domain.ScheduledActivity)

func WithInstanceID(id string) ActivityOption {
	return func(a *domain.ScheduledActivity) {
		a.InstanceID = id
	}
}

func WithTime(t string) ActivityOption {
	return func(a *domain.ScheduledActivity) {
		a.Time = t
	}
}

func WithLocation(name string) ActivityOption {
	return func(a *domain.ScheduledActivity) {
		a.Location = name
		a.LocationData = &domain.LocationData{Name: name}
	}
}

func NewTestActivity(name string, opts ...ActivityOption) domain.ScheduledActivity {
	n := testInstanceCounter.Add(1)
	a := domain.ScheduledActivity{
		InstanceID: fmt.Sprintf("inst-%d", n),
		ActivityID: fmt.Sprintf("%d", n),
		Name:       name,
		Icon:       "star",
		Category:   domain.CategoryAll,
		Time:       "10:00",
		Vibe:       domain.Vibe{ID: "happy", Name: "Happy", Icon: "smile"},
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}
