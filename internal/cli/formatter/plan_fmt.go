package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/domain"
)

// FormatPlanList renders the user's plans as a table. The active plan is
// marked with ▸ and plans with unsynced changes show as pending.
func FormatPlanList(plans []domain.Plan, activeID string, pending []string) string {
	if len(plans) == 0 {
		return Dim("No plans yet. Create one with: weekendly plan add <name>") + "\n"
	}
	waiting := make(map[string]bool, len(pending))
	for _, id := range pending {
		waiting[id] = true
	}

	headers := []string{"", "ID", "NAME", "COLOR", "CATEGORY", "DAYS", "ACTIVITIES", "SYNC"}
	rows := make([][]string, 0, len(plans))
	for _, p := range plans {
		marker := " "
		name := p.Name
		if p.ID == activeID {
			marker = StyleHeader.Render("▸")
			name = Bold(p.Name)
		}
		sync := StyleGreen.Render("synced")
		switch {
		case p.IsTemporary():
			sync = StylePurple.Render("creating")
		case waiting[p.ID]:
			sync = StyleYellow.Render("pending")
		}
		rows = append(rows, []string{
			marker,
			Dim(ShortID(p.ID)),
			name,
			Swatch(p.Color),
			CategoryStyle(p.Category).Render(string(p.Category)),
			fmt.Sprintf("%d", len(p.Schedule)),
			fmt.Sprintf("%d", p.Schedule.ActivityCount()),
			sync,
		})
	}
	return RenderTable(headers, rows)
}

// FormatSchedule renders one plan day by day.
func FormatSchedule(p domain.Plan) string {
	var b strings.Builder
	title := fmt.Sprintf("%s  %s  %s", Bold(p.Name), Swatch(p.Color),
		CategoryStyle(p.Category).Render(string(p.Category)))
	b.WriteString(title + "\n\n")

	for i, day := range p.Schedule {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Header(DayLabel(day.Key)) + "\n")
		if len(day.Activities) == 0 {
			b.WriteString("  " + Dim("(nothing planned)") + "\n")
			continue
		}
		for _, a := range day.Activities {
			b.WriteString("  " + FormatActivity(a) + "\n")
		}
	}
	return b.String()
}

// FormatActivity renders one scheduled activity on a single line.
func FormatActivity(a domain.ScheduledActivity) string {
	at := a.Time
	if at == "" {
		at = "--:--"
	}
	parts := []string{StyleBlue.Render(at), a.Name}
	if a.Vibe.Name != "" {
		parts = append(parts, StylePurple.Render("("+strings.ToLower(a.Vibe.Name)+")"))
	}
	if loc := activityLocation(a); loc != "" {
		parts = append(parts, StyleGreen.Render("@ "+loc))
	}
	parts = append(parts, Dim("["+ShortID(a.InstanceID)+"]"))
	return strings.Join(parts, "  ")
}

func activityLocation(a domain.ScheduledActivity) string {
	if a.LocationData == nil {
		return a.Location
	}
	name := a.LocationData.Name
	if name == "" {
		name = a.Location
	}
	if c := a.LocationData.Coordinates; c != nil {
		return fmt.Sprintf("%s (%.4f, %.4f)", name, c.Lat, c.Lng)
	}
	return name
}
