package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/weekendly/internal/domain"
)

// StatusView is everything `weekendly status` reports.
type StatusView struct {
	UserID     string
	Online     bool
	Forced     bool
	Since      time.Time
	LastSyncAt time.Time
	Queue      []domain.OfflineAction
	Error      string
	Notice     string
	Now        time.Time
}

// FormatStatus renders connectivity, the last sync and the queued actions.
func FormatStatus(v StatusView) string {
	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}
	var b strings.Builder

	conn := ConnectionIndicator(v.Online, len(v.Queue))
	if v.Forced {
		conn += " " + Dim("(forced)")
	}
	user := v.UserID
	if user == "" {
		user = Dim("(not set)")
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", Bold("Connection:"), conn))
	b.WriteString(fmt.Sprintf("%s  %s\n", Bold("User:      "), user))
	b.WriteString(fmt.Sprintf("%s  %s\n", Bold("Last sync: "), HumanTimestampFrom(v.LastSyncAt, now)))
	if v.Error != "" {
		b.WriteString(Fail(v.Error) + "\n")
	}
	if v.Notice != "" {
		b.WriteString(Warn(v.Notice) + "\n")
	}

	b.WriteString("\n")
	if len(v.Queue) == 0 {
		b.WriteString(Dim("No changes waiting to sync.") + "\n")
		return b.String()
	}
	b.WriteString(Header(Plural(len(v.Queue), "queued change")) + "\n")
	b.WriteString(FormatQueue(v.Queue, now))
	return b.String()
}

// FormatQueue renders the offline queue in replay order.
func FormatQueue(actions []domain.OfflineAction, now time.Time) string {
	headers := []string{"#", "ACTION", "PLAN", "FIELDS", "QUEUED", "ATTEMPTS"}
	rows := make([][]string, 0, len(actions))
	for i, a := range actions {
		attempts := Dim("0")
		if a.Attempts > 0 {
			attempts = StyleRed.Render(fmt.Sprintf("%d", a.Attempts))
			if a.LastError != "" {
				attempts += " " + Dim(a.LastError)
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			actionLabel(a.Type),
			Dim(ShortID(a.PlanID)),
			actionFields(a),
			HumanTimestampFrom(a.Time(), now),
			attempts,
		})
	}
	return RenderTable(headers, rows)
}

func actionLabel(t domain.ActionType) string {
	switch t {
	case domain.ActionCreate:
		return StyleGreen.Render(string(t))
	case domain.ActionDelete:
		return StyleRed.Render(string(t))
	default:
		return StyleYellow.Render(string(t))
	}
}

func actionFields(a domain.OfflineAction) string {
	if a.Data == nil {
		return Dim("-")
	}
	fields := a.Data.Fields()
	if len(fields) == 0 {
		return Dim("-")
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}
