// Package catalog holds the static activity, vibe, category and color
// data plans are built from. Entries are addressed by stable string IDs;
// icons are identifiers resolved by whatever renders them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/google/uuid"
)

type Activity struct {
	ID       string
	Name     string
	Icon     string
	Category domain.Category
}

type CategoryInfo struct {
	Value domain.Category
	Label string
}

type Color struct {
	Name string
	Hex  string
}

var Activities = []Activity{
	{ID: "1", Name: "Brunch", Icon: "coffee", Category: domain.CategoryFoodie},
	{ID: "2", Name: "Hike", Icon: "mountain", Category: domain.CategoryAdventurous},
	{ID: "3", Name: "Movie Night", Icon: "film", Category: domain.CategoryLazy},
	{ID: "4", Name: "Read a Book", Icon: "book-open", Category: domain.CategoryLazy},
	{ID: "5", Name: "Workout", Icon: "dumbbell", Category: domain.CategoryAdventurous},
	{ID: "6", Name: "Visit a Museum", Icon: "landmark", Category: domain.CategoryCreative},
	{ID: "7", Name: "Gardening", Icon: "sprout", Category: domain.CategoryFamily},
	{ID: "8", Name: "Beach Day", Icon: "waves", Category: domain.CategoryTravel},
	{ID: "9", Name: "Board Games", Icon: "dice", Category: domain.CategorySocial},
	{ID: "10", Name: "Cooking Class", Icon: "chef-hat", Category: domain.CategoryFoodie},
}

var Vibes = []domain.Vibe{
	{ID: "happy", Name: "Happy", Icon: "smile"},
	{ID: "relaxed", Name: "Relaxed", Icon: "wind"},
	{ID: "energetic", Name: "Energetic", Icon: "zap"},
}

var Categories = []CategoryInfo{
	{Value: domain.CategoryAll, Label: "All"},
	{Value: domain.CategoryLazy, Label: "Lazy Weekend"},
	{Value: domain.CategoryAdventurous, Label: "Adventurous"},
	{Value: domain.CategoryFamily, Label: "Family Fun"},
	{Value: domain.CategoryFoodie, Label: "Foodie"},
	{Value: domain.CategoryCreative, Label: "Creative"},
	{Value: domain.CategoryTravel, Label: "Travel"},
	{Value: domain.CategorySocial, Label: "Social"},
}

var Colors = []Color{
	{Name: "blue", Hex: domain.DefaultPlanColor},
	{Name: "red", Hex: "#ef4444"},
	{Name: "green", Hex: "#22c55e"},
	{Name: "amber", Hex: "#f59e0b"},
	{Name: "purple", Hex: "#a855f7"},
	{Name: "pink", Hex: "#ec4899"},
}

// LookupActivity finds a catalog activity by ID or case-insensitive name.
func LookupActivity(key string) (Activity, bool) {
	for _, a := range Activities {
		if a.ID == key || strings.EqualFold(a.Name, key) {
			return a, true
		}
	}
	return Activity{}, false
}

// LookupVibe finds a vibe by ID.
func LookupVibe(id string) (domain.Vibe, bool) {
	for _, v := range Vibes {
		if strings.EqualFold(v.ID, id) {
			return v, true
		}
	}
	return domain.Vibe{}, false
}

// ResolveColor maps a palette name to its hex value; anything else passes through.
func ResolveColor(s string) string {
	for _, c := range Colors {
		if strings.EqualFold(c.Name, s) {
			return c.Hex
		}
	}
	return s
}

// Schedule builds a ScheduledActivity for the catalog entry with a fresh
// instance ID.
func Schedule(activityKey, at, vibeID string) (domain.ScheduledActivity, error) {
	a, ok := LookupActivity(activityKey)
	if !ok {
		return domain.ScheduledActivity{}, fmt.Errorf("unknown activity %q", activityKey)
	}
	if vibeID == "" {
		vibeID = Vibes[0].ID
	}
	v, ok := LookupVibe(vibeID)
	if !ok {
		return domain.ScheduledActivity{}, fmt.Errorf("unknown vibe %q", vibeID)
	}
	return domain.ScheduledActivity{
		InstanceID: uuid.New().String(),
		ActivityID: a.ID,
		Name:       a.Name,
		Icon:       a.Icon,
		Category:   a.Category,
		Time:       at,
		Vibe:       v,
	}, nil
}
