package domain

// Vibe is the mood tag attached to a scheduled activity. Icon is a catalog
// identifier resolved at render time.
type Vibe struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type LocationData struct {
	Name        string       `json:"name"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// ScheduledActivity is one placement of a catalog activity on a day.
// InstanceID addresses the placement across the whole plan; ActivityID
// points back at the catalog entry.
type ScheduledActivity struct {
	InstanceID   string        `json:"instanceId"`
	ActivityID   string        `json:"id"`
	Name         string        `json:"name"`
	Icon         string        `json:"icon,omitempty"`
	Category     Category      `json:"category,omitempty"`
	Time         string        `json:"time"`
	Vibe         Vibe          `json:"vibe"`
	Location     string        `json:"location,omitempty"`
	LocationData *LocationData `json:"locationData,omitempty"`
}

// Clone returns a deep copy of a.
func (a ScheduledActivity) Clone() ScheduledActivity {
	if a.LocationData != nil {
		ld := *a.LocationData
		if ld.Coordinates != nil {
			c := *ld.Coordinates
			ld.Coordinates = &c
		}
		a.LocationData = &ld
	}
	return a
}
