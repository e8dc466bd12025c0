package scheme

// Badge is a short marker shown next to a point for functions its kind does
// not already convey.
type Badge struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Badges returns the point's badges in fixed order: TM, AP, LV, EMB, DES.
// EMB and DES are omitted when the kind is already boarding or drop-off.
func Badges(p RoutePoint) []Badge {
	flags := p.Flags()
	badges := make([]Badge, 0, 5)

	if flags.DriverChange {
		badges = append(badges, Badge{Key: "TM", Title: "Driver change"})
	}
	if flags.SupportPoint {
		badges = append(badges, Badge{Key: "AP", Title: "Support point"})
	}
	if flags.FreeStop {
		badges = append(badges, Badge{Key: "LV", Title: "Free stop"})
	}
	if flags.Boarding && p.Kind != KindBoarding {
		badges = append(badges, Badge{Key: "EMB", Title: "Boarding"})
	}
	if flags.Dropoff && p.Kind != KindDropoff {
		badges = append(badges, Badge{Key: "DES", Title: "Drop-off"})
	}

	return badges
}
