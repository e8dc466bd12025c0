package rules

// AlertLevel is the display level of a per-point alert.
type AlertLevel string

const (
	AlertError   AlertLevel = "error"
	AlertWarning AlertLevel = "warning"
)

// Alert is an issue as shown next to its point.
type Alert struct {
	Level    AlertLevel `json:"level"`
	RuleCode string     `json:"rule_code"`
	Message  string     `json:"message"`
}

// PointAlerts groups issues by point id. Issues not attached to a point are
// left out.
func PointAlerts(issues []Issue) map[string][]Alert {
	out := make(map[string][]Alert)
	for _, i := range issues {
		if i.PointID == "" {
			continue
		}
		level := AlertWarning
		if i.Severity == SeverityAlert {
			level = AlertError
		}
		out[i.PointID] = append(out[i.PointID], Alert{Level: level, RuleCode: i.RuleCode, Message: i.Message})
	}
	return out
}
