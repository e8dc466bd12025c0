package remote

// Evaluation is the per-position evaluation returned by the compliance service.
type Evaluation struct {
	SchemeID string            `json:"scheme_id"`
	Count    int               `json:"quantidade"`
	Points   []PointEvaluation `json:"avaliacao"`
}

// PointEvaluation holds every rule result for one scheme position.
type PointEvaluation struct {
	Position   int      `json:"ordem"`
	WaypointID string   `json:"location_id"`
	Results    []Result `json:"results"`
}

// Result is one rule outcome. Status is OK, ALERT or SUGGESTION; the service
// may also answer with ALERTA or SUGESTAO.
type Result struct {
	Rule      string     `json:"rule"`
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Violation *Violation `json:"violation,omitempty"`
}

// Violation details a failed rule.
type Violation struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Severity    string       `json:"severity"`
	ThresholdKm *float64     `json:"threshold_km,omitempty"`
	CurrentKm   *float64     `json:"current_km,omitempty"`
	DeltaKm     *float64     `json:"delta_km,omitempty"`
	Expected    *Expected    `json:"expected,omitempty"`
	Remediation *Remediation `json:"remediation,omitempty"`
}

// Expected names the function and point type that would satisfy the rule.
type Expected struct {
	Function  string `json:"function,omitempty"`
	PointType string `json:"point_type,omitempty"`
}

// Remediation tells where a missing point should go.
type Remediation struct {
	TargetPosition   int    `json:"target_ordem"`
	TargetWaypointID string `json:"target_location_id"`
	Suggestion       string `json:"suggestion"`
}
