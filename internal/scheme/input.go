package scheme

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/luc118i/operacional-app/internal/waypoint"
)

// DefaultDwellMin is the dwell time given to appended points without one.
const DefaultDwellMin = 5

// PointInput is a validated, strongly typed new point.
type PointInput struct {
	Waypoint       waypoint.Waypoint
	Kind           Kind
	Functions      []Function
	DwellMin       *int
	LegKm          float64
	DriveMin       int
	CustomSpeedKmh float64
	Justification  string
}

func (in PointInput) toPoint(id string) RoutePoint {
	dwell := DefaultDwellMin
	if in.DwellMin != nil {
		dwell = *in.DwellMin
	}
	return Normalize(RoutePoint{
		ID:             id,
		Waypoint:       in.Waypoint,
		Kind:           in.Kind,
		Functions:      in.Functions,
		LegKm:          in.LegKm,
		DriveMin:       in.DriveMin,
		DwellMin:       dwell,
		CustomSpeedKmh: in.CustomSpeedKmh,
		Justification:  in.Justification,
	})
}

// PointPatch carries the fields of an update; nil fields are left unchanged.
// A non-nil Functions replaces the set (an empty set re-derives it from the kind).
type PointPatch struct {
	Waypoint       *waypoint.Waypoint
	Kind           *Kind
	Functions      *[]Function
	DwellMin       *int
	LegKm          *float64
	DriveMin       *int
	CustomSpeedKmh *float64
	Justification  *string
}

// FieldError describes one invalid payload field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PointPayload is the edit payload accepted at the API boundary.
type PointPayload struct {
	Waypoint       *waypoint.Waypoint `json:"waypoint" validate:"required"`
	Kind           string             `json:"kind" validate:"required,oneof=PE PD PP PA TMJ PL"`
	Functions      []string           `json:"functions" validate:"omitempty,max=6,dive,required"`
	DwellMin       *int               `json:"dwell_min" validate:"omitempty,gte=0,lte=1440"`
	LegKm          *float64           `json:"leg_km" validate:"omitempty,gte=0,lte=5000"`
	DriveMin       *int               `json:"drive_min" validate:"omitempty,gte=0,lte=2880"`
	CustomSpeedKmh *float64           `json:"custom_speed_kmh" validate:"omitempty,gt=0,lte=150"`
	Justification  string             `json:"justification" validate:"max=1000"`
}

// PatchPayload is the update payload accepted at the API boundary.
type PatchPayload struct {
	Waypoint       *waypoint.Waypoint `json:"waypoint" validate:"omitempty"`
	Kind           *string            `json:"kind" validate:"omitempty,oneof=PE PD PP PA TMJ PL"`
	Functions      *[]string          `json:"functions" validate:"omitempty,max=6,dive,required"`
	DwellMin       *int               `json:"dwell_min" validate:"omitempty,gte=0,lte=1440"`
	LegKm          *float64           `json:"leg_km" validate:"omitempty,gte=0,lte=5000"`
	DriveMin       *int               `json:"drive_min" validate:"omitempty,gte=0,lte=2880"`
	CustomSpeedKmh *float64           `json:"custom_speed_kmh" validate:"omitempty,gt=0,lte=150"`
	Justification  *string            `json:"justification" validate:"omitempty,max=1000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Input validates the payload and converts it to a PointInput.
func (p PointPayload) Input() (PointInput, error) {
	fieldErrors := structErrors(validate.Struct(p))

	functions, fnErrors := parseFunctions(p.Functions)
	fieldErrors = append(fieldErrors, fnErrors...)

	if len(fieldErrors) > 0 {
		return PointInput{}, &ValidationError{Errors: fieldErrors}
	}

	in := PointInput{
		Waypoint:      *p.Waypoint,
		Kind:          Kind(p.Kind),
		Functions:     functions,
		DwellMin:      p.DwellMin,
		Justification: strings.TrimSpace(p.Justification),
	}
	if p.LegKm != nil {
		in.LegKm = *p.LegKm
	}
	if p.DriveMin != nil {
		in.DriveMin = *p.DriveMin
	}
	if p.CustomSpeedKmh != nil {
		in.CustomSpeedKmh = *p.CustomSpeedKmh
	}
	return in, nil
}

// Patch validates the payload and converts it to a PointPatch.
func (p PatchPayload) Patch() (PointPatch, error) {
	fieldErrors := structErrors(validate.Struct(p))

	patch := PointPatch{
		Waypoint:       p.Waypoint,
		DwellMin:       p.DwellMin,
		LegKm:          p.LegKm,
		DriveMin:       p.DriveMin,
		CustomSpeedKmh: p.CustomSpeedKmh,
		Justification:  p.Justification,
	}
	if p.Kind != nil {
		k := Kind(*p.Kind)
		patch.Kind = &k
	}
	if p.Functions != nil {
		functions, fnErrors := parseFunctions(*p.Functions)
		fieldErrors = append(fieldErrors, fnErrors...)
		patch.Functions = &functions
	}

	if len(fieldErrors) > 0 {
		return PointPatch{}, &ValidationError{Errors: fieldErrors}
	}
	return patch, nil
}

func parseFunctions(raw []string) ([]Function, []FieldError) {
	var (
		out  = make([]Function, 0, len(raw))
		errs []FieldError
	)
	for i, s := range raw {
		f, ok := ParseFunction(s)
		if !ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("functions[%d]", i),
				Message: fmt.Sprintf("unknown function %q", s),
			})
			continue
		}
		out = append(out, f)
	}
	return NormalizeFunctions(out), errs
}

func structErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: "payload", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return out
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
