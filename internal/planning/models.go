// Package planning manages scheme editing sessions: drafts that wrap a
// sequence editor, their persistence and their compliance evaluation.
package planning

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/luc118i/operacional-app/internal/scheme"
)

// Service errors.
var (
	ErrDraftNotFound   = errors.New("draft not found")
	ErrIncompleteDraft = errors.New("draft is not ready to be saved")
)

// Header is the descriptive part of a scheme being edited.
type Header struct {
	LineCode  string           `json:"line_code" validate:"required,max=20"`
	LineName  string           `json:"line_name" validate:"max=120"`
	Direction scheme.Direction `json:"direction" validate:"required,oneof=ida volta"`
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

// Validate checks the header fields.
func (h Header) Validate() error {
	err := validate.Struct(h)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &scheme.ValidationError{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, scheme.FieldError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %s validation", fe.Tag()),
		})
	}
	return out
}

// Draft is one editing session.
type Draft struct {
	ID        string
	Editor    *scheme.Editor
	CreatedAt time.Time

	mu       sync.Mutex
	header   Header
	schemeID string
	lastUsed time.Time
}

// Header returns the draft's header.
func (d *Draft) Header() Header {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.header
}

// SetHeader replaces the draft's header.
func (d *Draft) SetHeader(h Header) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.header = h
}

// SchemeID returns the id of the saved scheme, or "" for unsaved drafts.
func (d *Draft) SchemeID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.schemeID
}

func (d *Draft) touch(now time.Time) {
	d.mu.Lock()
	d.lastUsed = now
	d.mu.Unlock()
}

func (d *Draft) idleSince() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastUsed
}
