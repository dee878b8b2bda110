package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/teemow/calbot/internal/calendar"
	"github.com/teemow/calbot/internal/timezone"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type listArgs struct {
	Calendar  string `json:"calendar"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type nextArgs struct {
	Calendar            string `json:"calendar"`
	IncludeAllCalendars *bool  `json:"include_all_calendars"`
}

type createArgs struct {
	Calendar    string   `json:"calendar"`
	Title       string   `json:"title" validate:"required_without=IsFollowup"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Attendees   []string `json:"attendees" validate:"omitempty,dive,email"`
	IsFollowup  bool     `json:"is_followup"`
}

type updateArgs struct {
	Calendar    string  `json:"calendar"`
	EventID     string  `json:"event_id" validate:"required"`
	Title       *string `json:"title"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

type deleteArgs struct {
	Calendar string `json:"calendar"`
	EventID  string `json:"event_id" validate:"required"`
}

type findArgs struct {
	Calendar  string `json:"calendar"`
	Query     string `json:"query" validate:"required"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// decode unmarshals and validates tool input. Empty input is treated as {}.
func decode(input json.RawMessage, v any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		input = json.RawMessage("{}")
	}
	if err := json.Unmarshal(input, v); err != nil {
		return &ValidationError{Reason: fmt.Sprintf("malformed arguments: %v", err)}
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fe.Field(), Reason: describe(fe)}
		}
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "email":
		return fmt.Sprintf("%q is not an email address", fe.Value())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// parseTime reads an ISO timestamp. Values without an offset are local to loc.
func parseTime(field, s string, loc *time.Location) (time.Time, error) {
	t, err := timezone.ParseTime(s, loc)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: fmt.Sprintf("cannot parse %q as a date/time", s)}
	}
	return t, nil
}

// parseWindow reads optional bounds; empty strings stay zero.
func parseWindow(start, end string, loc *time.Location) (calendar.Window, error) {
	var w calendar.Window
	var err error
	if start != "" {
		if w.Start, err = parseTime("start_date", start, loc); err != nil {
			return w, err
		}
	}
	if end != "" {
		if w.End, err = parseTime("end_date", end, loc); err != nil {
			return w, err
		}
	}
	return w, nil
}
