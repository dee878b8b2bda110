package calendar

import (
	"fmt"
	"strings"
)

// Color is one entry of the Google Calendar event palette.
type Color struct {
	ID   string
	Name string
	// Alias is Google's own name for the color in the web UI.
	Alias string
}

// Palette is the fixed 11-entry event color palette.
var Palette = []Color{
	{ID: "1", Name: "blue", Alias: "lavender"},
	{ID: "2", Name: "green", Alias: "sage"},
	{ID: "3", Name: "purple", Alias: "grape"},
	{ID: "4", Name: "red", Alias: "flamingo"},
	{ID: "5", Name: "yellow", Alias: "banana"},
	{ID: "6", Name: "orange", Alias: "tangerine"},
	{ID: "7", Name: "turquoise", Alias: "peacock"},
	{ID: "8", Name: "gray", Alias: "graphite"},
	{ID: "9", Name: "bold_blue", Alias: "blueberry"},
	{ID: "10", Name: "bold_green", Alias: "basil"},
	{ID: "11", Name: "bold_red", Alias: "tomato"},
}

// Well-known color ids used by event tagging.
const (
	ColorYellow    = "5"
	ColorGreen     = "2"
	ColorTurquoise = "7"
)

// ColorID resolves a symbolic color name, Google alias or numeric id to a
// palette id. Matching ignores case and treats spaces and hyphens as
// underscores.
func ColorID(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "grey" {
		key = "gray"
	}

	for _, c := range Palette {
		if key == c.ID || key == c.Name || key == c.Alias {
			return c.ID, nil
		}
	}
	return "", &ValidationError{
		Field:  "color",
		Reason: fmt.Sprintf("unknown color %q, want one of %s", name, strings.Join(ColorNames(), ", ")),
	}
}

// ColorName returns the symbolic name for a palette id, or "" if unknown.
func ColorName(id string) string {
	for _, c := range Palette {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

// ColorNames lists the symbolic names in palette order.
func ColorNames() []string {
	names := make([]string, len(Palette))
	for i, c := range Palette {
		names[i] = c.Name
	}
	return names
}
