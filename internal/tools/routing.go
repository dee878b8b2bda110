package tools

import (
	"strings"

	"github.com/teemow/calbot/internal/config"
)

// PrimaryLabel names the user's primary calendar.
const PrimaryLabel = "primary"

// Route maps a calendar label to a concrete calendar id.
type Route struct {
	Label    string
	Calendar string
	// Keywords matched as substrings of a requested label. The label itself
	// always matches.
	Keywords []string
}

// DefaultKeywords are used for well-known labels configured without keywords.
var DefaultKeywords = map[string][]string{
	"work":     {"work", "service", "docket"},
	"business": {"northstar", "roofing"},
}

// Router resolves calendar labels chosen by the model to calendar ids.
type Router struct {
	primary string
	routes  []Route
}

// NewRouter creates a router. Routes are tried in order.
func NewRouter(primary string, routes []Route) *Router {
	r := &Router{primary: primary}
	for _, rt := range routes {
		if rt.Calendar == "" {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(rt.Label))
		keywords := []string{label}
		src := rt.Keywords
		if len(src) == 0 {
			src = DefaultKeywords[label]
		}
		for _, kw := range src {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && kw != label {
				keywords = append(keywords, kw)
			}
		}
		r.routes = append(r.routes, Route{Label: label, Calendar: rt.Calendar, Keywords: keywords})
	}
	return r
}

// ProfileRouter builds the router for a user profile.
func ProfileRouter(p *config.UserProfile) *Router {
	routes := make([]Route, 0, len(p.Routes))
	for _, r := range p.Routes {
		routes = append(routes, Route{Label: r.Label, Calendar: r.Calendar, Keywords: r.Keywords})
	}
	return NewRouter(p.Calendar, routes)
}

// Primary returns the primary calendar id.
func (r *Router) Primary() string {
	return r.primary
}

// Resolve maps a label to a calendar id. A label matches a route when it
// contains one of the route's keywords, ignoring case. Empty or unmatched
// labels resolve to the primary calendar.
func (r *Router) Resolve(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return r.primary
	}
	for _, rt := range r.routes {
		for _, kw := range rt.Keywords {
			if kw != "" && strings.Contains(label, kw) {
				return rt.Calendar
			}
		}
	}
	return r.primary
}

// Label returns the label for a calendar id, or the id itself if unknown.
func (r *Router) Label(calendarID string) string {
	if calendarID == r.primary {
		return PrimaryLabel
	}
	for _, rt := range r.routes {
		if rt.Calendar == calendarID {
			return rt.Label
		}
	}
	return calendarID
}

// Labels returns the primary label followed by the route labels.
func (r *Router) Labels() []string {
	labels := []string{PrimaryLabel}
	for _, rt := range r.routes {
		labels = append(labels, rt.Label)
	}
	return labels
}

// Calendars returns every distinct calendar id, primary first.
func (r *Router) Calendars() []string {
	ids := []string{r.primary}
	seen := map[string]bool{r.primary: true}
	for _, rt := range r.routes {
		if !seen[rt.Calendar] {
			seen[rt.Calendar] = true
			ids = append(ids, rt.Calendar)
		}
	}
	return ids
}
