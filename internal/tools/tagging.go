package tools

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/teemow/calbot/internal/calendar"
)

// Title prefixes applied on create.
const (
	WorkPrefix     = "SC - "
	PersonalPrefix = "P - "
)

var (
	workKeywords = []string{"work", "servicecore", "docket"}
	scWord       = regexp.MustCompile(`\bsc\b`)
)

// ApplyTag derives the title prefix and color of a new event from its title
// and the user's message. Work keywords win over "personal". Prefixes are
// never doubled.
func ApplyTag(title, userMessage string) (string, string) {
	title = strings.TrimSpace(title)
	combined := strings.ToLower(title + " " + userMessage)

	work := scWord.MatchString(combined)
	for _, kw := range workKeywords {
		if strings.Contains(combined, kw) {
			work = true
			break
		}
	}

	switch {
	case work:
		return withPrefix(title, WorkPrefix), calendar.ColorYellow
	case strings.Contains(combined, "personal"):
		return withPrefix(title, PersonalPrefix), calendar.ColorGreen
	default:
		return title, calendar.ColorTurquoise
	}
}

func withPrefix(title, prefix string) string {
	if strings.HasPrefix(title, prefix) {
		return title
	}
	return prefix + title
}

// FollowUpReminders are set on every follow-up call.
var FollowUpReminders = []calendar.Reminder{
	{Method: "email", Minutes: 30},
	{Method: "popup", Minutes: 10},
}

// FollowUp turns a topic into a phone call title and, when description is
// empty, the default invitation text.
func FollowUp(topic, description string) (string, string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "Follow Up"
	}
	if description == "" {
		description = fmt.Sprintf("I will call you at this time to discuss %s.", topic)
	}
	return "Phone Call - " + topic, description
}
