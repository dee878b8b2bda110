package tools

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calbot/internal/calendar"
)

// Tool names.
const (
	ToolListEvents  = "list_events"
	ToolNextEvent   = "get_next_event"
	ToolCreateEvent = "create_event"
	ToolUpdateEvent = "update_event"
	ToolDeleteEvent = "delete_event"
	ToolFindEvent   = "find_event"
)

func calendarParam() mcp.ToolOption {
	return mcp.WithString("calendar",
		mcp.Description("Which calendar to use, by label (for example 'work'). Omit for the user's primary calendar."),
	)
}

// Catalog returns the fixed set of calendar tools.
func Catalog() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolListEvents,
			mcp.WithDescription("List events from the user's calendar. Use this to see what's scheduled."),
			calendarParam(),
			mcp.WithString("start_date",
				mcp.Description("Start date/time in ISO format (e.g., '2024-01-15T00:00:00'). Defaults to now."),
			),
			mcp.WithString("end_date",
				mcp.Description("End date/time in ISO format. Defaults to 7 days from now."),
			),
		),
		mcp.NewTool(ToolNextEvent,
			mcp.WithDescription("Get the single next upcoming event today. Use this when the user asks 'what's next' or 'what do I have coming up'."),
			mcp.WithBoolean("include_all_calendars",
				mcp.Description("Whether to check all of the user's calendars (default true)"),
			),
			calendarParam(),
		),
		mcp.NewTool(ToolCreateEvent,
			mcp.WithDescription("Create a new calendar event."),
			calendarParam(),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Event title"),
			),
			mcp.WithString("start_time",
				mcp.Required(),
				mcp.Description("Start time in ISO format (e.g., '2024-01-15T14:00:00-07:00')"),
			),
			mcp.WithString("end_time",
				mcp.Required(),
				mcp.Description("End time in ISO format"),
			),
			mcp.WithString("description",
				mcp.Description("Event description (optional)"),
			),
			mcp.WithString("color",
				mcp.Description("Event color (optional)"),
				mcp.Enum(calendar.ColorNames()...),
			),
			mcp.WithArray("attendees",
				mcp.Description("Attendee emails to invite (optional, follow-ups only)"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithBoolean("is_followup",
				mcp.Description("Set true for follow-up calls to add invites/reminders and format title"),
			),
		),
		mcp.NewTool(ToolUpdateEvent,
			mcp.WithDescription("Update an existing event. First use find_event to get the event ID."),
			calendarParam(),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("The event ID to update"),
			),
			mcp.WithString("title", mcp.Description("New title (optional)")),
			mcp.WithString("start_time", mcp.Description("New start time in ISO format (optional)")),
			mcp.WithString("end_time", mcp.Description("New end time in ISO format (optional)")),
			mcp.WithString("description", mcp.Description("New description (optional)")),
			mcp.WithString("color",
				mcp.Description("New color (optional)"),
				mcp.Enum(calendar.ColorNames()...),
			),
		),
		mcp.NewTool(ToolDeleteEvent,
			mcp.WithDescription("Delete an event. First use find_event to get the event ID."),
			calendarParam(),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("The event ID to delete"),
			),
		),
		mcp.NewTool(ToolFindEvent,
			mcp.WithDescription("Search for events by title/keyword. Returns event IDs needed for update/delete."),
			calendarParam(),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search term to find in event titles"),
			),
			mcp.WithString("start_date",
				mcp.Description("Start of search range (ISO format). Defaults to the start of today."),
			),
			mcp.WithString("end_date",
				mcp.Description("End of search range (ISO format). Defaults to 30 days from now."),
			),
		),
	}
}

// Specs converts the catalog to provider-neutral declarations.
func Specs() []Spec {
	catalog := Catalog()
	specs := make([]Spec, 0, len(catalog))
	for _, t := range catalog {
		schema := map[string]any{
			"type":       "object",
			"properties": t.InputSchema.Properties,
		}
		if len(t.InputSchema.Required) > 0 {
			schema["required"] = t.InputSchema.Required
		}
		specs = append(specs, Spec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return specs
}
