package cmd

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/teemow/calbot/internal/tools"
)

func TestGenerateToolsMarkdownCoversCatalog(t *testing.T) {
	md := generateToolsMarkdown(tools.Catalog())

	assert.True(t, strings.HasPrefix(md, "# Calendar Tools Reference\n"))
	for _, name := range []string{
		tools.ToolListEvents,
		tools.ToolNextEvent,
		tools.ToolCreateEvent,
		tools.ToolUpdateEvent,
		tools.ToolDeleteEvent,
		tools.ToolFindEvent,
	} {
		assert.Contains(t, md, "### "+name+"\n", "missing section for %s", name)
		assert.Contains(t, md, "- ["+name+"](#"+name+")", "missing toc entry for %s", name)
	}
	assert.Contains(t, md, "- `title` (required): ")
}

func TestGenerateToolMarkdown(t *testing.T) {
	tool := mcp.NewTool("sample",
		mcp.WithDescription("Does a thing."),
		mcp.WithString("b_opt", mcp.Description("Optional arg")),
		mcp.WithString("a_req", mcp.Required()),
	)

	got := generateToolMarkdown(tool)

	want := "### sample\n\n" +
		"Does a thing.\n\n" +
		"**Arguments:**\n" +
		"- `a_req` (required): string parameter\n" +
		"- `b_opt` (optional): Optional arg\n\n"
	assert.Equal(t, want, got)
}

func TestGenerateToolsMarkdownIsSorted(t *testing.T) {
	md := generateToolsMarkdown([]mcp.Tool{
		mcp.NewTool("zeta"),
		mcp.NewTool("alpha"),
	})

	assert.Less(t, strings.Index(md, "### alpha"), strings.Index(md, "### zeta"))
}

func TestPropertyLineListsEnumValues(t *testing.T) {
	got := propertyLine("color", map[string]any{
		"type":        "string",
		"description": "Event color",
		"enum":        []string{"red", "blue"},
	}, false)

	assert.Equal(t, "- `color` (optional): Event color. One of: `red`, `blue`\n", got)
}
