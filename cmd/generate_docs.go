package cmd

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/calbot/internal/tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate calendar tool documentation",
		Long: `Generate markdown documentation for the calendar tool catalog.
The output is built from the same declarations the model and the MCP server
see, so it stays in sync with the tools.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	markdown := generateToolsMarkdown(tools.Catalog())

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(catalog []mcp.Tool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Calendar Tools Reference\n\n")
	sb.WriteString("This document lists the tools the assistant can call, both from Slack and when running `calbot mcp`.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	sorted := make([]mcp.Tool, len(catalog))
	copy(sorted, catalog)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	for _, tool := range sorted {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", tool.Name, tool.Name))
	}
	sb.WriteString("\n")

	// Calendar selection note
	sb.WriteString("## Calendar Selection\n\n")
	sb.WriteString("Most tools accept an optional `calendar` parameter naming one of the user's calendar labels:\n\n")
	sb.WriteString("- **Default behavior:** If `calendar` is not specified, or names an unknown label, the primary calendar is used\n")
	sb.WriteString("- **Labels:** Labels and the calendars they map to come from the user's profile (e.g., `work`, `personal`)\n")
	sb.WriteString("- **Times:** Times without an offset are read in the user's time zone\n\n")

	sb.WriteString("## Tools\n\n")
	for _, tool := range sorted {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}

	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))
	if tool.Description != "" {
		sb.WriteString(tool.Description + "\n\n")
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return sb.String()
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	sb.WriteString("**Arguments:**\n")
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		sb.WriteString(propertyLine(name, prop, slices.Contains(tool.InputSchema.Required, name)))
	}
	sb.WriteString("\n")

	return sb.String()
}

// propertyLine renders one argument, e.g.
// "- `color` (optional): Event color. One of: `red`, `blue`".
func propertyLine(name string, prop map[string]any, required bool) string {
	requiredStr := "optional"
	if required {
		requiredStr = "required"
	}

	desc, _ := prop["description"].(string)
	if desc == "" {
		propType, ok := prop["type"].(string)
		if !ok {
			propType = "any"
		}
		desc = propType + " parameter"
	}

	line := fmt.Sprintf("- `%s` (%s): %s", name, requiredStr, desc)
	if values := enumValues(prop["enum"]); len(values) > 0 {
		line += ". One of: `" + strings.Join(values, "`, `") + "`"
	}
	return line + "\n"
}

func enumValues(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, val := range vals {
			out = append(out, fmt.Sprint(val))
		}
		return out
	default:
		return nil
	}
}
