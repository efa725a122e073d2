package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/metalagman/devboard/internal/workitem"
)

// Markdown renders a work item view as a markdown document.
func Markdown(v workitem.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# #%d %s\n\n", v.ID, v.Title)
	fmt.Fprintf(&b, "**Type:** %s  \n", v.Type)
	fmt.Fprintf(&b, "**State:** %s  \n", v.State)
	if v.AreaPath != "" {
		fmt.Fprintf(&b, "**Area:** %s  \n", v.AreaPath)
	}
	if v.Effort != 0 {
		fmt.Fprintf(&b, "**Effort:** %g  \n", v.Effort)
	}
	fmt.Fprintf(&b, "**Business value:** %d\n\n", v.Score)

	b.WriteString("## Categories\n\n")
	labels := v.Categories.Labels()
	if len(labels) == 0 {
		b.WriteString("No categories selected.\n\n")
	} else {
		b.WriteString("| Category | Value |\n|---|---|\n")
		for _, name := range categoryOrder {
			if label, ok := labels[name]; ok {
				fmt.Fprintf(&b, "| %s | %s |\n", name, label)
			}
		}
		b.WriteString("\n")
	}

	if tags := workitem.StripCategoryTags(v.Tags); len(tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(tags, ", "))
	}

	if v.ParentID != 0 || len(v.Children) > 0 {
		b.WriteString("## Hierarchy\n\n")
		if v.ParentID != 0 {
			fmt.Fprintf(&b, "- Parent: #%d\n", v.ParentID)
		}
		for _, c := range v.Children {
			fmt.Fprintf(&b, "- Child: #%d\n", c)
		}
		b.WriteString("\n")
	}

	if v.Description != "" {
		fmt.Fprintf(&b, "## Description\n\n%s\n\n", v.Description)
	}
	if v.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "## Acceptance criteria\n\n%s\n", v.AcceptanceCriteria)
	}
	return b.String()
}

var categoryOrder = []string{"Gov", "Impact", "Cost", "Effort", "Complexity"}

// Render renders markdown for a terminal of the given width. style is a glamour
// standard style name such as "dark", "light" or "notty".
func Render(md, style string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
