package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tidwall/gjson"

	"github.com/diogo/agentdeck/internal/models"
)

// RenderComponents renders a message's component envelopes, one block per
// envelope, in arrival order.
func RenderComponents(events []models.UIEvent, width int) string {
	if len(events) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(events))
	for _, ev := range events {
		blocks = append(blocks, RenderDescriptor(ev.Component, width))
	}
	return strings.Join(blocks, "\n")
}

// RenderDescriptor renders one descriptor. Unknown types produce a visible
// error placeholder rather than disappearing.
func RenderDescriptor(d models.UIDescriptor, width int) string {
	switch d.Type {
	case models.ComponentTable:
		return renderTable(d, width)
	case models.ComponentCard:
		return renderCard(d, width)
	case models.ComponentSection:
		return renderSection(d, width)
	default:
		return placeholderStyle.Width(width - 2).Render(
			fmt.Sprintf("⚠ unsupported component type %q (id: %s)", d.Type, d.ID))
	}
}

// renderTable renders a table descriptor. Columns carry {key, label} pairs
// and each row maps column keys to cell values.
func renderTable(d models.UIDescriptor, width int) string {
	props := gjson.ParseBytes(d.Props)

	var parts []string
	if title := props.Get("title").String(); title != "" {
		parts = append(parts, componentTitleStyle.Render(title))
	}

	if props.Get("loading").Bool() {
		parts = append(parts, hintStyle.Render("loading..."))
		return componentBoxStyle.Width(width - 2).Render(strings.Join(parts, "\n"))
	}

	columns := props.Get("columns").Array()
	if len(columns) == 0 {
		parts = append(parts, hintStyle.Render("no data"))
		return componentBoxStyle.Width(width - 2).Render(strings.Join(parts, "\n"))
	}

	keys := make([]string, 0, len(columns))
	headers := make([]string, 0, len(columns))
	for _, col := range columns {
		key := col.Get("key").String()
		label := col.Get("label").String()
		if label == "" {
			label = key
		}
		keys = append(keys, key)
		headers = append(headers, label)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		}).
		Headers(headers...)

	for _, row := range props.Get("rows").Array() {
		cells := make([]string, 0, len(keys))
		for _, key := range keys {
			cells = append(cells, row.Get(key).String())
		}
		tbl = tbl.Row(cells...)
	}

	parts = append(parts, tbl.Render())
	parts = appendChildren(parts, d, width)
	return strings.Join(parts, "\n")
}

// renderCard renders a card descriptor: a headline value with optional
// description, unit, delta and trend marker.
func renderCard(d models.UIDescriptor, width int) string {
	props := gjson.ParseBytes(d.Props)

	var parts []string
	if title := props.Get("title").String(); title != "" {
		parts = append(parts, componentTitleStyle.Render(title))
	}

	if props.Get("loading").Bool() {
		parts = append(parts, hintStyle.Render("loading..."))
	} else {
		if value := props.Get("value"); value.Exists() {
			line := cardValueStyle.Render(value.String())
			if unit := props.Get("unit").String(); unit != "" {
				line += " " + cardDescStyle.Render(unit)
			}
			if marker := trendMarker(props); marker != "" {
				line += "  " + marker
			}
			parts = append(parts, line)
		}
		if desc := props.Get("description").String(); desc != "" {
			parts = append(parts, cardDescStyle.Render(desc))
		}
		if delta := props.Get("delta"); delta.Exists() {
			parts = append(parts, cardDescStyle.Render(fmt.Sprintf("Δ %s", delta.String())))
		}
	}

	parts = appendChildren(parts, d, width)
	return componentBoxStyle.Width(width - 2).Render(strings.Join(parts, "\n"))
}

// trendMarker maps the card trend field to a colored arrow.
func trendMarker(props gjson.Result) string {
	switch props.Get("trend").String() {
	case "up":
		return lipgloss.NewStyle().Foreground(colorSecondary).Render("▲")
	case "down":
		return lipgloss.NewStyle().Foreground(colorError).Render("▼")
	case "neutral":
		return lipgloss.NewStyle().Foreground(colorTextDim).Render("■")
	default:
		return ""
	}
}

// renderSection renders a section descriptor: a titled container whose
// children render nested below it.
func renderSection(d models.UIDescriptor, width int) string {
	props := gjson.ParseBytes(d.Props)

	var parts []string
	if title := props.Get("title").String(); title != "" {
		parts = append(parts, componentTitleStyle.Render(title))
	}
	if subtitle := props.Get("subtitle").String(); subtitle != "" {
		parts = append(parts, cardDescStyle.Render(subtitle))
	}
	if props.Get("loading").Bool() {
		parts = append(parts, hintStyle.Render("loading..."))
	}

	parts = appendChildren(parts, d, width)
	return componentBoxStyle.Width(width - 2).Render(strings.Join(parts, "\n"))
}

// appendChildren renders nested descriptors, indented one level.
func appendChildren(parts []string, d models.UIDescriptor, width int) []string {
	children := d.Children()
	if len(children) == 0 {
		return parts
	}

	childWidth := width - 2
	if childWidth < 20 {
		childWidth = 20
	}
	for _, child := range children {
		parts = append(parts, RenderDescriptor(child, childWidth))
	}
	return parts
}
