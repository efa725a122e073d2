package workitem

import "strings"

// Reserved tag prefixes carrying category selections.
const (
	PrefixGov        = "Gov:"
	PrefixImpact     = "Impact:"
	PrefixCost       = "Cost:"
	PrefixEffort     = "Effort:"
	PrefixComplexity = "Complexity:"
)

const tagSeparator = "; "

// CategorySelection is the five-axis business-value judgment. Zero means absent.
type CategorySelection struct {
	GovType        int `json:"govType,omitempty"`
	Impact         int `json:"impact,omitempty"`
	CostSavings    int `json:"costSavings,omitempty"`
	EffortCategory int `json:"effortCategory,omitempty"`
	Complexity     int `json:"complexity,omitempty"`
}

type category struct {
	prefix string
	labels []string // labels[code-1]
	get    func(CategorySelection) int
	set    func(*CategorySelection, int)
}

// categories is in emission order.
var categories = []category{
	{
		prefix: PrefixGov,
		labels: []string{"RTB", "GTB", "TTB", "Compliance", "Discretionary"},
		get:    func(c CategorySelection) int { return c.GovType },
		set:    func(c *CategorySelection, v int) { c.GovType = v },
	},
	{
		prefix: PrefixImpact,
		labels: []string{"High", "Medium", "Low"},
		get:    func(c CategorySelection) int { return c.Impact },
		set:    func(c *CategorySelection, v int) { c.Impact = v },
	},
	{
		prefix: PrefixCost,
		labels: []string{"High", "Medium", "Low"},
		get:    func(c CategorySelection) int { return c.CostSavings },
		set:    func(c *CategorySelection, v int) { c.CostSavings = v },
	},
	{
		prefix: PrefixEffort,
		labels: []string{"Low", "Medium", "High"},
		get:    func(c CategorySelection) int { return c.EffortCategory },
		set:    func(c *CategorySelection, v int) { c.EffortCategory = v },
	},
	{
		prefix: PrefixComplexity,
		labels: []string{"Low", "Medium", "High"},
		get:    func(c CategorySelection) int { return c.Complexity },
		set:    func(c *CategorySelection, v int) { c.Complexity = v },
	},
}

func (c category) label(code int) (string, bool) {
	if code < 1 || code > len(c.labels) {
		return "", false
	}
	return c.labels[code-1], true
}

func (c category) code(label string) int {
	for i, l := range c.labels {
		if l == label {
			return i + 1
		}
	}
	return 0
}

// Complete reports whether all five fields hold a code from their table.
func (c CategorySelection) Complete() bool {
	for _, cat := range categories {
		if _, ok := cat.label(cat.get(c)); !ok {
			return false
		}
	}
	return true
}

// Labels returns the display label per prefix for the fields that are set.
func (c CategorySelection) Labels() map[string]string {
	out := make(map[string]string, len(categories))
	for _, cat := range categories {
		if label, ok := cat.label(cat.get(c)); ok {
			out[strings.TrimSuffix(cat.prefix, ":")] = label
		}
	}
	return out
}

// CategoryLabels returns the label table for a reserved prefix, indexed by code-1.
func CategoryLabels(prefix string) []string {
	for _, cat := range categories {
		if cat.prefix == prefix {
			return append([]string(nil), cat.labels...)
		}
	}
	return nil
}

// SplitTags splits a tag field on ';', trims entries and drops empty ones.
func SplitTags(tags string) []string {
	parts := strings.Split(tags, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsCategoryTag reports whether a tag starts with a reserved prefix.
func IsCategoryTag(tag string) bool {
	for _, cat := range categories {
		if strings.HasPrefix(tag, cat.prefix) {
			return true
		}
	}
	return false
}

// StripCategoryTags returns the non-category tags in their original order.
func StripCategoryTags(tags string) []string {
	all := SplitTags(tags)
	out := all[:0]
	for _, t := range all {
		if !IsCategoryTag(t) {
			out = append(out, t)
		}
	}
	return out
}

// EncodeTags replaces the category tags in existing with the ones for sel.
//
// Non-category tags keep their relative order. Any tag with a reserved prefix is
// regenerated, including ones whose label is not in the table.
func EncodeTags(existing string, sel CategorySelection) string {
	out := StripCategoryTags(existing)
	for _, cat := range categories {
		if label, ok := cat.label(cat.get(sel)); ok {
			out = append(out, cat.prefix+label)
		}
	}
	return strings.Join(out, tagSeparator)
}

// DecodeTags reads the category selection out of a tag field.
//
// The first tag per prefix wins. Unknown labels leave the field absent; they are
// not reported since other tools may share a prefix.
func DecodeTags(tags string) CategorySelection {
	var sel CategorySelection
	seen := make(map[string]bool, len(categories))
	for _, t := range SplitTags(tags) {
		for _, cat := range categories {
			if seen[cat.prefix] || !strings.HasPrefix(t, cat.prefix) {
				continue
			}
			seen[cat.prefix] = true
			cat.set(&sel, cat.code(strings.TrimSpace(strings.TrimPrefix(t, cat.prefix))))
		}
	}
	return sel
}
