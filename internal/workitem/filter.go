package workitem

// FilterSpec narrows a work item list. Empty fields do not constrain.
type FilterSpec struct {
	AreaPath       string   `json:"areaPath,omitempty"`
	WorkItemType   string   `json:"workItemType,omitempty"`
	SelectedTags   []string `json:"selectedTags,omitempty"`
	SelectedStates []string `json:"selectedStates,omitempty"`
}

// Empty reports whether the spec constrains nothing.
func (f FilterSpec) Empty() bool {
	return f.AreaPath == "" && f.WorkItemType == "" && len(f.SelectedTags) == 0 && len(f.SelectedStates) == 0
}

// Apply returns the items matching every non-empty axis of spec, in input order.
//
// Tags match when any of the item's tags is selected. An empty spec returns
// items as given.
func Apply(items []WorkItem, spec FilterSpec) []WorkItem {
	if spec.Empty() {
		return items
	}
	tags := toSet(spec.SelectedTags)
	states := toSet(spec.SelectedStates)

	out := make([]WorkItem, 0, len(items))
	for _, item := range items {
		if spec.AreaPath != "" && item.AreaPath != spec.AreaPath {
			continue
		}
		if spec.WorkItemType != "" && string(item.Type) != spec.WorkItemType {
			continue
		}
		if len(states) > 0 && !states[item.State] {
			continue
		}
		if len(tags) > 0 && !anyTagIn(item.Tags, tags) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func anyTagIn(field string, set map[string]bool) bool {
	for _, t := range SplitTags(field) {
		if set[t] {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
