package workitem

import "strings"

// Field paths understood by the remote store.
const (
	PathTitle              = "/fields/System.Title"
	PathDescription        = "/fields/System.Description"
	PathState              = "/fields/System.State"
	PathAreaPath           = "/fields/System.AreaPath"
	PathTags               = "/fields/System.Tags"
	PathEffort             = "/fields/Microsoft.VSTS.Scheduling.Effort"
	PathBusinessValue      = "/fields/Microsoft.VSTS.Common.BusinessValue"
	PathAcceptanceCriteria = "/fields/Microsoft.VSTS.Common.AcceptanceCriteria"
	PathHistory            = "/fields/System.History"
)

// Patch operations.
const (
	OpAdd     = "add"
	OpReplace = "replace"
	OpRemove  = "remove"
)

// PatchOp is one JSON-Patch style change.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Patch is an ordered list of changes to one work item.
type Patch []PatchOp

// Value returns the value of the first op on path.
func (p Patch) Value(path string) (any, bool) {
	for _, op := range p {
		if op.Path == path {
			return op.Value, true
		}
	}
	return nil, false
}

// CreateRequest is the payload for creating a work item.
type CreateRequest struct {
	Type  Type  `json:"workItemType"`
	Patch Patch `json:"patch"`
}

func createPatch(d Draft) Patch {
	p := Patch{
		{Op: OpAdd, Path: PathTitle, Value: d.Title},
		{Op: OpAdd, Path: PathDescription, Value: d.Description},
		{Op: OpAdd, Path: PathState, Value: d.State},
	}
	if d.AreaPath != "" {
		p = append(p, PatchOp{Op: OpAdd, Path: PathAreaPath, Value: d.AreaPath})
	}
	tags := EncodeTags(d.Tags, d.Categories)
	if tags != "" {
		p = append(p, PatchOp{Op: OpAdd, Path: PathTags, Value: tags})
	}
	if d.Type == TypeProductBacklogItem && d.Effort > 0 {
		p = append(p, PatchOp{Op: OpAdd, Path: PathEffort, Value: d.Effort})
	}
	p = append(p, PatchOp{Op: OpAdd, Path: PathBusinessValue, Value: ComputeScore(d.Categories)})
	if d.AcceptanceCriteria != "" {
		p = append(p, PatchOp{Op: OpAdd, Path: PathAcceptanceCriteria, Value: d.AcceptanceCriteria})
	}
	if c := strings.TrimSpace(d.HistoryComment); c != "" {
		p = append(p, PatchOp{Op: OpAdd, Path: PathHistory, Value: c})
	}
	return p
}

func updatePatch(item WorkItem, e Edit) Patch {
	var p Patch
	if e.Title != nil {
		p = append(p, PatchOp{Op: OpReplace, Path: PathTitle, Value: strings.TrimSpace(*e.Title)})
	}
	if e.Description != nil {
		p = append(p, PatchOp{Op: OpReplace, Path: PathDescription, Value: *e.Description})
	}
	if e.State != nil {
		p = append(p, PatchOp{Op: OpReplace, Path: PathState, Value: *e.State})
	}
	if e.AreaPath != nil {
		p = append(p, PatchOp{Op: OpReplace, Path: PathAreaPath, Value: *e.AreaPath})
	}
	if e.Tags != nil || e.Categories != nil {
		base := item.Tags
		if e.Tags != nil {
			base = *e.Tags
		}
		sel := item.Categories()
		if e.Categories != nil {
			sel = *e.Categories
		}
		p = append(p, PatchOp{Op: OpReplace, Path: PathTags, Value: EncodeTags(base, sel)})
	}
	if e.Effort != nil && item.Type == TypeProductBacklogItem {
		p = append(p, PatchOp{Op: OpReplace, Path: PathEffort, Value: *e.Effort})
	}
	if e.Categories != nil {
		p = append(p, PatchOp{Op: OpReplace, Path: PathBusinessValue, Value: ComputeScore(*e.Categories)})
	}
	if e.AcceptanceCriteria != nil {
		p = append(p, PatchOp{Op: OpReplace, Path: PathAcceptanceCriteria, Value: *e.AcceptanceCriteria})
	}
	if c := strings.TrimSpace(e.HistoryComment); c != "" {
		p = append(p, PatchOp{Op: OpAdd, Path: PathHistory, Value: c})
	}
	return p
}
