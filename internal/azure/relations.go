package azure

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/metalagman/devboard/internal/workitem"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/webapi"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
)

// Hierarchy relation type names. Reverse points at the parent.
const (
	relParent = "System.LinkTypes.Hierarchy-Reverse"
	relChild  = "System.LinkTypes.Hierarchy-Forward"
)

func relName(kind workitem.RelationKind) (string, error) {
	switch kind {
	case workitem.ParentLink:
		return relParent, nil
	case workitem.ChildLink:
		return relChild, nil
	default:
		return "", fmt.Errorf("unknown relation kind %q", kind)
	}
}

// relationRecords keeps hierarchy links only. SourceOrdinal stays the index in
// the full list so removals address the right entry.
func relationRecords(rels *[]workitemtracking.WorkItemRelation) []workitem.RelationRecord {
	if rels == nil {
		return nil
	}
	var out []workitem.RelationRecord
	for i, r := range *rels {
		if r.Rel == nil || r.Url == nil {
			continue
		}
		var kind workitem.RelationKind
		switch *r.Rel {
		case relParent:
			kind = workitem.ParentLink
		case relChild:
			kind = workitem.ChildLink
		default:
			continue
		}
		id, ok := itemIDFromURL(*r.Url)
		if !ok {
			continue
		}
		out = append(out, workitem.RelationRecord{Kind: kind, TargetID: id, SourceOrdinal: i})
	}
	return out
}

// itemIDFromURL parses the trailing id of a work item resource URL.
func itemIDFromURL(raw string) (int, bool) {
	raw = strings.TrimRight(raw, "/")
	i := strings.LastIndex(raw, "/")
	if i < 0 {
		return 0, false
	}
	id, err := strconv.Atoi(raw[i+1:])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (c *Client) itemURL(id int) string {
	return c.cfg.orgURL() + "/_apis/wit/workItems/" + strconv.Itoa(id)
}

// relationPatch is the one-operation document for a relation intent.
func (c *Client) relationPatch(intent workitem.RelationIntent) (*[]webapi.JsonPatchOperation, error) {
	var op webapi.JsonPatchOperation
	switch intent.Action {
	case workitem.ActionAdd:
		rel, err := relName(intent.Kind)
		if err != nil {
			return nil, err
		}
		target := c.itemURL(intent.TargetID)
		kind := webapi.OperationValues.Add
		path := "/relations/-"
		op = webapi.JsonPatchOperation{
			Op:    &kind,
			Path:  &path,
			Value: workitemtracking.WorkItemRelation{Rel: &rel, Url: &target},
		}
	case workitem.ActionRemove:
		kind := webapi.OperationValues.Remove
		path := "/relations/" + strconv.Itoa(intent.Position)
		op = webapi.JsonPatchOperation{Op: &kind, Path: &path}
	default:
		return nil, fmt.Errorf("unknown relation action %q", intent.Action)
	}
	return &[]webapi.JsonPatchOperation{op}, nil
}

// ApplyRelation performs one relation intent against the intent's item.
func (c *Client) ApplyRelation(ctx context.Context, intent workitem.RelationIntent) error {
	doc, err := c.relationPatch(intent)
	if err != nil {
		return err
	}
	op := fmt.Sprintf("%s %s relation on %d", intent.Action, intent.Kind, intent.ItemID)
	_, err = c.patchItem(ctx, op, intent.ItemID, doc)
	return err
}
