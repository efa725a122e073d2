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

// Remote field reference names.
const (
	fieldType               = "System.WorkItemType"
	fieldState              = "System.State"
	fieldTitle              = "System.Title"
	fieldDescription        = "System.Description"
	fieldAreaPath           = "System.AreaPath"
	fieldTags               = "System.Tags"
	fieldEffort             = "Microsoft.VSTS.Scheduling.Effort"
	fieldBusinessValue      = "Microsoft.VSTS.Common.BusinessValue"
	fieldAcceptanceCriteria = "Microsoft.VSTS.Common.AcceptanceCriteria"
)

func toWorkItem(r *workitemtracking.WorkItem) workitem.WorkItem {
	if r == nil {
		return workitem.WorkItem{}
	}
	var fields map[string]any
	if r.Fields != nil {
		fields = *r.Fields
	}
	id := 0
	if r.Id != nil {
		id = *r.Id
	}
	return workitem.WorkItem{
		ID:                 id,
		Type:               workitem.Type(stringField(fields, fieldType)),
		State:              stringField(fields, fieldState),
		Title:              stringField(fields, fieldTitle),
		Description:        stringField(fields, fieldDescription),
		AreaPath:           stringField(fields, fieldAreaPath),
		Tags:               stringField(fields, fieldTags),
		Effort:             numberField(fields, fieldEffort),
		BusinessValue:      int(numberField(fields, fieldBusinessValue)),
		AcceptanceCriteria: stringField(fields, fieldAcceptanceCriteria),
	}
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func numberField(fields map[string]any, name string) float64 {
	switch v := fields[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// document converts a field patch into the SDK's JSON patch document.
func document(p workitem.Patch) *[]webapi.JsonPatchOperation {
	doc := make([]webapi.JsonPatchOperation, 0, len(p))
	for _, op := range p {
		kind := webapi.Operation(op.Op)
		path := op.Path
		doc = append(doc, webapi.JsonPatchOperation{Op: &kind, Path: &path, Value: op.Value})
	}
	return &doc
}

// ListWorkItems returns every item of a supported type in the project with its
// hierarchy relations.
func (c *Client) ListWorkItems(ctx context.Context) ([]workitem.WorkItem, map[int][]workitem.RelationRecord, error) {
	ids, err := c.queryIDs(ctx)
	if err != nil {
		return nil, nil, err
	}

	items := make([]workitem.WorkItem, 0, len(ids))
	relations := make(map[int][]workitem.RelationRecord, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		batch, err := c.fetchBatch(ctx, ids[start:end])
		if err != nil {
			return nil, nil, err
		}
		for i := range batch {
			r := &batch[i]
			// Items deleted since the query come back empty.
			if r.Id == nil {
				continue
			}
			items = append(items, toWorkItem(r))
			if recs := relationRecords(r.Relations); len(recs) > 0 {
				relations[*r.Id] = recs
			}
		}
	}
	return items, relations, nil
}

// Snapshot loads items, relations and area paths in one go.
func (c *Client) Snapshot(ctx context.Context) (workitem.Snapshot, error) {
	items, relations, err := c.ListWorkItems(ctx)
	if err != nil {
		return workitem.Snapshot{}, err
	}
	areas, err := c.AreaPaths(ctx)
	if err != nil {
		return workitem.Snapshot{}, err
	}
	return workitem.Snapshot{Items: items, Relations: relations, AreaPaths: areas}, nil
}

func wiqlQuery() string {
	quoted := make([]string, 0, len(workitem.Types))
	for _, t := range workitem.Types {
		quoted = append(quoted, "'"+string(t)+"'")
	}
	return fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project AND [System.WorkItemType] IN (%s) ORDER BY [System.Id]",
		strings.Join(quoted, ", "),
	)
}

func (c *Client) queryIDs(ctx context.Context) ([]int, error) {
	query := wiqlQuery()
	var result *workitemtracking.WorkItemQueryResult
	err := c.callWIT(ctx, "query work items", func(ctx context.Context, wit workitemtracking.Client) error {
		var err error
		result, err = wit.QueryByWiql(ctx, workitemtracking.QueryByWiqlArgs{
			Wiql:    &workitemtracking.Wiql{Query: &query},
			Project: &c.cfg.Project,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.WorkItems == nil {
		return nil, nil
	}
	ids := make([]int, 0, len(*result.WorkItems))
	for _, ref := range *result.WorkItems {
		if ref.Id != nil {
			ids = append(ids, *ref.Id)
		}
	}
	return ids, nil
}

func (c *Client) fetchBatch(ctx context.Context, ids []int) ([]workitemtracking.WorkItem, error) {
	expand := workitemtracking.WorkItemExpandValues.Relations
	policy := workitemtracking.WorkItemErrorPolicyValues.Omit
	var out *[]workitemtracking.WorkItem
	err := c.callWIT(ctx, "fetch work items", func(ctx context.Context, wit workitemtracking.Client) error {
		var err error
		out, err = wit.GetWorkItemsBatch(ctx, workitemtracking.GetWorkItemsBatchArgs{
			WorkItemGetRequest: &workitemtracking.WorkItemBatchGetRequest{
				Ids:         &ids,
				Expand:      &expand,
				ErrorPolicy: &policy,
			},
			Project: &c.cfg.Project,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return *out, nil
}

// GetWorkItem fetches one item with its current hierarchy relations.
func (c *Client) GetWorkItem(ctx context.Context, id int) (workitem.WorkItem, []workitem.RelationRecord, error) {
	expand := workitemtracking.WorkItemExpandValues.Relations
	var r *workitemtracking.WorkItem
	err := c.callWIT(ctx, fmt.Sprintf("get work item %d", id), func(ctx context.Context, wit workitemtracking.Client) error {
		var err error
		r, err = wit.GetWorkItem(ctx, workitemtracking.GetWorkItemArgs{
			Id:      &id,
			Project: &c.cfg.Project,
			Expand:  &expand,
		})
		return err
	})
	if err != nil {
		return workitem.WorkItem{}, nil, err
	}
	if r == nil {
		return workitem.WorkItem{}, nil, fmt.Errorf("get work item %d: %w", id, ErrNotFound)
	}
	return toWorkItem(r), relationRecords(r.Relations), nil
}

// CreateWorkItem creates an item and returns it as stored.
func (c *Client) CreateWorkItem(ctx context.Context, req workitem.CreateRequest) (workitem.WorkItem, error) {
	typeName := string(req.Type)
	var r *workitemtracking.WorkItem
	err := c.callWIT(ctx, "create "+typeName, func(ctx context.Context, wit workitemtracking.Client) error {
		var err error
		r, err = wit.CreateWorkItem(ctx, workitemtracking.CreateWorkItemArgs{
			Document: document(req.Patch),
			Project:  &c.cfg.Project,
			Type:     &typeName,
		})
		return err
	})
	if err != nil {
		return workitem.WorkItem{}, err
	}
	return toWorkItem(r), nil
}

// UpdateWorkItem applies a field patch and returns the item as stored.
func (c *Client) UpdateWorkItem(ctx context.Context, id int, patch workitem.Patch) (workitem.WorkItem, error) {
	if len(patch) == 0 {
		return workitem.WorkItem{}, fmt.Errorf("update work item %d: empty patch", id)
	}
	r, err := c.patchItem(ctx, fmt.Sprintf("update work item %d", id), id, document(patch))
	if err != nil {
		return workitem.WorkItem{}, err
	}
	return toWorkItem(r), nil
}

func (c *Client) patchItem(ctx context.Context, op string, id int, doc *[]webapi.JsonPatchOperation) (*workitemtracking.WorkItem, error) {
	var r *workitemtracking.WorkItem
	err := c.callWIT(ctx, op, func(ctx context.Context, wit workitemtracking.Client) error {
		var err error
		r, err = wit.UpdateWorkItem(ctx, workitemtracking.UpdateWorkItemArgs{
			Document: doc,
			Id:       &id,
			Project:  &c.cfg.Project,
		})
		return err
	})
	return r, err
}
