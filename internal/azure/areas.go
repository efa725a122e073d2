package azure

import (
	"context"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
)

// areaDepth bounds how deep the classification tree is fetched.
const areaDepth = 10

// AreaPaths returns every area path of the project, root first, depth first.
func (c *Client) AreaPaths(ctx context.Context) ([]string, error) {
	group := workitemtracking.TreeStructureGroupValues.Areas
	depth := areaDepth
	var root *workitemtracking.WorkItemClassificationNode
	err := c.callWIT(ctx, "get area paths", func(ctx context.Context, wit workitemtracking.Client) error {
		var err error
		root, err = wit.GetClassificationNode(ctx, workitemtracking.GetClassificationNodeArgs{
			Project:        &c.cfg.Project,
			StructureGroup: &group,
			Depth:          &depth,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}
	return flattenAreas(nil, "", *root), nil
}

func flattenAreas(out []string, prefix string, node workitemtracking.WorkItemClassificationNode) []string {
	name := ""
	if node.Name != nil {
		name = *node.Name
	}
	path := name
	if prefix != "" {
		path = prefix + `\` + name
	}
	out = append(out, path)
	if node.Children != nil {
		for _, child := range *node.Children {
			out = flattenAreas(out, path, child)
		}
	}
	return out
}
