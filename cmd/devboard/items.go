package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/metalagman/devboard/internal/board"
	"github.com/metalagman/devboard/internal/workitem"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func itemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage work items",
	}
	cmd.AddCommand(itemsListCmd())
	cmd.AddCommand(itemsShowCmd())
	cmd.AddCommand(itemsScoreCmd())
	cmd.AddCommand(itemsCreateCmd())
	cmd.AddCommand(itemsUpdateCmd())
	cmd.AddCommand(itemsSetParentCmd())
	cmd.AddCommand(itemsAddChildCmd())
	cmd.AddCommand(itemsRemoveChildCmd())
	return cmd
}

// categoryFlags binds the five category codes to flags.
type categoryFlags struct {
	sel workitem.CategorySelection
}

func (c *categoryFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&c.sel.GovType, "gov", 0, "governance type: 1 RTB, 2 GTB, 3 TTB, 4 Compliance, 5 Discretionary")
	fs.IntVar(&c.sel.Impact, "impact", 0, "impact: 1 High, 2 Medium, 3 Low")
	fs.IntVar(&c.sel.CostSavings, "cost", 0, "cost savings: 1 High, 2 Medium, 3 Low")
	fs.IntVar(&c.sel.EffortCategory, "effort-category", 0, "effort: 1 Low, 2 Medium, 3 High")
	fs.IntVar(&c.sel.Complexity, "complexity", 0, "complexity: 1 Low, 2 Medium, 3 High")
}

func (c *categoryFlags) changed(fs *pflag.FlagSet) bool {
	for _, name := range []string{"gov", "impact", "cost", "effort-category", "complexity"} {
		if fs.Changed(name) {
			return true
		}
	}
	return false
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid work item id %q", raw)
	}
	return id, nil
}

func itemsListCmd() *cobra.Command {
	var (
		spec     workitem.FilterSpec
		itemType string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items with their business value",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			model, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}
			if itemType != "" {
				t, err := workitem.ParseType(itemType)
				if err != nil {
					return err
				}
				spec.WorkItemType = string(t)
			}
			model.SetFilter(spec)
			views := model.Views()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			if len(views) == 0 {
				log.Info().Msg("no work items")
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderItems(views))
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&itemType, "type", "", "filter by work item type")
	fs.StringVar(&spec.AreaPath, "area", "", "filter by area path")
	fs.StringArrayVar(&spec.SelectedStates, "state", nil, "filter by state (repeatable)")
	fs.StringArrayVar(&spec.SelectedTags, "tag", nil, "filter by tag (repeatable)")
	fs.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func renderItems(views []workitem.View) string {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		parent := ""
		if v.ParentID != 0 {
			parent = strconv.Itoa(v.ParentID)
		}
		rows = append(rows, []string{
			strconv.Itoa(v.ID),
			string(v.Type),
			v.State,
			strconv.Itoa(v.Score),
			parent,
			v.Title,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TYPE", "STATE", "SCORE", "PARENT", "TITLE").
		Rows(rows...).
		String()
}

func itemsShowCmd() *cobra.Command {
	var (
		style string
		width int
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			model, err := svc.Load(cmd.Context())
			if err != nil {
				return err
			}
			v, ok := model.View(id)
			if !ok {
				return fmt.Errorf("work item %d not found", id)
			}
			out, err := board.Render(board.Markdown(v), style, width)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style (auto|dark|light|notty)")
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width")
	return cmd
}

func itemsScoreCmd() *cobra.Command {
	var (
		cats categoryFlags
		tags string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute a business value score and the matching tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tags != "" && !cats.changed(cmd.Flags()) {
				cats.sel = workitem.DecodeTags(tags)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "score: %d\n", workitem.ComputeScore(cats.sel))
			if !cats.sel.Complete() {
				fmt.Fprintln(w, "selection incomplete: every category is needed for a non-zero score")
			}
			_, err := fmt.Fprintf(w, "tags: %s\n", workitem.EncodeTags(tags, cats.sel))
			return err
		},
	}
	cats.register(cmd.Flags())
	cmd.Flags().StringVar(&tags, "tags", "", "existing tag field; decoded when no category flag is given")
	return cmd
}

func itemsCreateCmd() *cobra.Command {
	var (
		d        workitem.Draft
		itemType string
		cats     categoryFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a work item",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := workitem.ParseType(itemType)
			if err != nil {
				return err
			}
			draft := workitem.NewDraft(t)
			if d.State != "" {
				draft.State = d.State
			}
			draft.Title = d.Title
			draft.Description = d.Description
			draft.AreaPath = d.AreaPath
			draft.Tags = d.Tags
			draft.Effort = d.Effort
			draft.AcceptanceCriteria = d.AcceptanceCriteria
			draft.HistoryComment = d.HistoryComment
			draft.Categories = cats.sel

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			item, err := svc.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			log.Info().Int("item_id", item.ID).Int("score", item.BusinessValue).Msg("work item created")
			return writeJSON(cmd.OutOrStdout(), item)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&itemType, "type", string(workitem.TypeProductBacklogItem), "work item type")
	fs.StringVar(&d.Title, "title", "", "title")
	fs.StringVar(&d.Description, "description", "", "description")
	fs.StringVar(&d.State, "state", "", "state (defaults to the type's first state)")
	fs.StringVar(&d.AreaPath, "area", "", "area path")
	fs.StringVar(&d.Tags, "tags", "", "tags separated by ';'")
	fs.Float64Var(&d.Effort, "effort", 0, "effort")
	fs.StringVar(&d.AcceptanceCriteria, "acceptance-criteria", "", "acceptance criteria")
	fs.StringVar(&d.HistoryComment, "comment", "", "history comment")
	cats.register(fs)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// editFromFlags builds an edit from the flags the user actually set.
func editFromFlags(fs *pflag.FlagSet, cats categoryFlags) (workitem.Edit, error) {
	var e workitem.Edit
	str := func(name string) (*string, error) {
		if !fs.Changed(name) {
			return nil, nil
		}
		v, err := fs.GetString(name)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	var err error
	if e.Title, err = str("title"); err != nil {
		return e, err
	}
	if e.Description, err = str("description"); err != nil {
		return e, err
	}
	if e.State, err = str("state"); err != nil {
		return e, err
	}
	if e.AreaPath, err = str("area"); err != nil {
		return e, err
	}
	if e.Tags, err = str("tags"); err != nil {
		return e, err
	}
	if e.AcceptanceCriteria, err = str("acceptance-criteria"); err != nil {
		return e, err
	}
	if fs.Changed("effort") {
		v, err := fs.GetFloat64("effort")
		if err != nil {
			return e, err
		}
		e.Effort = &v
	}
	if cats.changed(fs) {
		sel := cats.sel
		e.Categories = &sel
	}
	e.HistoryComment, err = fs.GetString("comment")
	return e, err
}

func itemsUpdateCmd() *cobra.Command {
	var cats categoryFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			edit, err := editFromFlags(cmd.Flags(), cats)
			if err != nil {
				return err
			}
			if edit.Empty() {
				return fmt.Errorf("nothing to update")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			item, err := svc.Update(cmd.Context(), id, edit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), item)
		},
	}
	fs := cmd.Flags()
	fs.String("title", "", "title")
	fs.String("description", "", "description")
	fs.String("state", "", "state")
	fs.String("area", "", "area path")
	fs.String("tags", "", "tags separated by ';'")
	fs.Float64("effort", 0, "effort")
	fs.String("acceptance-criteria", "", "acceptance criteria")
	fs.String("comment", "", "history comment")
	cats.register(fs)
	return cmd
}

func itemsSetParentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-parent <id> <parent-id|0>",
		Short: "Move a work item under a parent; 0 detaches it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			parentID, err := parseID(args[1])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			intents, err := svc.SetParent(cmd.Context(), id, parentID)
			if err != nil {
				return err
			}
			return printIntents(cmd.OutOrStdout(), intents...)
		},
	}
}

func itemsAddChildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-child <parent-id> <child-id>",
		Short: "Link a child under a work item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, childID, err := parseIDPair(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			intent, err := svc.AddChild(cmd.Context(), parentID, childID)
			if err != nil {
				return err
			}
			return printIntents(cmd.OutOrStdout(), intent)
		},
	}
}

func itemsRemoveChildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-child <parent-id> <child-id>",
		Short: "Unlink a child from a work item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, childID, err := parseIDPair(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, closeFn, err := newTracker(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			intent, err := svc.RemoveChild(cmd.Context(), parentID, childID)
			if err != nil {
				return err
			}
			return printIntents(cmd.OutOrStdout(), intent)
		},
	}
}

func parseIDPair(args []string) (int, int, error) {
	a, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	b, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func printIntents(w io.Writer, intents ...workitem.RelationIntent) error {
	if len(intents) == 0 {
		_, err := fmt.Fprintln(w, "no change")
		return err
	}
	for _, in := range intents {
		if _, err := fmt.Fprintln(w, describeIntent(in)); err != nil {
			return err
		}
	}
	return nil
}

func describeIntent(in workitem.RelationIntent) string {
	if in.Action == workitem.ActionRemove {
		return fmt.Sprintf("#%d: removed %s link to #%d at position %d", in.ItemID, in.Kind, in.TargetID, in.Position)
	}
	return fmt.Sprintf("#%d: added %s link to #%d", in.ItemID, in.Kind, in.TargetID)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
