package workitem

// RelationAction is what a relation intent asks the remote store to do.
type RelationAction string

// Relation actions.
const (
	ActionAdd    RelationAction = "add"
	ActionRemove RelationAction = "remove"
)

// RelationIntent is a single relation change on one item's relation list.
//
// Add intents carry TargetID. Remove intents carry Position, the index in the
// item's relation list at the time the intent was computed; TargetID is kept for
// logging only.
type RelationIntent struct {
	Action   RelationAction `json:"action"`
	ItemID   int            `json:"itemId"`
	TargetID int            `json:"targetId,omitempty"`
	Position int            `json:"positionIndex"`
	Kind     RelationKind   `json:"relationKind"`
}

// RelationEditor computes relation intents against a relation snapshot.
//
// The snapshot must be freshly read for the item being edited: remove positions
// are only valid against the list they were computed from.
type RelationEditor struct {
	index RelationIndex
}

// NewRelationEditor creates an editor over idx.
func NewRelationEditor(idx RelationIndex) RelationEditor {
	return RelationEditor{index: idx}
}

// SetParent moves itemID under parentID. parentID 0 only detaches the item.
//
// The result is at most a remove of the current parent link followed by an add
// of the new one, both on itemID. Re-parenting to the current parent yields
// no intents.
func (e RelationEditor) SetParent(itemID, parentID int) ([]RelationIntent, error) {
	if parentID == itemID {
		return nil, violation(itemID, parentID, "an item cannot be its own parent")
	}
	if parentID != 0 && e.index.HasChild(itemID, parentID) {
		return nil, violation(itemID, parentID, "a child cannot become its parent's parent")
	}

	current, hasParent := e.index.parentRecord(itemID)
	if hasParent && current.TargetID == parentID {
		return nil, nil
	}

	var intents []RelationIntent
	if hasParent {
		intents = append(intents, RelationIntent{
			Action:   ActionRemove,
			ItemID:   itemID,
			TargetID: current.TargetID,
			Position: current.SourceOrdinal,
			Kind:     ParentLink,
		})
	}
	if parentID != 0 {
		intents = append(intents, RelationIntent{
			Action:   ActionAdd,
			ItemID:   itemID,
			TargetID: parentID,
			Kind:     ParentLink,
		})
	}
	return intents, nil
}

// RemoveParent detaches itemID from its parent, if any.
func (e RelationEditor) RemoveParent(itemID int) ([]RelationIntent, error) {
	return e.SetParent(itemID, 0)
}

// AddChild links childID under parentID with a single intent on the parent.
// The remote store maintains the reverse link on the child.
func (e RelationEditor) AddChild(parentID, childID int) (RelationIntent, error) {
	if childID == parentID {
		return RelationIntent{}, violation(parentID, childID, "an item cannot be its own child")
	}
	if p, ok := e.index.ParentOf(parentID); ok && p == childID {
		return RelationIntent{}, violation(parentID, childID, "a parent cannot become its child's child")
	}
	if e.index.HasChild(parentID, childID) {
		return RelationIntent{}, violation(parentID, childID, "already a child")
	}
	return RelationIntent{
		Action:   ActionAdd,
		ItemID:   parentID,
		TargetID: childID,
		Kind:     ChildLink,
	}, nil
}

// RemoveChild unlinks childID from parentID by removing the parent's child link.
func (e RelationEditor) RemoveChild(parentID, childID int) (RelationIntent, error) {
	rec, ok := e.index.childRecord(parentID, childID)
	if !ok {
		return RelationIntent{}, violation(parentID, childID, "not a child")
	}
	return RelationIntent{
		Action:   ActionRemove,
		ItemID:   parentID,
		TargetID: childID,
		Position: rec.SourceOrdinal,
		Kind:     ChildLink,
	}, nil
}
