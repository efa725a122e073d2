package workitem

import "fmt"

// ConstraintViolation is a rejected relation edit. Nothing was sent anywhere.
type ConstraintViolation struct {
	ItemID   int
	TargetID int
	Reason   string
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("work item %d -> %d: %s", e.ItemID, e.TargetID, e.Reason)
}

// ValidationError is a rejected field change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func violation(itemID, targetID int, reason string) error {
	return &ConstraintViolation{ItemID: itemID, TargetID: targetID, Reason: reason}
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
