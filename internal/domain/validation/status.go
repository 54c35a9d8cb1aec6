package validation

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v2"
)

// Status is the derived display label of a case. It is never persisted.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusPending    Status = "pending"
)

// DeriveStatus computes the status from the invalid-field set and the
// prediction fields. model_prediction is consulted before human_prediction.
func DeriveStatus(rec Record, invalid *set.Set[string]) Status {
	if invalid != nil && !invalid.Empty() {
		return StatusIncomplete
	}
	if label := predictionLabel(rec["model_prediction"]); label != "" {
		return Status(label)
	}
	if label := predictionLabel(rec["human_prediction"]); label != "" {
		return Status(label)
	}
	return StatusComplete
}

// Result bundles the outcome of evaluating one record.
type Result struct {
	InvalidFields []string `json:"invalid_fields"`
	Status        Status   `json:"status"`
}

// Evaluate runs InvalidFields and DeriveStatus over rec.
func Evaluate(rec Record) Result {
	invalid := InvalidFields(rec)
	return Result{
		InvalidFields: SortedNames(invalid),
		Status:        DeriveStatus(rec, invalid),
	}
}

// IncompleteError is returned when an incomplete case is about to be accepted.
type IncompleteError struct {
	Fields []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("case is incomplete: %d invalid field(s): %s", len(e.Fields), strings.Join(e.Fields, ", "))
}

// CanAccept returns an *IncompleteError when rec still has invalid required fields.
func CanAccept(rec Record) error {
	invalid := InvalidFields(rec)
	if invalid.Empty() {
		return nil
	}
	return &IncompleteError{Fields: SortedNames(invalid)}
}

func predictionLabel(value any) string {
	value, ok := deref(value)
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s))
}
