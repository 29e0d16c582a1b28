package prepare

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrEmptyInput is returned when Prepare receives no records.
var ErrEmptyInput = eris.New("prepare: empty input")

// Issue describes one invalid field of one input row.
type Issue struct {
	Row    int    `json:"row"`
	Entity string `json:"entity,omitempty"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	if i.Entity != "" {
		return fmt.Sprintf("row %d (%s): %s %s", i.Row, i.Entity, i.Field, i.Reason)
	}
	return fmt.Sprintf("row %d: %s %s", i.Row, i.Field, i.Reason)
}

// ValidationError aborts a run whose input cannot be fully derived.
// Issues covers every offending row and field, in input order.
type ValidationError struct {
	Issues []Issue
}

// maxIssuesInMessage bounds how many issues Error() spells out.
const maxIssuesInMessage = 5

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "prepare: %d invalid field(s)", len(e.Issues))
	for i, issue := range e.Issues {
		if i == maxIssuesInMessage {
			fmt.Fprintf(&sb, "; and %d more", len(e.Issues)-maxIssuesInMessage)
			break
		}
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(issue.String())
	}
	return sb.String()
}

// Rows returns the distinct row indices that failed validation, ascending.
func (e *ValidationError) Rows() []int {
	var rows []int
	for _, issue := range e.Issues {
		if len(rows) == 0 || rows[len(rows)-1] != issue.Row {
			rows = append(rows, issue.Row)
		}
	}
	return rows
}
