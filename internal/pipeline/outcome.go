package pipeline

import (
	"errors"
	"fmt"

	"github.com/gaiazov/PrintService/internal/domain"
)

// Outcome converts the result of a run into the response sent to callers.
// Page counts are only reported for runs that reached the printer.
func Outcome(res *Result, err error) domain.PrintOutcome {
	if err == nil {
		printed, total := 0, 0
		if res != nil && res.Report != nil {
			printed, total = res.Report.PagesPrinted, res.Report.TotalPages
		}
		return domain.PrintOutcome{Printed: true, Message: fmt.Sprintf("Printed %d of %d pages", printed, total)}
	}

	var pf *domain.PrintFailure
	if errors.As(err, &pf) {
		return domain.PrintOutcome{Message: fmt.Sprintf("Printed %d of %d pages: %v", pf.PagesCompleted, pf.TotalPages, pf.Err)}
	}

	var de *domain.DomainError
	if errors.As(err, &de) {
		return domain.PrintOutcome{Message: de.Message}
	}
	return domain.PrintOutcome{Message: err.Error()}
}
