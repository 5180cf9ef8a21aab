package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/studyflow/internal/model"
	"github.com/verte-zerg/studyflow/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Logs     []model.LogEntry
	Subjects []model.SubjectAggregate
	Days     []model.DayTotal
	Summary  Summary
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, filter model.LogFilter) (Report, error) {
	logs, err := st.ListLogs(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	subjects, err := st.SubjectTotals(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Logs:     logs,
		Subjects: subjects,
		Days:     DailyTotals(logs, time.Local),
		Summary:  Summarize(logs),
	}, nil
}
