package services

import (
	"context"
	"math"
	"sort"
	"time"

	"civicsync/apperr"
	"civicsync/models"
)

const (
	trendWindow = 30 * 24 * time.Hour
	dateLayout  = "2006-01-02"
)

// Analytics recomputes the snapshot from the issue store on every call.
type Analytics struct {
	issues *IssueStore
	clock  Clock
}

func NewAnalytics(issues *IssueStore, clock Clock) *Analytics {
	return &Analytics{issues: issues, clock: clock}
}

// Snapshot scans all issues. Only administrators may read it.
func (a *Analytics) Snapshot(ctx context.Context, actor models.Principal) (models.Analytics, error) {
	if actor.Role != models.RoleAdmin {
		return models.Analytics{}, apperr.Forbidden("only administrators can view analytics")
	}
	issues, err := a.issues.ListAll(ctx)
	if err != nil {
		return models.Analytics{}, err
	}
	return Summarize(issues, a.clock.Now()), nil
}

// Summarize derives the analytics snapshot for issues as of now. Groups
// with no issues are absent from the maps.
func Summarize(issues []models.Issue, now time.Time) models.Analytics {
	out := models.Analytics{
		TotalIssues:          len(issues),
		CategoryBreakdown:    make(map[models.IssueCategory]int),
		PriorityDistribution: make(map[models.Priority]int),
		StatusFlow:           make(map[models.IssueStatus]int),
		AssigneeWorkload:     make(map[string]int),
		DailyReports:         []models.DailyCount{},
	}

	cutoff := now.Add(-trendWindow)
	daily := make(map[string]int)
	resolved := 0
	var resolvedDays float64
	resolvedTimed := 0

	for _, i := range issues {
		out.CategoryBreakdown[i.Category]++
		out.PriorityDistribution[i.Priority]++
		out.StatusFlow[i.Status]++

		if i.Status.Open() {
			out.OpenIssues++
			if i.Assigned() {
				out.AssigneeWorkload[i.AssignedTo]++
			}
		}

		if !i.ReportedAt.Before(cutoff) && !i.ReportedAt.After(now) {
			out.RecentIssues++
			daily[i.ReportedAt.UTC().Format(dateLayout)]++
		}

		if i.Status == models.StatusResolved {
			resolved++
			if !i.ReportedAt.IsZero() && !i.UpdatedAt.IsZero() {
				resolvedDays += i.UpdatedAt.Sub(i.ReportedAt).Hours() / 24
				resolvedTimed++
			}
		}
	}

	if out.TotalIssues > 0 {
		out.ResolutionRate = int(math.Round(100 * float64(resolved) / float64(out.TotalIssues)))
	}
	if resolvedTimed > 0 {
		out.AvgResolutionDays = int(math.Round(resolvedDays / float64(resolvedTimed)))
	}

	for date, count := range daily {
		out.DailyReports = append(out.DailyReports, models.DailyCount{Date: date, Count: count})
	}
	sort.Slice(out.DailyReports, func(i, j int) bool {
		return out.DailyReports[i].Date < out.DailyReports[j].Date
	})
	return out
}
