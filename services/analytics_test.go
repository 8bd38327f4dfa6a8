package services

import (
	"context"
	"testing"
	"time"

	"civicsync/apperr"
	"civicsync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	a := Summarize(nil, time.Now())
	assert.Zero(t, a.TotalIssues)
	assert.Zero(t, a.ResolutionRate)
	assert.Zero(t, a.AvgResolutionDays)
	assert.Empty(t, a.StatusFlow)
	assert.NotNil(t, a.DailyReports)
	assert.Empty(t, a.DailyReports)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	issue := func(status models.IssueStatus, cat models.IssueCategory, prio models.Priority, reportedAgo, resolvedAfter time.Duration, assignee string) models.Issue {
		reported := now.Add(-reportedAgo)
		return models.Issue{
			Status: status, Category: cat, Priority: prio,
			ReportedAt: reported, UpdatedAt: reported.Add(resolvedAfter), AssignedTo: assignee,
		}
	}
	issues := []models.Issue{
		issue(models.StatusResolved, models.RoadTransportation, models.PriorityHigh, 40*day, 2*day, "t1"),
		issue(models.StatusResolved, models.RoadTransportation, models.PriorityLow, 10*day, 5*day, "t1"),
		issue(models.StatusInProgress, models.WaterSupply, models.PriorityHigh, 10*day+time.Hour, 0, "t2"),
		issue(models.StatusAssigned, models.WaterSupply, models.PriorityMedium, 3*day, 0, "t2"),
		issue(models.StatusReported, models.Other, models.PriorityMedium, 0, 0, ""),
		issue(models.StatusRejected, models.Other, models.PriorityLow, 31*day, time.Hour, ""),
	}

	a := Summarize(issues, now)

	assert.Equal(t, 6, a.TotalIssues)
	assert.Equal(t, 4, a.RecentIssues)
	assert.Equal(t, 3, a.OpenIssues)
	assert.Equal(t, map[models.IssueCategory]int{
		models.RoadTransportation: 2, models.WaterSupply: 2, models.Other: 2,
	}, a.CategoryBreakdown)
	assert.Equal(t, map[models.Priority]int{
		models.PriorityHigh: 2, models.PriorityMedium: 2, models.PriorityLow: 2,
	}, a.PriorityDistribution)
	_, hasElectricity := a.CategoryBreakdown[models.Electricity]
	assert.False(t, hasElectricity)

	sum := 0
	for _, n := range a.StatusFlow {
		sum += n
	}
	assert.Equal(t, a.TotalIssues, sum)

	assert.Equal(t, 33, a.ResolutionRate)   // 2/6
	assert.Equal(t, 4, a.AvgResolutionDays) // (2+5)/2 = 3.5
	assert.Equal(t, map[string]int{"t2": 2}, a.AssigneeWorkload)

	assert.Equal(t, []models.DailyCount{
		{Date: "2026-03-21", Count: 2},
		{Date: "2026-03-28", Count: 1},
		{Date: "2026-03-31", Count: 1},
	}, a.DailyReports)
}

func TestSnapshotReflectsLatestMutations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	issue, err := h.workflow.ReportIssue(ctx, citizen, pothole(models.RoadTransportation))
	require.NoError(t, err)

	before, err := h.analytics.Snapshot(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, before.TotalIssues)
	assert.Equal(t, 0, before.ResolutionRate)
	assert.Equal(t, 1, before.StatusFlow[models.StatusAssigned])

	h.clock.Advance(3 * 24 * time.Hour)
	_, err = h.workflow.UpdateAsTechnician(ctx, roadTech, issue.ID, TechnicianChange{Status: ptr(models.StatusResolved)})
	require.NoError(t, err)

	after, err := h.analytics.Snapshot(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 100, after.ResolutionRate)
	assert.Equal(t, 3, after.AvgResolutionDays)
	assert.Equal(t, 1, after.StatusFlow[models.StatusResolved])
	_, stillAssigned := after.StatusFlow[models.StatusAssigned]
	assert.False(t, stillAssigned)

	_, err = h.analytics.Snapshot(ctx, roadTech)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
