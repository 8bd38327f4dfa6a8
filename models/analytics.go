package models

// DailyCount is one trend bucket.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Analytics is derived on every request and never stored. Map keys that
// are absent count as zero.
type Analytics struct {
	TotalIssues          int                   `json:"totalIssues"`
	RecentIssues         int                   `json:"recentIssues"`
	OpenIssues           int                   `json:"openIssues"`
	CategoryBreakdown    map[IssueCategory]int `json:"categoryBreakdown"`
	PriorityDistribution map[Priority]int      `json:"priorityDistribution"`
	StatusFlow           map[IssueStatus]int   `json:"statusFlow"`
	AssigneeWorkload     map[string]int        `json:"assigneeWorkload"`
	ResolutionRate       int                   `json:"resolutionRate"`
	AvgResolutionDays    int                   `json:"avgResolutionDays"`
	DailyReports         []DailyCount          `json:"dailyReports"`
}
