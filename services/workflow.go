package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civicsync/apperr"
	"civicsync/blob"
	"civicsync/models"

	"go.uber.org/zap"
)

// Workflow drives issues through their lifecycle. Every status or
// assignment change is written first and announced second; when the
// announcement fails the issue is put back the way it was.
type Workflow struct {
	issues     *IssueStore
	notifier   *Notifier
	principals Principals
	picker     Picker
	photos     blob.Store
	clock      Clock
	logger     *zap.Logger
}

type WorkflowDeps struct {
	Issues     *IssueStore
	Notifier   *Notifier
	Principals Principals
	Picker     Picker
	Photos     blob.Store
	Clock      Clock
	Logger     *zap.Logger
}

func NewWorkflow(deps WorkflowDeps) *Workflow {
	return &Workflow{
		issues:     deps.Issues,
		notifier:   deps.Notifier,
		principals: deps.Principals,
		picker:     deps.Picker,
		photos:     deps.Photos,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// TechnicianChange is what a technician may change on an owned issue.
type TechnicianChange struct {
	Status                  *models.IssueStatus
	Note                    *string
	EstimatedCompletionDate *time.Time
}

// ReportIssue creates an issue and immediately tries to auto-assign it.
// Failing to find a technician leaves the issue reported and is not an
// error.
func (w *Workflow) ReportIssue(ctx context.Context, reporter models.Principal, input NewIssue) (*models.Issue, error) {
	issue, err := w.issues.Create(ctx, reporter, input)
	if err != nil {
		return nil, err
	}

	assigned, err := w.AutoAssign(ctx, issue)
	if err != nil {
		// The report itself is stored; it waits for manual or self assignment.
		w.logger.Error("Automatic assignment failed", zap.String("issue_id", issue.ID), zap.Error(err))
		return issue, nil
	}
	return assigned, nil
}

// AutoAssign matches the issue to a technician whose categories contain
// its category, choosing among matches with the picker. Issues filed as
// Other are left for manual handling.
func (w *Workflow) AutoAssign(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if issue.Category == models.Other {
		return issue, nil
	}

	principals, err := w.principals.ListPrincipals(ctx)
	if err != nil {
		return nil, apperr.Adapter("failed to list principals", err)
	}
	candidates := MatchTechnicians(issue.Category, principals)
	if len(candidates) == 0 {
		w.logger.Info("No technician matches issue category",
			zap.String("issue_id", issue.ID),
			zap.String("category", string(issue.Category)))
		return issue, nil
	}
	tech := candidates[w.picker.Pick(len(candidates))]

	now := w.clock.Now()
	status := models.StatusAssigned
	by := models.AssignedBySystem
	before, updated, err := w.issues.applyIf(ctx, issue.ID, unassigned, models.IssueUpdate{
		Status:     &status,
		AssignedTo: &tech.ID,
		AssignedBy: &by,
		AssignedAt: &now,
		UpdatedBy:  models.AssignedBySystem,
	})
	if apperr.KindOf(err) == apperr.KindConflict {
		// Claimed by a technician before the system got to it.
		return w.issues.Get(ctx, issue.ID)
	}
	if err != nil {
		return nil, err
	}

	_, err = w.notifier.Dispatch(ctx, Dispatch{
		To:             tech.ID,
		Title:          "New issue assigned",
		Message:        fmt.Sprintf("You have been assigned %q at %s.", updated.Title, updated.Location),
		Type:           models.NotificationAssignment,
		Priority:       updated.Priority,
		RelatedIssueID: updated.ID,
		Sender:         models.SystemSender,
	})
	if err != nil {
		w.issues.restore(ctx, updated.ID, before)
		return nil, err
	}

	w.logger.Info("Issue auto-assigned", zap.String("issue_id", updated.ID), zap.String("technician_id", tech.ID))
	return updated, nil
}

// MatchTechnicians returns technicians competent in category, in
// directory order.
func MatchTechnicians(category models.IssueCategory, principals []models.Principal) []models.Principal {
	var out []models.Principal
	for _, p := range principals {
		if p.Role == models.RoleTechnician && p.HasCategory(category) {
			out = append(out, p)
		}
	}
	return out
}

// Claim lets a technician take an unassigned issue and start on it. The
// first claim wins; later ones fail with Conflict.
func (w *Workflow) Claim(ctx context.Context, actor models.Principal, issueID string) (*models.Issue, error) {
	if actor.Role != models.RoleTechnician {
		return nil, apperr.Forbidden("only technicians can claim issues")
	}

	now := w.clock.Now()
	status := models.StatusInProgress
	check := func(i *models.Issue) error {
		if err := unassigned(i); err != nil {
			return err
		}
		if i.Status.Terminal() {
			return apperr.Conflict("issue is already %s", i.Status)
		}
		return nil
	}
	before, updated, err := w.issues.applyIf(ctx, issueID, check, models.IssueUpdate{
		Status:     &status,
		AssignedTo: &actor.ID,
		AssignedBy: &actor.ID,
		AssignedAt: &now,
		UpdatedBy:  actor.ID,
	})
	if err != nil {
		return nil, err
	}

	_, err = w.notifier.Dispatch(ctx, Dispatch{
		To:             actor.ID,
		Title:          "Issue self-assigned",
		Message:        fmt.Sprintf("You have taken %q and it is now in progress.", updated.Title),
		Type:           models.NotificationAssignment,
		Priority:       updated.Priority,
		RelatedIssueID: updated.ID,
		Sender:         sender(actor),
	})
	if err != nil {
		w.issues.restore(ctx, updated.ID, before)
		return nil, err
	}

	w.logger.Info("Issue claimed", zap.String("issue_id", updated.ID), zap.String("technician_id", actor.ID))
	return updated, nil
}

// Assign is the administrator override: it always replaces the current
// assignee, whatever the issue's state.
func (w *Workflow) Assign(ctx context.Context, actor models.Principal, issueID, technicianID, notes string) (*models.Issue, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only administrators can assign issues")
	}
	technicianID = strings.TrimSpace(technicianID)
	if technicianID == "" {
		return nil, apperr.Validation("technician id is required")
	}
	tech, err := w.principals.GetPrincipal(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if tech.Role != models.RoleTechnician {
		return nil, apperr.Validation("user %s is not a technician", technicianID)
	}

	now := w.clock.Now()
	status := models.StatusAssigned
	before, updated, err := w.issues.applyIf(ctx, issueID, anyState, models.IssueUpdate{
		Status:          &status,
		AssignedTo:      &tech.ID,
		AssignedBy:      &actor.ID,
		AssignedAt:      &now,
		AssignmentNotes: &notes,
		UpdatedBy:       actor.ID,
	})
	if err != nil {
		return nil, err
	}

	message := fmt.Sprintf("You have been assigned %q at %s.", updated.Title, updated.Location)
	if notes != "" {
		message += " Notes: " + notes
	}
	_, err = w.notifier.Dispatch(ctx, Dispatch{
		To:             tech.ID,
		Title:          "New issue assigned",
		Message:        message,
		Type:           models.NotificationAssignment,
		Priority:       updated.Priority,
		RelatedIssueID: updated.ID,
		Sender:         sender(actor),
	})
	if err != nil {
		w.issues.restore(ctx, updated.ID, before)
		return nil, err
	}

	w.logger.Info("Issue assigned by admin",
		zap.String("issue_id", updated.ID),
		zap.String("technician_id", tech.ID),
		zap.String("admin_id", actor.ID))
	return updated, nil
}

// UpdateAsTechnician applies a technician's change to an issue they own.
// Terminal issues cannot change status, though the owner may still add a
// note or an estimate. Reported is never a valid target.
func (w *Workflow) UpdateAsTechnician(ctx context.Context, actor models.Principal, issueID string, change TechnicianChange) (*models.Issue, error) {
	if actor.Role != models.RoleTechnician {
		return nil, apperr.Forbidden("only technicians can update work status")
	}
	if change.Status != nil {
		switch *change.Status {
		case models.StatusAssigned, models.StatusInProgress, models.StatusResolved, models.StatusRejected:
		case models.StatusReported:
			return nil, apperr.Forbidden("technicians cannot re-open an issue as reported")
		default:
			return nil, apperr.Validation("invalid status %q", *change.Status)
		}
	}
	if change.Status == nil && change.Note == nil && change.EstimatedCompletionDate == nil {
		return nil, apperr.Validation("nothing to update")
	}

	var previous models.IssueStatus
	check := func(i *models.Issue) error {
		if i.AssignedTo != actor.ID {
			return apperr.Forbidden("issue %s is not assigned to you", i.ID)
		}
		if change.Status != nil && i.Status.Terminal() {
			return apperr.Forbidden("issue %s is already %s", i.ID, i.Status)
		}
		previous = i.Status
		return nil
	}
	before, updated, err := w.issues.applyIf(ctx, issueID, check, models.IssueUpdate{
		Status:                  change.Status,
		TechnicianNote:          change.Note,
		EstimatedCompletionDate: change.EstimatedCompletionDate,
		UpdatedBy:               actor.ID,
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != previous {
		if err := w.announceStatus(ctx, actor, updated, change.Note, updated.ReportedBy); err != nil {
			w.issues.restore(ctx, updated.ID, before)
			return nil, err
		}
	}

	w.logger.Info("Issue updated by technician",
		zap.String("issue_id", updated.ID),
		zap.String("technician_id", actor.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(updated.Status)))
	return updated, nil
}

// OverrideStatus is the administrator transition: any state to any state,
// regardless of ownership. Moving to reported clears the assignment so the
// issue can be claimed again. Moving an unassigned issue to assigned or
// in-progress fails with a validation error rather than storing an owned
// status without an owner; assign a technician first.
func (w *Workflow) OverrideStatus(ctx context.Context, actor models.Principal, issueID string, status models.IssueStatus, note *string) (*models.Issue, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only administrators can override status")
	}
	if !status.Valid() {
		return nil, apperr.Validation("invalid status %q", status)
	}

	update := models.IssueUpdate{
		Status:    &status,
		AdminNote: note,
		UpdatedBy: actor.ID,
	}
	var previousAssignee string
	check := func(i *models.Issue) error {
		previousAssignee = i.AssignedTo
		return nil
	}
	if status == models.StatusReported {
		update.ClearAssignment = true
	}
	before, updated, err := w.issues.applyIf(ctx, issueID, check, update)
	if err != nil {
		return nil, err
	}

	recipients := []string{updated.ReportedBy}
	if previousAssignee != "" {
		recipients = append(recipients, previousAssignee)
	}
	if err := w.announceStatus(ctx, actor, updated, note, recipients...); err != nil {
		w.issues.restore(ctx, updated.ID, before)
		return nil, err
	}

	w.logger.Info("Issue status overridden",
		zap.String("issue_id", updated.ID),
		zap.String("admin_id", actor.ID),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// AttachPhoto uploads a photo and records its URL on the issue. The
// reporter and administrators may do this.
func (w *Workflow) AttachPhoto(ctx context.Context, actor models.Principal, issueID string, data []byte, contentType string) (*models.Issue, error) {
	issue, err := w.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if issue.ReportedBy != actor.ID && actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("you are not allowed to change this issue")
	}
	if len(data) == 0 {
		return nil, apperr.Validation("photo is empty")
	}

	url, err := w.photos.Store(ctx, data, contentType)
	if err != nil {
		w.logger.Error("Photo upload failed", zap.String("issue_id", issueID), zap.Error(err))
		return nil, apperr.Adapter("failed to store photo", err)
	}
	return w.issues.ApplyUpdate(ctx, issueID, models.IssueUpdate{PhotoURL: &url, UpdatedBy: actor.ID})
}

// ListClaimable returns unassigned open issues the technician could
// claim: their own categories plus Other.
func (w *Workflow) ListClaimable(ctx context.Context, actor models.Principal) ([]models.Issue, error) {
	if actor.Role != models.RoleTechnician {
		return nil, apperr.Forbidden("only technicians can claim issues")
	}
	all, err := w.issues.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Issue
	for _, i := range all {
		if i.Assigned() || i.Status != models.StatusReported {
			continue
		}
		if i.Category == models.Other || actor.HasCategory(i.Category) {
			out = append(out, i)
		}
	}
	return out, nil
}

// announceStatus sends one status-update notification to each distinct
// recipient other than the actor.
func (w *Workflow) announceStatus(ctx context.Context, actor models.Principal, issue *models.Issue, note *string, recipients ...string) error {
	message := fmt.Sprintf("Issue %q is now %s.", issue.Title, issue.Status)
	if note != nil && strings.TrimSpace(*note) != "" {
		message += " Note: " + strings.TrimSpace(*note)
	}

	seen := map[string]bool{actor.ID: true}
	var sent []models.Notification
	for _, to := range recipients {
		if to == "" || seen[to] {
			continue
		}
		seen[to] = true
		notifs, err := w.notifier.Dispatch(ctx, Dispatch{
			To:             to,
			Title:          "Issue status updated",
			Message:        message,
			Type:           models.NotificationStatusUpdate,
			Priority:       issue.Priority,
			RelatedIssueID: issue.ID,
			Sender:         sender(actor),
		})
		if err != nil {
			w.notifier.rollback(ctx, sent)
			return err
		}
		sent = append(sent, notifs...)
	}
	return nil
}

func unassigned(i *models.Issue) error {
	if i.Assigned() {
		return apperr.Conflict("issue %s is already assigned", i.ID)
	}
	return nil
}

func anyState(*models.Issue) error { return nil }

func sender(p models.Principal) models.Sender {
	return models.Sender{ID: p.ID, Name: p.DisplayName}
}
