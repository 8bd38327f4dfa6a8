package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"civicsync/apperr"
	"civicsync/models"
	"civicsync/store"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxClaimAttempts bounds the compare-and-set loop when unrelated writes
// race with a conditional update.
const maxClaimAttempts = 3

// NewIssue is the citizen supplied content of a report.
type NewIssue struct {
	Title       string                `validate:"required,max=200"`
	Description string                `validate:"required,max=2000"`
	Category    models.IssueCategory  `validate:"required"`
	Location    string                `validate:"required,max=200"`
	Priority    models.Priority       `validate:"omitempty,oneof=low medium high"`
	Coordinates *models.Coordinates
	PhotoURL    *string
}

// IssueFilter narrows List. Empty fields match everything.
type IssueFilter struct {
	Status   models.IssueStatus
	Category models.IssueCategory
	Search   string
}

// IssueStore keeps Issue records in the KV under issue:<id>, with a
// reporter index under user_issue:<reporter>:<id>.
type IssueStore struct {
	kv       store.KV
	clock    Clock
	validate *validator.Validate
	logger   *zap.Logger
}

func NewIssueStore(kv store.KV, clock Clock, logger *zap.Logger) *IssueStore {
	return &IssueStore{
		kv:       kv,
		clock:    clock,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create stores a new issue in the reported state. The reporter's display
// name is copied now and never re-derived. If the reporter index cannot be
// written the issue record is removed again.
func (s *IssueStore) Create(ctx context.Context, reporter models.Principal, input NewIssue) (*models.Issue, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = models.IssueCategory(strings.TrimSpace(string(input.Category)))
	input.Location = strings.TrimSpace(input.Location)
	if err := s.validate.Struct(input); err != nil {
		return nil, apperr.Validation("%s", validationMessage(err))
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}

	now := s.clock.Now()
	issue := &models.Issue{
		ID:           primitive.NewObjectID().Hex(),
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		Location:     input.Location,
		Priority:     input.Priority,
		Coordinates:  input.Coordinates,
		PhotoURL:     input.PhotoURL,
		ReportedBy:   reporter.ID,
		ReporterName: reporter.DisplayName,
		ReportedAt:   now,
		Status:       models.StatusReported,
		UpdatedAt:    now,
		UpdatedBy:    reporter.ID,
	}

	if err := s.put(ctx, issue); err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, store.ReporterIndexKey(reporter.ID, issue.ID), issue.ID); err != nil {
		s.logger.Error("Failed to index issue by reporter", zap.String("issue_id", issue.ID), zap.Error(err))
		if derr := s.kv.Delete(ctx, store.IssueKey(issue.ID)); derr != nil {
			s.logger.Error("Failed to roll back issue", zap.String("issue_id", issue.ID), zap.Error(derr))
		}
		return nil, apperr.Adapter("failed to index issue", err)
	}

	s.logger.Info("Issue created",
		zap.String("issue_id", issue.ID),
		zap.String("category", string(issue.Category)),
		zap.String("reported_by", reporter.ID))
	return issue, nil
}

// Get loads one issue.
func (s *IssueStore) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue, _, err := s.load(ctx, id)
	return issue, err
}

// ListAll returns every issue, newest report first.
func (s *IssueStore) ListAll(ctx context.Context) ([]models.Issue, error) {
	raw, err := s.kv.ScanPrefix(ctx, store.IssuePrefix())
	if err != nil {
		return nil, apperr.Adapter("failed to scan issues", err)
	}
	issues := make([]models.Issue, 0, len(raw))
	for _, r := range raw {
		issue, err := decodeIssue(r)
		if err != nil {
			s.logger.Warn("Skipping undecodable issue record", zap.Error(err))
			continue
		}
		issues = append(issues, *issue)
	}
	sortByReported(issues)
	return issues, nil
}

// List applies filter over a full scan.
func (s *IssueStore) List(ctx context.Context, filter IssueFilter) ([]models.Issue, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	return slices.DeleteFunc(all, func(i models.Issue) bool {
		if filter.Status != "" && i.Status != filter.Status {
			return true
		}
		if filter.Category != "" && i.Category != filter.Category {
			return true
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(i.Title), search) &&
			!strings.Contains(strings.ToLower(i.Description), search) {
			return true
		}
		return false
	}), nil
}

// ListByReporter reads the reporter index and fetches the records in one
// round trip.
func (s *IssueStore) ListByReporter(ctx context.Context, reporterID string) ([]models.Issue, error) {
	ids, err := s.kv.ScanPrefix(ctx, store.ReporterIndexPrefix(reporterID))
	if err != nil {
		return nil, apperr.Adapter("failed to scan reporter index", err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = store.IssueKey(id)
	}
	values, err := s.kv.MultiGet(ctx, keys)
	if err != nil {
		return nil, apperr.Adapter("failed to load issues", err)
	}

	issues := make([]models.Issue, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		issue, err := decodeIssue(*v)
		if err != nil {
			s.logger.Warn("Skipping undecodable issue record", zap.Error(err))
			continue
		}
		issues = append(issues, *issue)
	}
	sortByReported(issues)
	return issues, nil
}

// ListByAssignee returns the technician's queue, most recently assigned first.
func (s *IssueStore) ListByAssignee(ctx context.Context, assigneeID string) ([]models.Issue, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	issues := slices.DeleteFunc(all, func(i models.Issue) bool { return i.AssignedTo != assigneeID })
	slices.SortStableFunc(issues, func(a, b models.Issue) int {
		return b.AssignmentTime().Compare(a.AssignmentTime())
	})
	return issues, nil
}

// ListByCategory returns issues of one category, newest first.
func (s *IssueStore) ListByCategory(ctx context.Context, category models.IssueCategory) ([]models.Issue, error) {
	return s.List(ctx, IssueFilter{Category: category})
}

// ApplyUpdate merges the provided fields and bumps updatedAt. Every
// mutation goes through here or through applyIf.
func (s *IssueStore) ApplyUpdate(ctx context.Context, id string, update models.IssueUpdate) (*models.Issue, error) {
	issue, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.merge(issue, update); err != nil {
		return nil, err
	}
	if err := s.put(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

// applyIf runs check against the current record and writes the merged
// result only if the record has not changed since it was read. It
// returns the record as it was before the write along with the new one.
func (s *IssueStore) applyIf(ctx context.Context, id string, check func(*models.Issue) error, update models.IssueUpdate) (before string, after *models.Issue, err error) {
	for range maxClaimAttempts {
		issue, raw, err := s.load(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if err := check(issue); err != nil {
			return "", nil, err
		}
		if err := s.merge(issue, update); err != nil {
			return "", nil, err
		}
		encoded, err := json.Marshal(issue)
		if err != nil {
			return "", nil, apperr.Adapter("failed to encode issue", err)
		}
		ok, err := s.kv.CompareAndSet(ctx, store.IssueKey(id), raw, string(encoded))
		if err != nil {
			return "", nil, apperr.Adapter("failed to save issue", err)
		}
		if ok {
			return raw, issue, nil
		}
	}
	return "", nil, apperr.Conflict("issue %s changed concurrently, try again", id)
}

// restore puts back a previously read raw record. Used to undo a
// mutation whose notification could not be delivered.
func (s *IssueStore) restore(ctx context.Context, id, raw string) {
	if err := s.kv.Set(ctx, store.IssueKey(id), raw); err != nil {
		s.logger.Error("Failed to roll back issue", zap.String("issue_id", id), zap.Error(err))
	}
}

func (s *IssueStore) merge(issue *models.Issue, update models.IssueUpdate) error {
	update.Apply(issue)
	issue.UpdatedAt = s.clock.Now()

	if !issue.Status.Valid() {
		return apperr.Validation("invalid status %q", issue.Status)
	}
	if (issue.Status == models.StatusAssigned || issue.Status == models.StatusInProgress) && !issue.Assigned() {
		return apperr.Validation("status %s requires an assigned technician", issue.Status)
	}
	return nil
}

func (s *IssueStore) load(ctx context.Context, id string) (*models.Issue, string, error) {
	raw, err := s.kv.Get(ctx, store.IssueKey(id))
	if errors.Is(err, store.ErrMissing) {
		return nil, "", apperr.NotFound("issue %s not found", id)
	}
	if err != nil {
		return nil, "", apperr.Adapter("failed to load issue", err)
	}
	issue, err := decodeIssue(raw)
	if err != nil {
		return nil, "", apperr.Adapter("failed to decode issue", err)
	}
	return issue, raw, nil
}

func (s *IssueStore) put(ctx context.Context, issue *models.Issue) error {
	encoded, err := json.Marshal(issue)
	if err != nil {
		return apperr.Adapter("failed to encode issue", err)
	}
	if err := s.kv.Set(ctx, store.IssueKey(issue.ID), string(encoded)); err != nil {
		s.logger.Error("Failed to save issue", zap.String("issue_id", issue.ID), zap.Error(err))
		return apperr.Adapter("failed to save issue", err)
	}
	return nil
}

func decodeIssue(raw string) (*models.Issue, error) {
	var issue models.Issue
	if err := json.Unmarshal([]byte(raw), &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

func sortByReported(issues []models.Issue) {
	slices.SortStableFunc(issues, func(a, b models.Issue) int {
		return b.ReportedAt.Compare(a.ReportedAt)
	})
}

// validationMessage names the first failing field in plain words.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	}
	return field + " is invalid"
}
