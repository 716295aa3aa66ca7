package access

import (
	"errors"
	"fmt"
	"strings"

	"coursesync/internal/model"
)

// Action is a reconciliation direction: grant access or take it away.
type Action string

const (
	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

// ErrUnknownAction is returned for an action outside {grant, revoke}.
var ErrUnknownAction = errors.New("unknown action")

// Service is the orchestration layer: it applies grant/revoke actions to
// cohorts of users, resolving each course's files through the resolver
// and updating user status in the store afterwards.
//
// Failure isolation is per file: a single failed permission call is
// logged with enough context to retry manually and does not stop the
// user's remaining files, the cohort's remaining users, or the final
// status update. Store and resolution errors abort the run.
type Service struct {
	store           Store
	drive           Drive
	resolver        *Resolver
	logger          Logger
	copyRestriction map[string]any
}

// NewService creates a Service with the provided dependencies.
// copyRestriction is the attribute payload applied by ApplyCopyRestriction.
func NewService(store Store, drive Drive, resolver *Resolver, logger Logger, copyRestriction map[string]any) *Service {
	return &Service{
		store:           store,
		drive:           drive,
		resolver:        resolver,
		logger:          logger,
		copyRestriction: copyRestriction,
	}
}

// Run executes one full batch: grant access to the New cohort, revoke it
// from the Fired cohort, then optionally apply the copy restriction to
// all presentation files.
func (s *Service) Run(restrictCopy bool) error {
	newUsers, err := s.usersByStatus(model.StatusNew)
	if err != nil {
		return err
	}
	if len(newUsers) > 0 {
		s.logger.Info("providing access to new users", "count", len(newUsers))
		if err := s.Reconcile(newUsers, ActionGrant); err != nil {
			return err
		}
	}

	firedUsers, err := s.usersByStatus(model.StatusFired)
	if err != nil {
		return err
	}
	if len(firedUsers) > 0 {
		s.logger.Info("revoking access from fired users", "count", len(firedUsers))
		if err := s.Reconcile(firedUsers, ActionRevoke); err != nil {
			return err
		}
	}

	if restrictCopy {
		return s.ApplyCopyRestriction()
	}
	return nil
}

// Reconcile applies the action to every user in the cohort, in order.
// Each user's entitled courses are resolved (cached across users), the
// permission changes are applied per file, and the user's status is set
// to Active (grant) or Deactivated (revoke) regardless of per-file
// failures along the way.
func (s *Service) Reconcile(users []model.User, action Action) error {
	if action != ActionGrant && action != ActionRevoke {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	for i := range users {
		user := &users[i]

		courseIDs, err := s.store.AccessesByUser(user.ID)
		if err != nil {
			return fmt.Errorf("loading accesses for %s: %w", user.Email, err)
		}

		for _, courseID := range courseIDs {
			files, err := s.resolveCourse(courseID)
			if err != nil {
				return err
			}
			if files == nil {
				continue
			}

			switch action {
			case ActionGrant:
				s.grantFiles(user, files.Primary, user.Role)
				s.grantFiles(user, files.Secondary, model.RoleWriter)
			case ActionRevoke:
				s.revokeFiles(user, files.Primary)
				s.revokeFiles(user, files.Secondary)
			}
		}

		status := model.StatusActive
		if action == ActionRevoke {
			status = model.StatusDeactivated
		}
		matched, err := s.store.SetUserStatus(user.ID, status)
		if err != nil {
			return fmt.Errorf("updating status for %s: %w", user.Email, err)
		}
		if !matched {
			s.logger.Warn("no user row matched status update", "user_id", user.ID, "email", user.Email)
			continue
		}
		s.logger.Debug("user status updated", "email", user.Email, "status", status)
	}

	return nil
}

// ApplyCopyRestriction sets the configured copy-restriction attributes on
// every resolvable course's presentation files. Courses with no resolved
// files are skipped; per-file failures are logged and skipped.
func (s *Service) ApplyCopyRestriction() error {
	courses, err := s.store.QueryCourses(CourseFilter{})
	if err != nil {
		return fmt.Errorf("loading courses: %w", err)
	}

	for i := range courses {
		course := &courses[i]
		files, err := s.resolver.Resolve(course)
		if err != nil {
			return err
		}
		if files == nil || len(files.Primary) == 0 {
			s.logger.Debug("no presentation files to restrict", "course", course.Course)
			continue
		}

		for _, f := range files.Primary {
			if err := s.drive.UpdateFileAttributes(f.ID, s.copyRestriction); err != nil {
				s.logger.Error("setting copy restriction failed",
					"file_id", f.ID, "file", f.Name, "error", err)
				continue
			}
			s.logger.Debug("copy restriction set", "file", f.Name)
		}
	}

	s.logger.Info("copy restriction applied to presentation files")
	return nil
}

// resolveCourse maps a course ID from an Access row to its resolved
// files. An Access pointing at a course row that no longer exists is
// logged and skipped, like an absent course.
func (s *Service) resolveCourse(courseID int64) (*model.CourseFiles, error) {
	courses, err := s.store.QueryCourses(CourseFilter{ID: &courseID})
	if err != nil {
		return nil, fmt.Errorf("loading course %d: %w", courseID, err)
	}
	if len(courses) == 0 {
		s.logger.Warn("access references unknown course", "course_id", courseID)
		return nil, nil
	}
	return s.resolver.Resolve(&courses[0])
}

func (s *Service) usersByStatus(status string) ([]model.User, error) {
	users, err := s.store.QueryUsers(UserFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("loading %s users: %w", status, err)
	}
	return users, nil
}

func (s *Service) grantFiles(user *model.User, files []model.DriveFile, role string) {
	for _, f := range files {
		if _, err := s.drive.CreatePermission(f.ID, user.Email, role); err != nil {
			s.logger.Error("creating permission failed",
				"email", user.Email, "file_id", f.ID, "file", f.Name, "role", role, "error", err)
			continue
		}
		s.logger.Info("access provided", "email", user.Email, "file", f.Name, "role", role)
	}
}

func (s *Service) revokeFiles(user *model.User, files []model.DriveFile) {
	for _, f := range files {
		perms, err := s.drive.ListPermissions(f.ID)
		if err != nil {
			s.logger.Error("listing permissions failed",
				"email", user.Email, "file_id", f.ID, "file", f.Name, "error", err)
			continue
		}

		for _, p := range perms {
			if !strings.EqualFold(p.EmailAddress, user.Email) {
				continue
			}
			if err := s.drive.DeletePermission(f.ID, p.ID); err != nil {
				s.logger.Error("deleting permission failed",
					"email", user.Email, "file_id", f.ID, "file", f.Name, "error", err)
				continue
			}
			s.logger.Info("access revoked", "email", user.Email, "file", f.Name)
		}
	}
}
