package access

import "coursesync/internal/model"

// AddOutcome classifies the result of an AddUser/AddCourse call.
type AddOutcome int

const (
	// AddInserted means a new row was written.
	AddInserted AddOutcome = iota
	// AddDuplicate means a row with the same dedup key already exists;
	// nothing was written.
	AddDuplicate
	// AddRejected means a required field was missing; nothing was written.
	AddRejected
)

func (o AddOutcome) String() string {
	switch o {
	case AddInserted:
		return "inserted"
	case AddDuplicate:
		return "duplicate"
	case AddRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// AddResult reports what an insert did, so callers can branch instead of
// inferring the outcome from a log line.
type AddResult struct {
	Outcome      AddOutcome
	ID           int64  // Set when Outcome == AddInserted
	MissingField string // Set when Outcome == AddRejected
}

// UserFilter holds optional equality predicates for QueryUsers.
// Nil fields are not applied; all set fields are ANDed together.
type UserFilter struct {
	ID        *int64
	Email     *string
	Name      *string
	Status    *string
	Role      *string
	IsDeleted *bool
}

// CourseFilter holds optional equality predicates for QueryCourses.
type CourseFilter struct {
	ID          *int64
	Category    *string
	SubCategory *string
	Course      *string
}

// Store provides access to the membership records: users, courses, and
// the user-course entitlement relation. All calls are synchronous and
// auto-committing; implementations own a single connection that must be
// released via Close on every exit path.
type Store interface {
	// AddUser inserts a user, deduplicating on email. Missing required
	// fields (email, name, status, role) reject the insert.
	AddUser(user model.User) (AddResult, error)

	// AddCourse inserts a course, deduplicating on (Category, Course) —
	// or (Category, SubCategory, Course) when the store is configured to
	// include the sub-category in the key. Missing required fields
	// (category, course name) reject the insert.
	AddCourse(course model.Course) (AddResult, error)

	// AddAccess links a user to a course. No existence check on either
	// ID and no dedup: duplicate grants are stored as-is.
	AddAccess(userID, courseID int64) error

	// SetUserStatus updates a user's status. Returns false (and no
	// error) when no row matched the ID.
	SetUserStatus(userID int64, status string) (bool, error)

	// QueryUsers returns users matching the filter, in storage order.
	// A zero-value filter returns the whole table.
	QueryUsers(filter UserFilter) ([]model.User, error)

	// QueryCourses returns courses matching the filter, in storage order.
	QueryCourses(filter CourseFilter) ([]model.Course, error)

	// AccessesByUser returns the course IDs the user is entitled to.
	// A user with no Access rows yields an empty slice, not an error.
	AccessesByUser(userID int64) ([]int64, error)

	// Clear deletes all rows from the named tables, or from all three
	// domain tables when none are named.
	Clear(tables ...string) error

	// CreateSyncOperation records the start of a mutating run.
	CreateSyncOperation(operation, parameters string) (*model.SyncOperation, error)

	// FinishSyncOperation stamps the finish time and final status.
	FinishSyncOperation(id int64, status string) error

	// ListSyncOperations returns the most recent runs, newest first.
	ListSyncOperations(limit int) ([]*model.SyncOperation, error)

	// Close releases the underlying connection.
	Close() error
}
