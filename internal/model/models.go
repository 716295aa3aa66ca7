package model

import "time"

// User statuses the reconciler reads and writes. The Status column is an
// open-ended string; these are the values with defined semantics.
const (
	StatusNew         = "New"
	StatusActive      = "Active"
	StatusFired       = "Fired"
	StatusDeactivated = "Deactivated"
)

// RoleWriter is the sharing role always used for secondary course files.
const RoleWriter = "writer"

// User represents an enrolled user in the Users table.
type User struct {
	ID        int64
	Email     string // Unique business key
	Name      string
	Status    string // See Status* constants
	Role      string // Sharing role granted on primary files (e.g. "reader")
	IsDeleted bool
	Comment   string
}

// Course represents a course in the Courses table. A course maps to a
// remote folder at Courses/Category[/SubCategory]/Course.
type Course struct {
	ID          int64
	Category    string
	SubCategory string // Empty means the remote path has two segments
	Course      string
}

// Access links a user to a course they are entitled to. Rows are written
// by seeding and only read by the reconciler.
type Access struct {
	AccessID int64
	UserID   int64
	CourseID int64
}

// DriveFile is a file or folder handle on the remote storage service.
type DriveFile struct {
	ID          string
	Name        string
	Description string // Folder annotation; "Empty" marks a course as absent
	MimeType    string
}

// Permission is a sharing permission on a remote file.
type Permission struct {
	ID           string
	Type         string
	Kind         string
	Role         string
	EmailAddress string
}

// CourseFiles holds the classified contents of a course's remote folder.
// Built once per run by the resolver and cached by course ID.
type CourseFiles struct {
	Primary   []DriveFile // Presentation files, shared at the user's role
	Secondary []DriveFile // Everything else relevant, always shared as writer
}

// SyncOperation records one mutating CLI run in the sync_operations table.
type SyncOperation struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string // "success" or "error"
}
