package access

import "coursesync/internal/model"

// Drive is the remote storage capability consumed by the resolver and the
// reconciler. Implementations translate these calls into the storage
// service's API; the core depends on nothing else the service offers.
type Drive interface {
	// ListChildren returns the children of parentID, optionally filtered
	// by exact name and by a native content-type query fragment (as
	// supplied in the mime_types configuration). An empty parentID
	// searches the whole storage space — used only to locate the root
	// "Courses" container.
	ListChildren(parentID, nameFilter, typeQuery string) ([]model.DriveFile, error)

	// ListPermissions returns the sharing permissions on a file.
	ListPermissions(fileID string) ([]model.Permission, error)

	// CreatePermission shares a file with a user principal at the given
	// role and returns the new permission's ID. No notification email is
	// sent.
	CreatePermission(fileID, principalEmail, role string) (string, error)

	// DeletePermission removes a permission from a file.
	DeletePermission(fileID, permissionID string) error

	// UpdateFileAttributes patches file attributes, e.g. the
	// copy-restriction payload from configuration.
	UpdateFileAttributes(fileID string, attrs map[string]any) error
}
