package testutil

import (
	"coursesync/internal/access"
	"coursesync/internal/drive"
)

// Content types used when building in-memory course trees.
const (
	MimePresentation = "application/vnd.google-apps.presentation"
	MimeDocument     = "application/vnd.google-apps.document"
	MimeSpreadsheet  = "application/vnd.google-apps.spreadsheet"
	MimePDF          = "application/pdf"
)

// CoursesRootID is the folder ID NewCourseDrive assigns to the "Courses"
// root container.
const CoursesRootID = "root-courses"

// NewCourseDrive creates a memory drive holding only the "Courses" root
// container. Tests hang their course folders off CoursesRootID.
func NewCourseDrive() *drive.MemoryDrive {
	d := drive.NewMemoryDrive()
	d.AddFolder("", CoursesRootID, "Courses", "")
	return d
}

// ResolverOptions returns resolver options whose type queries match the
// content types above, with the default missing-folder policy.
func ResolverOptions() access.ResolverOptions {
	return access.ResolverOptions{
		FolderQuery:       "mimeType='" + drive.FolderMimeType + "'",
		PresentationQuery: "mimeType='" + MimePresentation + "'",
		SecondaryQueries: []string{
			"mimeType='" + MimeDocument + "'",
			"mimeType='" + MimeSpreadsheet + "'",
			"mimeType='" + MimePDF + "'",
		},
	}
}
