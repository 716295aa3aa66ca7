package access

import (
	"errors"
	"fmt"

	"coursesync/internal/model"
)

const (
	// coursesRootName is the well-known container all course folders live under.
	coursesRootName = "Courses"
	// emptyAnnotation marks a folder whose course has no content yet.
	emptyAnnotation = "Empty"
)

var (
	// ErrCoursesRootNotFound means the root "Courses" container is missing.
	// This is a configuration precondition, so it aborts the whole run.
	ErrCoursesRootNotFound = errors.New("root \"Courses\" folder not found")

	// ErrFolderNotFound means a course's path segment has no matching
	// remote folder. Fatal under the default missing-folder policy.
	ErrFolderNotFound = errors.New("course folder not found")
)

// MissingFolderPolicy controls what happens when a course's path segment
// is not found in the remote tree.
type MissingFolderPolicy string

const (
	// MissingFolderFail aborts the run on the first missing segment.
	MissingFolderFail MissingFolderPolicy = "fail"
	// MissingFolderSkip logs a warning and treats the course as absent.
	MissingFolderSkip MissingFolderPolicy = "skip"
)

// ResolverOptions carries the content-type query fragments and policies
// the resolver needs. The queries are the storage service's native
// fragments from the mime_types configuration section.
type ResolverOptions struct {
	FolderQuery       string
	PresentationQuery string
	SecondaryQueries  []string
	MissingFolder     MissingFolderPolicy
}

// Resolver maps a course record to its remote folder and classifies the
// folder's contents into primary (presentation) and secondary files.
// Results are cached by course ID for the lifetime of the resolver, which
// is one sync run.
type Resolver struct {
	drive  Drive
	logger Logger
	opts   ResolverOptions

	rootID string
	cache  map[int64]*model.CourseFiles
}

// NewResolver creates a resolver for one run.
func NewResolver(drive Drive, logger Logger, opts ResolverOptions) *Resolver {
	if opts.MissingFolder == "" {
		opts.MissingFolder = MissingFolderFail
	}
	return &Resolver{
		drive:  drive,
		logger: logger,
		opts:   opts,
		cache:  make(map[int64]*model.CourseFiles),
	}
}

// PathSegments returns the folder names leading from the Courses root to
// the course's folder: [Category, SubCategory?, Course]. The sub-category
// segment is omitted when empty.
func PathSegments(course *model.Course) []string {
	segments := []string{course.Category}
	if course.SubCategory != "" {
		segments = append(segments, course.SubCategory)
	}
	return append(segments, course.Course)
}

// Resolve locates the course's remote folder and returns its classified
// contents. A nil result with a nil error means the course is
// intentionally absent (folder annotated "Empty", or segment missing
// under the skip policy) and all downstream operations must be no-ops.
func (r *Resolver) Resolve(course *model.Course) (*model.CourseFiles, error) {
	if files, ok := r.cache[course.ID]; ok {
		return files, nil
	}

	files, err := r.resolve(course)
	if err != nil {
		return nil, err
	}

	r.cache[course.ID] = files
	return files, nil
}

func (r *Resolver) resolve(course *model.Course) (*model.CourseFiles, error) {
	folderID, err := r.rootFolderID()
	if err != nil {
		return nil, err
	}

	for _, segment := range PathSegments(course) {
		matches, err := r.drive.ListChildren(folderID, segment, r.opts.FolderQuery)
		if err != nil {
			return nil, fmt.Errorf("looking up folder %q: %w", segment, err)
		}
		if len(matches) == 0 {
			if r.opts.MissingFolder == MissingFolderSkip {
				r.logger.Warn("course folder missing, skipping course",
					"course", course.Course, "segment", segment)
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %q (course %q)", ErrFolderNotFound, segment, course.Course)
		}

		folder := matches[0]
		if folder.Description == emptyAnnotation {
			r.logger.Debug("course folder marked empty, skipping course",
				"course", course.Course, "segment", segment)
			return nil, nil
		}
		folderID = folder.ID
	}

	primary, err := r.drive.ListChildren(folderID, "", r.opts.PresentationQuery)
	if err != nil {
		return nil, fmt.Errorf("listing presentation files for course %q: %w", course.Course, err)
	}

	var secondary []model.DriveFile
	for _, query := range r.opts.SecondaryQueries {
		files, err := r.drive.ListChildren(folderID, "", query)
		if err != nil {
			return nil, fmt.Errorf("listing secondary files for course %q: %w", course.Course, err)
		}
		secondary = append(secondary, files...)
	}

	return &model.CourseFiles{Primary: primary, Secondary: secondary}, nil
}

// rootFolderID locates the "Courses" container, caching its ID after the
// first successful lookup.
func (r *Resolver) rootFolderID() (string, error) {
	if r.rootID != "" {
		return r.rootID, nil
	}

	matches, err := r.drive.ListChildren("", coursesRootName, r.opts.FolderQuery)
	if err != nil {
		return "", fmt.Errorf("looking up %q root: %w", coursesRootName, err)
	}
	if len(matches) == 0 {
		return "", ErrCoursesRootNotFound
	}

	r.rootID = matches[0].ID
	return r.rootID, nil
}
