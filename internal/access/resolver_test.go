package access_test

import (
	"errors"
	"testing"

	"coursesync/internal/access"
	"coursesync/internal/drive"
	"coursesync/internal/model"
	"coursesync/internal/testutil"
)

func TestPathSegments(t *testing.T) {
	t.Run("empty sub-category yields two segments", func(t *testing.T) {
		course := &model.Course{Category: "Programming", Course: "Go Basics"}

		segments := access.PathSegments(course)

		want := []string{"Programming", "Go Basics"}
		if len(segments) != len(want) {
			t.Fatalf("PathSegments() = %v, want %v", segments, want)
		}
		for i := range want {
			if segments[i] != want[i] {
				t.Errorf("segment[%d] = %q, want %q", i, segments[i], want[i])
			}
		}
	})

	t.Run("sub-category yields three segments in order", func(t *testing.T) {
		course := &model.Course{Category: "Programming", SubCategory: "Backend", Course: "Go Basics"}

		segments := access.PathSegments(course)

		want := []string{"Programming", "Backend", "Go Basics"}
		if len(segments) != len(want) {
			t.Fatalf("PathSegments() = %v, want %v", segments, want)
		}
		for i := range want {
			if segments[i] != want[i] {
				t.Errorf("segment[%d] = %q, want %q", i, segments[i], want[i])
			}
		}
	})
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("classifies primary and secondary files", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")
		d.AddFolder("cat-prog", "course-go", "Go Basics", "")
		d.AddFile("course-go", "slides-1", "Intro.slides", testutil.MimePresentation)
		d.AddFile("course-go", "slides-2", "Advanced.slides", testutil.MimePresentation)
		d.AddFile("course-go", "notes", "Notes", testutil.MimeDocument)
		d.AddFile("course-go", "grades", "Grades", testutil.MimeSpreadsheet)
		d.AddFolder("course-go", "extras", "Extras", "")

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		files, err := r.Resolve(&model.Course{ID: 1, Category: "Programming", Course: "Go Basics"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if files == nil {
			t.Fatal("Resolve() returned nil, want files")
		}

		if len(files.Primary) != 2 {
			t.Errorf("len(Primary) = %d, want 2", len(files.Primary))
		}
		if len(files.Secondary) != 2 {
			t.Errorf("len(Secondary) = %d, want 2", len(files.Secondary))
		}
		// Secondary files come back in configured type order: docs first.
		if files.Secondary[0].ID != "notes" {
			t.Errorf("Secondary[0].ID = %q, want %q", files.Secondary[0].ID, "notes")
		}
		if files.Secondary[1].ID != "grades" {
			t.Errorf("Secondary[1].ID = %q, want %q", files.Secondary[1].ID, "grades")
		}
	})

	t.Run("walks sub-category folder when present", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")
		d.AddFolder("cat-prog", "sub-backend", "Backend", "")
		d.AddFolder("sub-backend", "course-go", "Go Basics", "")
		d.AddFile("course-go", "slides", "Intro.slides", testutil.MimePresentation)

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		files, err := r.Resolve(&model.Course{
			ID: 1, Category: "Programming", SubCategory: "Backend", Course: "Go Basics",
		})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if files == nil || len(files.Primary) != 1 {
			t.Fatalf("Resolve() = %+v, want 1 primary file", files)
		}
	})

	t.Run("missing Courses root aborts the run", func(t *testing.T) {
		d := drive.NewMemoryDrive() // no "Courses" container at all

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		_, err := r.Resolve(&model.Course{ID: 1, Category: "Programming", Course: "Go Basics"})
		if !errors.Is(err, access.ErrCoursesRootNotFound) {
			t.Errorf("Resolve() error = %v, want ErrCoursesRootNotFound", err)
		}
	})

	t.Run("missing segment fails under the default policy", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		_, err := r.Resolve(&model.Course{ID: 1, Category: "Programming", Course: "Go Basics"})
		if !errors.Is(err, access.ErrFolderNotFound) {
			t.Errorf("Resolve() error = %v, want ErrFolderNotFound", err)
		}
	})

	t.Run("missing segment is skipped under the skip policy", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")

		opts := testutil.ResolverOptions()
		opts.MissingFolder = access.MissingFolderSkip

		r := access.NewResolver(d, access.NewNopLogger(), opts)
		files, err := r.Resolve(&model.Course{ID: 1, Category: "Programming", Course: "Go Basics"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if files != nil {
			t.Errorf("Resolve() = %+v, want nil (course skipped)", files)
		}
	})

	t.Run("folder annotated Empty marks the course absent", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")
		d.AddFolder("cat-prog", "course-go", "Go Basics", "Empty")

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		files, err := r.Resolve(&model.Course{ID: 1, Category: "Programming", Course: "Go Basics"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if files != nil {
			t.Errorf("Resolve() = %+v, want nil for Empty-annotated course", files)
		}
	})

	t.Run("caches results per course", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")
		d.AddFolder("cat-prog", "course-go", "Go Basics", "")
		d.AddFile("course-go", "slides", "Intro.slides", testutil.MimePresentation)

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		course := &model.Course{ID: 1, Category: "Programming", Course: "Go Basics"}

		if _, err := r.Resolve(course); err != nil {
			t.Fatalf("first Resolve() error = %v", err)
		}
		calls := d.ListChildrenCalls()

		files, err := r.Resolve(course)
		if err != nil {
			t.Fatalf("second Resolve() error = %v", err)
		}
		if files == nil {
			t.Fatal("second Resolve() returned nil")
		}
		if d.ListChildrenCalls() != calls {
			t.Errorf("second Resolve() issued %d extra drive calls, want 0",
				d.ListChildrenCalls()-calls)
		}
	})

	t.Run("caches absent courses too", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "Empty")

		r := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
		course := &model.Course{ID: 1, Category: "Programming", Course: "Go Basics"}

		if _, err := r.Resolve(course); err != nil {
			t.Fatalf("first Resolve() error = %v", err)
		}
		calls := d.ListChildrenCalls()

		if _, err := r.Resolve(course); err != nil {
			t.Fatalf("second Resolve() error = %v", err)
		}
		if d.ListChildrenCalls() != calls {
			t.Errorf("second Resolve() issued %d extra drive calls, want 0",
				d.ListChildrenCalls()-calls)
		}
	})
}
