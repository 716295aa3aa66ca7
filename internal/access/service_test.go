package access_test

import (
	"errors"
	"testing"

	"coursesync/internal/access"
	"coursesync/internal/drive"
	"coursesync/internal/model"
	"coursesync/internal/testutil"
)

var copyRestriction = map[string]any{"copyRequiresWriterPermission": true}

// newService wires a service against an in-memory store and drive.
func newService(t *testing.T, d *drive.MemoryDrive) (*access.Service, access.Store) {
	t.Helper()
	store := testutil.NewTestStore(t)
	resolver := access.NewResolver(d, access.NewNopLogger(), testutil.ResolverOptions())
	svc := access.NewService(store, d, resolver, access.NewNopLogger(), copyRestriction)
	return svc, store
}

func addUser(t *testing.T, store access.Store, email, status, role string) model.User {
	t.Helper()
	res, err := store.AddUser(model.User{Email: email, Name: "Test User", Status: status, Role: role})
	if err != nil {
		t.Fatalf("AddUser(%s) error = %v", email, err)
	}
	if res.Outcome != access.AddInserted {
		t.Fatalf("AddUser(%s) outcome = %v, want inserted", email, res.Outcome)
	}
	return model.User{ID: res.ID, Email: email, Name: "Test User", Status: status, Role: role}
}

func addCourse(t *testing.T, store access.Store, category, subCategory, name string) int64 {
	t.Helper()
	res, err := store.AddCourse(model.Course{Category: category, SubCategory: subCategory, Course: name})
	if err != nil {
		t.Fatalf("AddCourse(%s) error = %v", name, err)
	}
	if res.Outcome != access.AddInserted {
		t.Fatalf("AddCourse(%s) outcome = %v, want inserted", name, res.Outcome)
	}
	return res.ID
}

func userStatus(t *testing.T, store access.Store, id int64) string {
	t.Helper()
	users, err := store.QueryUsers(access.UserFilter{ID: &id})
	if err != nil {
		t.Fatalf("QueryUsers() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("QueryUsers() returned %d users, want 1", len(users))
	}
	return users[0].Status
}

// addGoCourse builds Courses/Programming/Go Basics with two presentation
// files and one document.
func addGoCourse(d *drive.MemoryDrive) {
	d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")
	d.AddFolder("cat-prog", "course-go", "Go Basics", "")
	d.AddFile("course-go", "slides-1", "Intro.slides", testutil.MimePresentation)
	d.AddFile("course-go", "slides-2", "Advanced.slides", testutil.MimePresentation)
	d.AddFile("course-go", "notes", "Notes", testutil.MimeDocument)
}

func TestService_Reconcile_Grant(t *testing.T) {
	t.Run("creates one permission per file with the right roles", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusNew, "reader")
		courseID := addCourse(t, store, "Programming", "", "Go Basics")
		if err := store.AddAccess(user.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionGrant); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if got := d.CreatePermissionCalls(); got != 3 {
			t.Errorf("permission create calls = %d, want 3", got)
		}

		for _, fileID := range []string{"slides-1", "slides-2"} {
			perms := d.Permissions(fileID)
			if len(perms) != 1 || perms[0].Role != "reader" || perms[0].EmailAddress != "alice@example.com" {
				t.Errorf("permissions on %s = %+v, want one reader grant for alice", fileID, perms)
			}
		}
		perms := d.Permissions("notes")
		if len(perms) != 1 || perms[0].Role != model.RoleWriter {
			t.Errorf("permissions on notes = %+v, want one writer grant", perms)
		}

		if got := userStatus(t, store, user.ID); got != model.StatusActive {
			t.Errorf("status = %q, want %q", got, model.StatusActive)
		}
	})

	t.Run("empty-marked course performs zero permission calls", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		d.AddFolder(testutil.CoursesRootID, "cat-prog", "Programming", "")
		d.AddFolder("cat-prog", "course-go", "Go Basics", "Empty")
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusNew, "reader")
		courseID := addCourse(t, store, "Programming", "", "Go Basics")
		if err := store.AddAccess(user.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionGrant); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if got := d.CreatePermissionCalls(); got != 0 {
			t.Errorf("permission create calls = %d, want 0", got)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusActive {
			t.Errorf("status = %q, want %q", got, model.StatusActive)
		}
	})

	t.Run("a failed create does not stop the next file or the status update", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		d.FailCreatePermission("slides-1", errors.New("quota exceeded"))
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusNew, "reader")
		courseID := addCourse(t, store, "Programming", "", "Go Basics")
		if err := store.AddAccess(user.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionGrant); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if perms := d.Permissions("slides-1"); len(perms) != 0 {
			t.Errorf("permissions on slides-1 = %+v, want none", perms)
		}
		if perms := d.Permissions("slides-2"); len(perms) != 1 {
			t.Errorf("permissions on slides-2 = %+v, want one", perms)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusActive {
			t.Errorf("status = %q, want %q", got, model.StatusActive)
		}
	})

	t.Run("user with no accesses still gets the status update", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusNew, "reader")

		if err := svc.Reconcile([]model.User{user}, access.ActionGrant); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if got := d.CreatePermissionCalls(); got != 0 {
			t.Errorf("permission create calls = %d, want 0", got)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusActive {
			t.Errorf("status = %q, want %q", got, model.StatusActive)
		}
	})

	t.Run("access to a missing course row is skipped", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusNew, "reader")
		if err := store.AddAccess(user.ID, 999); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionGrant); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusActive {
			t.Errorf("status = %q, want %q", got, model.StatusActive)
		}
	})
}

func TestService_Reconcile_Revoke(t *testing.T) {
	t.Run("deletes the permission matching the email case-insensitively", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		if _, err := d.CreatePermission("slides-1", "Alice@Example.COM", "reader"); err != nil {
			t.Fatalf("seeding permission: %v", err)
		}
		if _, err := d.CreatePermission("slides-1", "bob@example.com", "reader"); err != nil {
			t.Fatalf("seeding permission: %v", err)
		}
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusFired, "reader")
		courseID := addCourse(t, store, "Programming", "", "Go Basics")
		if err := store.AddAccess(user.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionRevoke); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		perms := d.Permissions("slides-1")
		if len(perms) != 1 || perms[0].EmailAddress != "bob@example.com" {
			t.Errorf("permissions on slides-1 = %+v, want only bob's grant left", perms)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusDeactivated {
			t.Errorf("status = %q, want %q", got, model.StatusDeactivated)
		}
	})

	t.Run("no matching permission means no delete calls, status still updated", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		if _, err := d.CreatePermission("slides-1", "bob@example.com", "reader"); err != nil {
			t.Fatalf("seeding permission: %v", err)
		}
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusFired, "reader")
		courseID := addCourse(t, store, "Programming", "", "Go Basics")
		if err := store.AddAccess(user.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionRevoke); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		if got := d.DeletePermissionCalls(); got != 0 {
			t.Errorf("permission delete calls = %d, want 0", got)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusDeactivated {
			t.Errorf("status = %q, want %q", got, model.StatusDeactivated)
		}
	})

	t.Run("a failed permission listing does not stop the status update", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		d.FailListPermissions("slides-1", errors.New("backend down"))
		svc, store := newService(t, d)

		user := addUser(t, store, "alice@example.com", model.StatusFired, "reader")
		courseID := addCourse(t, store, "Programming", "", "Go Basics")
		if err := store.AddAccess(user.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}

		if err := svc.Reconcile([]model.User{user}, access.ActionRevoke); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		if got := userStatus(t, store, user.ID); got != model.StatusDeactivated {
			t.Errorf("status = %q, want %q", got, model.StatusDeactivated)
		}
	})
}

func TestService_Reconcile_UnknownAction(t *testing.T) {
	d := testutil.NewCourseDrive()
	svc, store := newService(t, d)

	user := addUser(t, store, "alice@example.com", model.StatusNew, "reader")

	err := svc.Reconcile([]model.User{user}, access.Action("archive"))
	if !errors.Is(err, access.ErrUnknownAction) {
		t.Errorf("Reconcile() error = %v, want ErrUnknownAction", err)
	}
	if got := userStatus(t, store, user.ID); got != model.StatusNew {
		t.Errorf("status = %q, want unchanged %q", got, model.StatusNew)
	}
}

func TestService_Run(t *testing.T) {
	d := testutil.NewCourseDrive()
	addGoCourse(d)
	svc, store := newService(t, d)

	newUser := addUser(t, store, "alice@example.com", model.StatusNew, "reader")
	firedUser := addUser(t, store, "bob@example.com", model.StatusFired, "reader")
	activeUser := addUser(t, store, "carol@example.com", model.StatusActive, "reader")

	courseID := addCourse(t, store, "Programming", "", "Go Basics")
	for _, u := range []model.User{newUser, firedUser} {
		if err := store.AddAccess(u.ID, courseID); err != nil {
			t.Fatalf("AddAccess() error = %v", err)
		}
	}

	// Bob already holds a grant that the run must revoke.
	if _, err := d.CreatePermission("slides-1", "bob@example.com", "reader"); err != nil {
		t.Fatalf("seeding permission: %v", err)
	}

	if err := svc.Run(false); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := userStatus(t, store, newUser.ID); got != model.StatusActive {
		t.Errorf("new user status = %q, want %q", got, model.StatusActive)
	}
	if got := userStatus(t, store, firedUser.ID); got != model.StatusDeactivated {
		t.Errorf("fired user status = %q, want %q", got, model.StatusDeactivated)
	}
	if got := userStatus(t, store, activeUser.ID); got != model.StatusActive {
		t.Errorf("active user status = %q, want untouched %q", got, model.StatusActive)
	}

	// Alice got her grants; bob's seeded grant is gone.
	foundAlice := false
	for _, p := range d.Permissions("slides-1") {
		if p.EmailAddress == "bob@example.com" {
			t.Errorf("bob's permission on slides-1 should have been revoked")
		}
		if p.EmailAddress == "alice@example.com" {
			foundAlice = true
		}
	}
	if !foundAlice {
		t.Errorf("alice has no permission on slides-1 after the run")
	}
}

func TestService_ApplyCopyRestriction(t *testing.T) {
	t.Run("restricts presentation files only", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		svc, store := newService(t, d)

		addCourse(t, store, "Programming", "", "Go Basics")

		if err := svc.ApplyCopyRestriction(); err != nil {
			t.Fatalf("ApplyCopyRestriction() error = %v", err)
		}

		for _, fileID := range []string{"slides-1", "slides-2"} {
			attrs := d.Attributes(fileID)
			if attrs == nil || attrs["copyRequiresWriterPermission"] != true {
				t.Errorf("attributes on %s = %v, want copy restriction set", fileID, attrs)
			}
		}
		if attrs := d.Attributes("notes"); attrs != nil {
			t.Errorf("attributes on notes = %v, want none", attrs)
		}
	})

	t.Run("skips absent courses and isolates per-file failures", func(t *testing.T) {
		d := testutil.NewCourseDrive()
		addGoCourse(d)
		d.AddFolder(testutil.CoursesRootID, "cat-design", "Design", "Empty")
		d.FailUpdateAttributes("slides-1", errors.New("denied"))
		svc, store := newService(t, d)

		addCourse(t, store, "Programming", "", "Go Basics")
		addCourse(t, store, "Design", "", "Figma Intro")

		if err := svc.ApplyCopyRestriction(); err != nil {
			t.Fatalf("ApplyCopyRestriction() error = %v", err)
		}

		if attrs := d.Attributes("slides-1"); attrs != nil {
			t.Errorf("attributes on slides-1 = %v, want none after injected failure", attrs)
		}
		if attrs := d.Attributes("slides-2"); attrs == nil {
			t.Error("attributes on slides-2 not set, want copy restriction")
		}
	})
}
