package drive

import (
	"fmt"
	"strings"
	"sync"

	"coursesync/internal/access"
	"coursesync/internal/model"
)

// FolderMimeType is the storage service's folder content type.
const FolderMimeType = "application/vnd.google-apps.folder"

// MemoryDrive is an in-memory implementation of the access.Drive
// capability. It holds a folder tree and per-file permissions, making it
// useful for tests and dry runs. Failures can be injected per file to
// exercise failure-isolation paths. Safe for concurrent use.
type MemoryDrive struct {
	mu       sync.RWMutex
	files    map[string]model.DriveFile
	children map[string][]string // parentID -> child IDs in insertion order
	order    []string            // all IDs in insertion order, for whole-space searches
	perms    map[string][]model.Permission
	permSeq  int
	attrs    map[string]map[string]any

	createErr    map[string]error
	listPermsErr map[string]error
	updateErr    map[string]error

	listChildrenCalls int
	createCalls       int
	deleteCalls       int
	updateCalls       int
}

// NewMemoryDrive creates an empty in-memory drive.
func NewMemoryDrive() *MemoryDrive {
	return &MemoryDrive{
		files:        make(map[string]model.DriveFile),
		children:     make(map[string][]string),
		perms:        make(map[string][]model.Permission),
		attrs:        make(map[string]map[string]any),
		createErr:    make(map[string]error),
		listPermsErr: make(map[string]error),
		updateErr:    make(map[string]error),
	}
}

// AddFolder registers a folder under parentID. An empty parentID places
// it at the top of the storage space. description carries the folder
// annotation (e.g. the "Empty" marker).
func (d *MemoryDrive) AddFolder(parentID, id, name, description string) {
	d.addEntry(parentID, model.DriveFile{
		ID:          id,
		Name:        name,
		Description: description,
		MimeType:    FolderMimeType,
	})
}

// AddFile registers a file with the given content type under parentID.
func (d *MemoryDrive) AddFile(parentID, id, name, mimeType string) {
	d.addEntry(parentID, model.DriveFile{ID: id, Name: name, MimeType: mimeType})
}

func (d *MemoryDrive) addEntry(parentID string, f model.DriveFile) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.files[f.ID] = f
	d.order = append(d.order, f.ID)
	if parentID != "" {
		d.children[parentID] = append(d.children[parentID], f.ID)
	}
}

func (d *MemoryDrive) ListChildren(parentID, nameFilter, typeQuery string) ([]model.DriveFile, error) {
	d.mu.Lock()
	d.listChildrenCalls++
	d.mu.Unlock()

	d.mu.RLock()
	defer d.mu.RUnlock()

	candidates := d.order
	if parentID != "" {
		candidates = d.children[parentID]
	}

	var matches []model.DriveFile
	for _, id := range candidates {
		f := d.files[id]
		if nameFilter != "" && f.Name != nameFilter {
			continue
		}
		if !matchesTypeQuery(f.MimeType, typeQuery) {
			continue
		}
		matches = append(matches, f)
	}
	return matches, nil
}

// matchesTypeQuery interprets the two query-fragment shapes the
// configuration uses: mimeType='x' and mimeType contains 'x'.
func matchesTypeQuery(mimeType, query string) bool {
	if query == "" {
		return true
	}
	if v, ok := strings.CutPrefix(query, "mimeType="); ok {
		return mimeType == strings.Trim(v, "'")
	}
	if v, ok := strings.CutPrefix(query, "mimeType contains "); ok {
		return strings.Contains(mimeType, strings.Trim(v, "'"))
	}
	return false
}

func (d *MemoryDrive) ListPermissions(fileID string) ([]model.Permission, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.listPermsErr[fileID]; err != nil {
		return nil, err
	}

	perms := make([]model.Permission, len(d.perms[fileID]))
	copy(perms, d.perms[fileID])
	return perms, nil
}

func (d *MemoryDrive) CreatePermission(fileID, principalEmail, role string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.createCalls++
	if err := d.createErr[fileID]; err != nil {
		return "", err
	}
	if _, ok := d.files[fileID]; !ok {
		return "", fmt.Errorf("file not found: %s", fileID)
	}

	d.permSeq++
	perm := model.Permission{
		ID:           fmt.Sprintf("perm-%d", d.permSeq),
		Type:         "user",
		Kind:         "drive#permission",
		Role:         role,
		EmailAddress: principalEmail,
	}
	d.perms[fileID] = append(d.perms[fileID], perm)
	return perm.ID, nil
}

func (d *MemoryDrive) DeletePermission(fileID, permissionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.deleteCalls++
	perms := d.perms[fileID]
	for i, p := range perms {
		if p.ID == permissionID {
			d.perms[fileID] = append(perms[:i], perms[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("permission not found: %s on file %s", permissionID, fileID)
}

func (d *MemoryDrive) UpdateFileAttributes(fileID string, attrs map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.updateCalls++
	if err := d.updateErr[fileID]; err != nil {
		return err
	}
	if _, ok := d.files[fileID]; !ok {
		return fmt.Errorf("file not found: %s", fileID)
	}

	if d.attrs[fileID] == nil {
		d.attrs[fileID] = make(map[string]any)
	}
	for k, v := range attrs {
		d.attrs[fileID][k] = v
	}
	return nil
}

// Failure injection

// FailCreatePermission makes CreatePermission fail for fileID.
func (d *MemoryDrive) FailCreatePermission(fileID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.createErr[fileID] = err
}

// FailListPermissions makes ListPermissions fail for fileID.
func (d *MemoryDrive) FailListPermissions(fileID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listPermsErr[fileID] = err
}

// FailUpdateAttributes makes UpdateFileAttributes fail for fileID.
func (d *MemoryDrive) FailUpdateAttributes(fileID string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateErr[fileID] = err
}

// Inspection helpers for tests

// Permissions returns a copy of the permissions on fileID.
func (d *MemoryDrive) Permissions(fileID string) []model.Permission {
	d.mu.RLock()
	defer d.mu.RUnlock()
	perms := make([]model.Permission, len(d.perms[fileID]))
	copy(perms, d.perms[fileID])
	return perms
}

// Attributes returns the attributes applied to fileID, or nil.
func (d *MemoryDrive) Attributes(fileID string) map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.attrs[fileID]
}

func (d *MemoryDrive) ListChildrenCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.listChildrenCalls
}

func (d *MemoryDrive) CreatePermissionCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.createCalls
}

func (d *MemoryDrive) DeletePermissionCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.deleteCalls
}

func (d *MemoryDrive) UpdateAttributeCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updateCalls
}

// Compile-time check that MemoryDrive implements the access.Drive interface
var _ access.Drive = (*MemoryDrive)(nil)
