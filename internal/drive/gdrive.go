package drive

import (
	"context"
	"fmt"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"coursesync/internal/access"
	"coursesync/internal/model"
)

// GoogleDrive implements the access.Drive capability against the Google
// Drive v3 API using a service account. One client is created per run and
// reused for all calls.
type GoogleDrive struct {
	svc *gdrive.Service
}

// NewGoogleDrive creates a Drive client authenticating with the service
// account credentials file at credentialsPath.
func NewGoogleDrive(ctx context.Context, credentialsPath string, scopes []string) (*GoogleDrive, error) {
	svc, err := gdrive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(scopes...))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &GoogleDrive{svc: svc}, nil
}

// queryEscaper escapes values interpolated into Drive query strings.
var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func (g *GoogleDrive) ListChildren(parentID, nameFilter, typeQuery string) ([]model.DriveFile, error) {
	var clauses []string
	if parentID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", queryEscaper.Replace(parentID)))
	}
	if nameFilter != "" {
		clauses = append(clauses, fmt.Sprintf("name='%s'", queryEscaper.Replace(nameFilter)))
	}
	if typeQuery != "" {
		clauses = append(clauses, typeQuery)
	}

	resp, err := g.svc.Files.List().
		Q(strings.Join(clauses, " and ")).
		Spaces("drive").
		Fields("files(id, name, description, mimeType)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	files := make([]model.DriveFile, 0, len(resp.Files))
	for _, f := range resp.Files {
		files = append(files, model.DriveFile{
			ID:          f.Id,
			Name:        f.Name,
			Description: f.Description,
			MimeType:    f.MimeType,
		})
	}
	return files, nil
}

func (g *GoogleDrive) ListPermissions(fileID string) ([]model.Permission, error) {
	resp, err := g.svc.Permissions.List(fileID).
		Fields("permissions(id,type,kind,role,emailAddress)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing permissions: %w", err)
	}

	perms := make([]model.Permission, 0, len(resp.Permissions))
	for _, p := range resp.Permissions {
		perms = append(perms, model.Permission{
			ID:           p.Id,
			Type:         p.Type,
			Kind:         p.Kind,
			Role:         p.Role,
			EmailAddress: p.EmailAddress,
		})
	}
	return perms, nil
}

func (g *GoogleDrive) CreatePermission(fileID, principalEmail, role string) (string, error) {
	perm, err := g.svc.Permissions.Create(fileID, &gdrive.Permission{
		Type:         "user",
		Role:         role,
		EmailAddress: principalEmail,
	}).
		Fields("id").
		SendNotificationEmail(false).
		Do()
	if err != nil {
		return "", fmt.Errorf("creating permission: %w", err)
	}
	return perm.Id, nil
}

func (g *GoogleDrive) DeletePermission(fileID, permissionID string) error {
	if err := g.svc.Permissions.Delete(fileID, permissionID).Do(); err != nil {
		return fmt.Errorf("deleting permission: %w", err)
	}
	return nil
}

// UpdateFileAttributes patches the attributes named in attrs onto the
// file. Only attributes the Drive API file resource supports are
// accepted; an unknown key is an error so config typos surface instead of
// silently doing nothing.
func (g *GoogleDrive) UpdateFileAttributes(fileID string, attrs map[string]any) error {
	patch := &gdrive.File{}
	for key, value := range attrs {
		switch key {
		case "copyRequiresWriterPermission":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("attribute %q must be a bool, got %T", key, value)
			}
			patch.CopyRequiresWriterPermission = b
			patch.ForceSendFields = append(patch.ForceSendFields, "CopyRequiresWriterPermission")
		default:
			return fmt.Errorf("unsupported file attribute %q", key)
		}
	}

	_, err := g.svc.Files.Update(fileID, patch).
		Fields("id, copyRequiresWriterPermission").
		Do()
	if err != nil {
		return fmt.Errorf("updating file attributes: %w", err)
	}
	return nil
}

// Compile-time check that GoogleDrive implements the access.Drive interface
var _ access.Drive = (*GoogleDrive)(nil)
