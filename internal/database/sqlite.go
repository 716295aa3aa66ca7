package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursesync/internal/access"
	"coursesync/internal/database/migrations"
	"coursesync/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// domainTables are the membership tables, in the order Clear deletes them
// by default. Accesses go first so the relation never outlives its rows.
var domainTables = []string{"Accesses", "Users", "Courses"}

// SQLiteStore implements the access.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string

	// courseKeyIncludesSubCategory widens the course dedup key from
	// (Category, Course) to (Category, SubCategory, Course).
	courseKeyIncludesSubCategory bool
}

// NewSQLiteStore opens a new SQLite store.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string, courseKeyIncludesSubCategory bool) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteStore{
		db:                           db,
		path:                         path,
		courseKeyIncludesSubCategory: courseKeyIncludesSubCategory,
	}, nil
}

// NewSQLiteStoreFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB, courseKeyIncludesSubCategory bool) *SQLiteStore {
	return &SQLiteStore{
		db:                           db,
		path:                         "",
		courseKeyIncludesSubCategory: courseKeyIncludesSubCategory,
	}
}

// OpenConnection opens a SQLite database connection.
// Foreign keys stay at SQLite's default (OFF): the Accesses schema
// declares them for documentation only, and seeding inserts relation rows
// without existence checks.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// User operations

func (s *SQLiteStore) AddUser(user model.User) (access.AddResult, error) {
	if field := missingUserField(user); field != "" {
		return access.AddResult{Outcome: access.AddRejected, MissingField: field}, nil
	}

	var existingID int64
	err := s.db.QueryRow("SELECT ID FROM Users WHERE Email = ?", user.Email).Scan(&existingID)
	if err == nil {
		return access.AddResult{Outcome: access.AddDuplicate}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return access.AddResult{}, fmt.Errorf("checking for existing user: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO Users (Email, Name, Status, Role, IsDeleted, Comment)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.Name, user.Status, user.Role, boolToInt(user.IsDeleted), user.Comment)
	if err != nil {
		return access.AddResult{}, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return access.AddResult{}, fmt.Errorf("reading inserted user ID: %w", err)
	}
	return access.AddResult{Outcome: access.AddInserted, ID: id}, nil
}

// missingUserField returns the name of the first absent required field,
// or "" when all are present.
func missingUserField(user model.User) string {
	switch {
	case user.Email == "":
		return "email"
	case user.Name == "":
		return "name"
	case user.Status == "":
		return "status"
	case user.Role == "":
		return "role"
	}
	return ""
}

func (s *SQLiteStore) SetUserStatus(userID int64, status string) (bool, error) {
	res, err := s.db.Exec("UPDATE Users SET Status = ? WHERE ID = ?", status, userID)
	if err != nil {
		return false, fmt.Errorf("updating user status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

func (s *SQLiteStore) QueryUsers(filter access.UserFilter) ([]model.User, error) {
	query := "SELECT ID, Email, Name, Status, Role, IsDeleted, Comment FROM Users"
	var conditions []string
	var args []any

	if filter.ID != nil {
		conditions = append(conditions, "ID = ?")
		args = append(args, *filter.ID)
	}
	if filter.Email != nil {
		conditions = append(conditions, "Email = ?")
		args = append(args, *filter.Email)
	}
	if filter.Name != nil {
		conditions = append(conditions, "Name = ?")
		args = append(args, *filter.Name)
	}
	if filter.Status != nil {
		conditions = append(conditions, "Status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Role != nil {
		conditions = append(conditions, "Role = ?")
		args = append(args, *filter.Role)
	}
	if filter.IsDeleted != nil {
		conditions = append(conditions, "IsDeleted = ?")
		args = append(args, boolToInt(*filter.IsDeleted))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var email, name, status, role, comment sql.NullString
		var isDeleted sql.NullInt64
		if err := rows.Scan(&u.ID, &email, &name, &status, &role, &isDeleted, &comment); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Email = email.String
		u.Name = name.String
		u.Status = status.String
		u.Role = role.String
		u.IsDeleted = isDeleted.Int64 != 0
		u.Comment = comment.String
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// Course operations

func (s *SQLiteStore) AddCourse(course model.Course) (access.AddResult, error) {
	if field := missingCourseField(course); field != "" {
		return access.AddResult{Outcome: access.AddRejected, MissingField: field}, nil
	}

	dupQuery := "SELECT ID FROM Courses WHERE Category = ? AND Course = ?"
	dupArgs := []any{course.Category, course.Course}
	if s.courseKeyIncludesSubCategory {
		dupQuery = "SELECT ID FROM Courses WHERE Category = ? AND SubCategory = ? AND Course = ?"
		dupArgs = []any{course.Category, course.SubCategory, course.Course}
	}

	var existingID int64
	err := s.db.QueryRow(dupQuery, dupArgs...).Scan(&existingID)
	if err == nil {
		return access.AddResult{Outcome: access.AddDuplicate}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return access.AddResult{}, fmt.Errorf("checking for existing course: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO Courses (Category, SubCategory, Course)
		VALUES (?, ?, ?)`,
		course.Category, course.SubCategory, course.Course)
	if err != nil {
		return access.AddResult{}, fmt.Errorf("inserting course: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return access.AddResult{}, fmt.Errorf("reading inserted course ID: %w", err)
	}
	return access.AddResult{Outcome: access.AddInserted, ID: id}, nil
}

func missingCourseField(course model.Course) string {
	switch {
	case course.Category == "":
		return "category"
	case course.Course == "":
		return "course"
	}
	return ""
}

func (s *SQLiteStore) QueryCourses(filter access.CourseFilter) ([]model.Course, error) {
	query := "SELECT ID, Category, SubCategory, Course FROM Courses"
	var conditions []string
	var args []any

	if filter.ID != nil {
		conditions = append(conditions, "ID = ?")
		args = append(args, *filter.ID)
	}
	if filter.Category != nil {
		conditions = append(conditions, "Category = ?")
		args = append(args, *filter.Category)
	}
	if filter.SubCategory != nil {
		conditions = append(conditions, "SubCategory = ?")
		args = append(args, *filter.SubCategory)
	}
	if filter.Course != nil {
		conditions = append(conditions, "Course = ?")
		args = append(args, *filter.Course)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		var category, subCategory, name sql.NullString
		if err := rows.Scan(&c.ID, &category, &subCategory, &name); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		c.Category = category.String
		c.SubCategory = subCategory.String
		c.Course = name.String
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating courses: %w", err)
	}
	return courses, nil
}

// Access operations

func (s *SQLiteStore) AddAccess(userID, courseID int64) error {
	_, err := s.db.Exec("INSERT INTO Accesses (UserID, CourseID) VALUES (?, ?)", userID, courseID)
	if err != nil {
		return fmt.Errorf("inserting access: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AccessesByUser(userID int64) ([]int64, error) {
	rows, err := s.db.Query("SELECT CourseID FROM Accesses WHERE UserID = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("querying accesses: %w", err)
	}
	defer rows.Close()

	courseIDs := []int64{}
	for rows.Next() {
		var courseID int64
		if err := rows.Scan(&courseID); err != nil {
			return nil, fmt.Errorf("scanning access: %w", err)
		}
		courseIDs = append(courseIDs, courseID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accesses: %w", err)
	}
	return courseIDs, nil
}

// Clear deletes all rows from the named tables, defaulting to the three
// membership tables. Table names are checked against the schema so a bad
// argument cannot reach the SQL text.
func (s *SQLiteStore) Clear(tables ...string) error {
	if len(tables) == 0 {
		tables = domainTables
	}

	for _, table := range tables {
		if !knownTable(table) {
			return fmt.Errorf("unknown table: %s", table)
		}
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

func knownTable(name string) bool {
	for _, t := range domainTables {
		if t == name {
			return true
		}
	}
	return name == "sync_operations"
}

// Sync operation tracking

func (s *SQLiteStore) CreateSyncOperation(operation, parameters string) (*model.SyncOperation, error) {
	startedAt := time.Now()
	res, err := s.db.Exec(`
		INSERT INTO sync_operations (operation, parameters, started_at, status)
		VALUES (?, ?, ?, '')`,
		operation, parameters, startedAt)
	if err != nil {
		return nil, fmt.Errorf("creating sync operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading sync operation ID: %w", err)
	}

	return &model.SyncOperation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
	}, nil
}

func (s *SQLiteStore) FinishSyncOperation(id int64, status string) error {
	_, err := s.db.Exec(`
		UPDATE sync_operations SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now(), status, id)
	if err != nil {
		return fmt.Errorf("finishing sync operation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSyncOperations(limit int) ([]*model.SyncOperation, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM sync_operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.SyncOperation
	for rows.Next() {
		var op model.SyncOperation
		var finishedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning sync operation: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteStore) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.Check(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time check that SQLiteStore implements the access.Store interface
var _ access.Store = (*SQLiteStore)(nil)
