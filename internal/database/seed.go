package database

import (
	"encoding/json"
	"fmt"
	"os"

	"coursesync/internal/access"
	"coursesync/internal/model"
)

// seedData is the shape of the JSON mock-data file used to populate a
// fresh database.
type seedData struct {
	Users []struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		Status    string `json:"status"`
		Role      string `json:"role"`
		IsDeleted bool   `json:"is_deleted"`
		Comment   string `json:"comment"`
	} `json:"users"`
	Courses []struct {
		Category    string `json:"category"`
		SubCategory string `json:"sub_category"`
		CourseName  string `json:"course_name"`
	} `json:"courses"`
}

// Seed populates the store from a JSON mock-data file: every user, every
// course, and an access row for each user-course pair. Duplicate users
// and courses are skipped by the store's dedup keys, so re-seeding the
// same file is harmless (though accesses are duplicated, as the Accesses
// table has no dedup).
func Seed(store access.Store, dataPath string, logger access.Logger) error {
	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("reading seed data: %w", err)
	}

	var data seedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parsing seed data: %w", err)
	}

	for _, u := range data.Users {
		res, err := store.AddUser(model.User{
			Email:     u.Email,
			Name:      u.Name,
			Status:    u.Status,
			Role:      u.Role,
			IsDeleted: u.IsDeleted,
			Comment:   u.Comment,
		})
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", u.Email, err)
		}
		logSeedResult(logger, "user", u.Email, res)
	}

	for _, c := range data.Courses {
		res, err := store.AddCourse(model.Course{
			Category:    c.Category,
			SubCategory: c.SubCategory,
			Course:      c.CourseName,
		})
		if err != nil {
			return fmt.Errorf("seeding course %s: %w", c.CourseName, err)
		}
		logSeedResult(logger, "course", c.CourseName, res)
	}

	// The mock data entitles every user to every course.
	for _, u := range data.Users {
		email := u.Email
		users, err := store.QueryUsers(access.UserFilter{Email: &email})
		if err != nil {
			return fmt.Errorf("looking up seeded user %s: %w", u.Email, err)
		}
		if len(users) == 0 {
			logger.Warn("seeded user not found, skipping accesses", "email", u.Email)
			continue
		}

		for _, c := range data.Courses {
			category, name := c.Category, c.CourseName
			courses, err := store.QueryCourses(access.CourseFilter{Category: &category, Course: &name})
			if err != nil {
				return fmt.Errorf("looking up seeded course %s: %w", c.CourseName, err)
			}
			if len(courses) == 0 {
				logger.Warn("seeded course not found, skipping access", "course", c.CourseName)
				continue
			}

			if err := store.AddAccess(users[0].ID, courses[0].ID); err != nil {
				return fmt.Errorf("seeding access %s -> %s: %w", u.Email, c.CourseName, err)
			}
		}
	}

	logger.Info("database seeded",
		"users", len(data.Users), "courses", len(data.Courses))
	return nil
}

func logSeedResult(logger access.Logger, kind, key string, res access.AddResult) {
	switch res.Outcome {
	case access.AddInserted:
		logger.Debug("seeded "+kind, "key", key, "id", res.ID)
	case access.AddDuplicate:
		logger.Debug(kind+" already present, skipped", "key", key)
	case access.AddRejected:
		logger.Warn(kind+" rejected, missing field", "key", key, "field", res.MissingField)
	}
}
