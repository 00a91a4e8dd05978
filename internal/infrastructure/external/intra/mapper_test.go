package intra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
)

func TestMapper_StudentFromProfile(t *testing.T) {
	mapper := NewMapper()
	syncedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	profile := &ProfileDTO{
		ID:          77,
		Login:       "jdoe",
		DisplayName: "John Doe",
		Email:       "jdoe@student.42.fr",
		Image:       &ImageDTO{Link: "https://cdn.intra.42.fr/users/jdoe.jpg"},
		Campus:      []CampusDTO{{ID: 1, Name: "Paris"}},
	}

	s := mapper.StudentFromProfile(profile, syncedAt)

	assert.Equal(t, int64(77), s.IntraID)
	assert.Equal(t, student.Login("jdoe"), s.Login)
	assert.Equal(t, "John Doe", s.DisplayName)
	assert.Equal(t, "jdoe@student.42.fr", s.Email)
	assert.Equal(t, "https://cdn.intra.42.fr/users/jdoe.jpg", s.ImageURL)
	assert.Equal(t, "Paris", s.Campus)
	assert.Equal(t, student.OptInUnknown, s.ReadyToHelp)
	assert.Equal(t, syncedAt, s.LastSyncedAt)
}

func TestMapper_StudentFromProfile_MinimalProfile(t *testing.T) {
	mapper := NewMapper()

	s := mapper.StudentFromProfile(&ProfileDTO{ID: 1, Login: "jdoe"}, time.Now())

	assert.Equal(t, "jdoe", s.DisplayName)
	assert.Empty(t, s.ImageURL)
	assert.Empty(t, s.Campus)
}

func TestMapper_RecordFromProjectUser(t *testing.T) {
	mapper := NewMapper()
	syncedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mark := 114
	validated := true

	dto := ProjectUserDTO{
		ID:        3210599,
		Status:    "finished",
		Validated: &validated,
		FinalMark: &mark,
		MarkedAt:  "2023-10-05T12:30:00.000Z",
		Project:   ProjectDTO{ID: 1314, Name: "ft_printf", Slug: "42cursus-ft-printf"},
		Teams: []TeamDTO{
			{ID: 1, ClosedAt: "2023-09-20T10:00:00.000Z"},
			{ID: 2, ClosedAt: "2023-10-04T18:00:00.000Z"},
		},
	}

	record := mapper.RecordFromProjectUser(dto, syncedAt)

	assert.Equal(t, project.RecordID(3210599), record.ID)
	assert.Equal(t, project.ID(1314), record.ProjectID)
	assert.Equal(t, "ft_printf", record.Name)
	assert.Equal(t, "42cursus-ft-printf", record.Slug)
	assert.Equal(t, project.StatusFinished, record.Status)

	require.NotNil(t, record.FinalMark)
	assert.Equal(t, 114, *record.FinalMark)
	require.NotNil(t, record.Validated)
	assert.True(t, *record.Validated)

	require.NotNil(t, record.SyncedAt)
	assert.Equal(t, syncedAt, *record.SyncedAt)
	require.NotNil(t, record.MarkedAt)
	assert.Equal(t, time.Date(2023, 10, 5, 12, 30, 0, 0, time.UTC), *record.MarkedAt)

	// Completion comes from the latest closed team
	require.NotNil(t, record.FinishedAt)
	assert.Equal(t, time.Date(2023, 10, 4, 18, 0, 0, 0, time.UTC), *record.FinishedAt)
}

func TestMapper_RecordFromProjectUser_UnparseableTimestampsBecomeNil(t *testing.T) {
	mapper := NewMapper()

	dto := ProjectUserDTO{
		ID:       1,
		Status:   "in_progress",
		MarkedAt: "not-a-date",
		Project:  ProjectDTO{ID: 2, Name: "minishell", Slug: "42cursus-minishell"},
		Teams:    []TeamDTO{{ID: 1, ClosedAt: ""}},
	}

	record := mapper.RecordFromProjectUser(dto, time.Now())

	assert.Nil(t, record.MarkedAt)
	assert.Nil(t, record.FinishedAt)
	assert.NotNil(t, record.SyncedAt)
}

func TestMapper_RecordsFromProjectUsers_PreservesOrder(t *testing.T) {
	mapper := NewMapper()

	dtos := []ProjectUserDTO{
		{ID: 3, Project: ProjectDTO{ID: 30, Name: "c", Slug: "c"}},
		{ID: 1, Project: ProjectDTO{ID: 10, Name: "a", Slug: "a"}},
		{ID: 2, Project: ProjectDTO{ID: 20, Name: "b", Slug: "b"}},
	}

	records := mapper.RecordsFromProjectUsers(dtos, time.Now())

	require.Len(t, records, 3)
	assert.Equal(t, project.RecordID(3), records[0].ID)
	assert.Equal(t, project.RecordID(1), records[1].ID)
	assert.Equal(t, project.RecordID(2), records[2].ID)
}

func TestMapper_EnrollmentFromCursusUser(t *testing.T) {
	mapper := NewMapper()
	syncedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grade := "Member"

	dto := CursusUserDTO{
		ID:      77042,
		Grade:   &grade,
		Level:   8.43,
		BeginAt: "2023-09-01T00:00:00.000Z",
		EndAt:   "",
		Cursus:  CursusDTO{ID: 21, Name: "42cursus", Slug: "42cursus"},
	}

	e := mapper.EnrollmentFromCursusUser(dto, syncedAt)

	assert.Equal(t, int64(77042), e.ID)
	assert.Equal(t, int64(21), e.CursusID)
	assert.Equal(t, "42cursus", e.Name)
	assert.Equal(t, "42cursus", e.Slug)
	assert.Equal(t, "Member", e.Grade)
	assert.Equal(t, 8.43, e.Level)

	require.NotNil(t, e.BeganAt)
	assert.Equal(t, time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC), *e.BeganAt)
	assert.Nil(t, e.EndedAt)
	assert.True(t, e.IsActive())

	require.NotNil(t, e.SyncedAt)
	assert.Equal(t, syncedAt, *e.SyncedAt)
}

func TestMapper_EnrollmentFromCursusUser_NoGrade(t *testing.T) {
	mapper := NewMapper()

	dto := CursusUserDTO{
		ID:     9001,
		Level:  4.2,
		EndAt:  "2023-09-28T00:00:00.000Z",
		Cursus: CursusDTO{ID: 9, Name: "C Piscine", Slug: "c-piscine"},
	}

	e := mapper.EnrollmentFromCursusUser(dto, time.Now())

	assert.Empty(t, e.Grade)
	require.NotNil(t, e.EndedAt)
	assert.False(t, e.IsActive())
}
