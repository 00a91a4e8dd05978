package query

import (
	"context"
	"testing"
	"time"

	"github.com/Grihladin/42Connect/internal/domain/matching"
	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/shared"
	"github.com/Grihladin/42Connect/internal/domain/student"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeStudentRepo struct {
	students map[student.Login]*student.Student
	cursus   map[student.Login][]student.CursusEnrollment
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{
		students: make(map[student.Login]*student.Student),
		cursus:   make(map[student.Login][]student.CursusEnrollment),
	}
}

func (f *fakeStudentRepo) Upsert(_ context.Context, s *student.Student) error {
	f.students[s.Login] = s
	return nil
}

func (f *fakeStudentRepo) GetByLogin(_ context.Context, login student.Login) (*student.Student, error) {
	s, ok := f.students[login]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeStudentRepo) GetByIntraID(_ context.Context, intraID int64) (*student.Student, error) {
	for _, s := range f.students {
		if s.IntraID == intraID {
			return s, nil
		}
	}
	return nil, shared.ErrStudentNotFound
}

func (f *fakeStudentRepo) ListLogins(_ context.Context) ([]student.Login, error) {
	logins := make([]student.Login, 0, len(f.students))
	for login := range f.students {
		logins = append(logins, login)
	}
	return logins, nil
}

func (f *fakeStudentRepo) UpdatePreferences(_ context.Context, login student.Login, p student.PreferenceUpdate) (*student.Student, error) {
	s, ok := f.students[login]
	if !ok {
		return nil, shared.ErrStudentNotFound
	}
	if p.ReadyToHelp != nil {
		s.ReadyToHelp = student.OptInFromBool(p.ReadyToHelp)
	}
	if p.VibeText != nil {
		s.VibeText = *p.VibeText
	}
	return s, nil
}

func (f *fakeStudentRepo) ReplaceCursus(_ context.Context, login student.Login, enrollments []student.CursusEnrollment) error {
	if _, ok := f.students[login]; !ok {
		return shared.ErrStudentNotFound
	}
	f.cursus[login] = enrollments
	return nil
}

func (f *fakeStudentRepo) ListCursus(_ context.Context, login student.Login) ([]student.CursusEnrollment, error) {
	return f.cursus[login], nil
}

type fakeProjectRepo struct {
	records  map[student.Login][]project.Record
	finished []matching.FinishedRecord
	vibePool []matching.VibePoolMember
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{records: make(map[student.Login][]project.Record)}
}

func (f *fakeProjectRepo) ReplaceForStudent(_ context.Context, login student.Login, records []project.Record) error {
	f.records[login] = records
	return nil
}

func (f *fakeProjectRepo) ListForStudent(_ context.Context, login student.Login) ([]project.Record, error) {
	return f.records[login], nil
}

func (f *fakeProjectRepo) FinishedPool(_ context.Context, _ []project.ID, _ student.Login) ([]matching.FinishedRecord, error) {
	return f.finished, nil
}

func (f *fakeProjectRepo) VibePool(_ context.Context, _ student.Login) ([]matching.VibePoolMember, error) {
	return f.vibePool, nil
}

type fakeDashboardCache struct {
	views map[string]*DashboardDTO
	sets  int
}

func newFakeDashboardCache() *fakeDashboardCache {
	return &fakeDashboardCache{views: make(map[string]*DashboardDTO)}
}

func (f *fakeDashboardCache) Get(_ context.Context, login string, dest interface{}) error {
	view, ok := f.views[login]
	if !ok {
		return shared.ErrNotFound
	}
	*dest.(*DashboardDTO) = *view
	return nil
}

func (f *fakeDashboardCache) Set(_ context.Context, login string, view interface{}) error {
	f.sets++
	f.views[login] = view.(*DashboardDTO)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(n int) *int              { return &n }
func bPtr(b bool) *bool              { return &b }

func testStudent(login string) *student.Student {
	return &student.Student{
		IntraID:      100,
		Login:        student.Login(login),
		DisplayName:  "Test Student",
		Campus:       "Berlin",
		ReadyToHelp:  student.OptInUnknown,
		LastSyncedAt: time.Now().UTC(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestBuildDashboard_ThreeLists(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	old := now.Add(-30 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	records := []project.Record{
		{ID: 1, ProjectID: 10, Name: "Libft", Slug: "42cursus-libft",
			Status: project.StatusFinished, FinalMark: intPtr(115), Validated: bPtr(true),
			FinishedAt: timePtr(old)},
		{ID: 2, ProjectID: 20, Name: "ft_printf", Slug: "42cursus-ft-printf",
			Status: project.StatusFinished, FinalMark: intPtr(100), Validated: bPtr(true),
			FinishedAt: timePtr(recent)},
		{ID: 3, ProjectID: 30, Name: "minishell", Slug: "minishell",
			Status: project.StatusInProgress, SyncedAt: timePtr(recent)},
	}

	dto := buildDashboard(testStudent("jdoe"), records, nil, now)

	require.Len(t, dto.Finished, 2)
	require.Len(t, dto.InProgress, 1)
	require.Len(t, dto.All, 3)

	// Finished: most recent completion first.
	assert.Equal(t, "ft_printf", dto.Finished[0].Name)
	assert.Equal(t, "Libft", dto.Finished[1].Name)

	assert.Equal(t, "minishell", dto.InProgress[0].Name)
	assert.Equal(t, "jdoe", dto.Student.Login)
	assert.False(t, dto.FromCache)
}

func TestBuildDashboard_RetakeAndBadges(t *testing.T) {
	now := time.Now().UTC()

	records := []project.Record{
		{ID: 1, ProjectID: 10, Name: "Libft", Slug: "42cursus-libft",
			Status: project.StatusFinished, FinalMark: intPtr(0), Validated: bPtr(false)},
		{ID: 2, ProjectID: 20, Name: "ft_printf", Slug: "42cursus-ft-printf",
			Status: project.StatusFinished, FinalMark: intPtr(125), Validated: bPtr(true)},
		{ID: 3, ProjectID: 30, Name: "minishell", Slug: "minishell",
			Status: project.StatusInProgress},
	}

	dto := buildDashboard(testStudent("jdoe"), records, nil, now)

	byName := make(map[string]ProjectDTO)
	for _, p := range dto.All {
		byName[p.Name] = p
	}

	assert.True(t, byName["Libft"].NeedsRetake)
	assert.Equal(t, "0 ✗", byName["Libft"].ScoreBadge)
	assert.Equal(t, "125 ✓", byName["ft_printf"].ScoreBadge)
	assert.Equal(t, "—", byName["minishell"].ScoreBadge)
}

func TestBuildDashboard_NormalizesRecords(t *testing.T) {
	now := time.Now().UTC()

	records := []project.Record{
		{ID: 1, ProjectID: 10, Name: "ft_printf 80", Slug: "42cursus-ft-printf",
			Status: project.StatusInProgress},
		{ID: 2, ProjectID: 20, Name: "C Piscine C 00", Slug: "c-piscine-c-00",
			Status: project.StatusFinished},
	}

	dto := buildDashboard(testStudent("jdoe"), records, nil, now)

	// Piscine is dropped, trailing percent extracted.
	require.Len(t, dto.All, 1)
	assert.Equal(t, "ft_printf", dto.All[0].Name)
	require.NotNil(t, dto.All[0].ProgressPercent)
	assert.Equal(t, 80, *dto.All[0].ProgressPercent)
	assert.Equal(t, 80, dto.All[0].ProgressBarWidth)
}

func TestGetDashboard_IncludesCursus(t *testing.T) {
	studentRepo := newFakeStudentRepo()
	studentRepo.students["jdoe"] = testStudent("jdoe")

	began := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	ended := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)
	studentRepo.cursus["jdoe"] = []student.CursusEnrollment{
		{ID: 1, CursusID: 21, Name: "42cursus", Slug: "42cursus",
			Grade: "Member", Level: 8.43, BeganAt: timePtr(began)},
		{ID: 2, CursusID: 9, Name: "C Piscine", Slug: "c-piscine",
			Level: 9.11, BeganAt: timePtr(began), EndedAt: timePtr(ended)},
	}

	handler := NewGetDashboardHandler(studentRepo, newFakeProjectRepo(), nil, nil)

	dto, err := handler.Handle(context.Background(), GetDashboardQuery{Login: "jdoe"})
	require.NoError(t, err)

	require.Len(t, dto.Cursus, 2)
	assert.Equal(t, "42cursus", dto.Cursus[0].Name)
	assert.Equal(t, "Member", dto.Cursus[0].Grade)
	assert.Equal(t, 8.43, dto.Cursus[0].Level)
	assert.True(t, dto.Cursus[0].Active)
	assert.Empty(t, dto.Cursus[0].EndedAt)

	assert.False(t, dto.Cursus[1].Active)
	assert.Equal(t, "2024-09-28T00:00:00Z", dto.Cursus[1].EndedAt)
}

func TestGetDashboard_Validation(t *testing.T) {
	handler := NewGetDashboardHandler(newFakeStudentRepo(), newFakeProjectRepo(), nil, nil)

	_, err := handler.Handle(context.Background(), GetDashboardQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetDashboard_UnknownStudent(t *testing.T) {
	handler := NewGetDashboardHandler(newFakeStudentRepo(), newFakeProjectRepo(), nil, nil)

	_, err := handler.Handle(context.Background(), GetDashboardQuery{Login: "ghost"})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetDashboard_CacheRoundTrip(t *testing.T) {
	studentRepo := newFakeStudentRepo()
	studentRepo.students["jdoe"] = testStudent("jdoe")
	cache := newFakeDashboardCache()

	handler := NewGetDashboardHandler(studentRepo, newFakeProjectRepo(), cache, nil)

	first, err := handler.Handle(context.Background(), GetDashboardQuery{Login: "jdoe"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.sets)

	second, err := handler.Handle(context.Background(), GetDashboardQuery{Login: "jdoe"})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, cache.sets)

	// SkipCache rebuilds and rewrites the cache.
	third, err := handler.Handle(context.Background(), GetDashboardQuery{Login: "jdoe", SkipCache: true})
	require.NoError(t, err)
	assert.False(t, third.FromCache)
	assert.Equal(t, 2, cache.sets)
}
