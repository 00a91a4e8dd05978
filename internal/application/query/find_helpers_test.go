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

func helperSummary(login string) student.Summary {
	return student.Summary{
		Login:       student.Login(login),
		DisplayName: login,
		Campus:      "Berlin",
		ReadyToHelp: student.OptInYes,
	}
}

func TestFindHelpers_Validation(t *testing.T) {
	q := FindHelpersQuery{}
	assert.Error(t, q.Validate())

	q = FindHelpersQuery{Login: "jdoe"}
	require.NoError(t, q.Validate())
	assert.Equal(t, 5, q.Limit)

	q = FindHelpersQuery{Login: "jdoe", Limit: 100}
	require.NoError(t, q.Validate())
	assert.Equal(t, 20, q.Limit)
}

func TestFindHelpers_GroupsByActiveProject(t *testing.T) {
	now := time.Now().UTC()

	studentRepo := newFakeStudentRepo()
	studentRepo.students["jdoe"] = testStudent("jdoe")

	projectRepo := newFakeProjectRepo()
	projectRepo.records["jdoe"] = []project.Record{
		{ID: 1, ProjectID: 30, Name: "minishell", Slug: "minishell",
			Status: project.StatusInProgress, SyncedAt: timePtr(now)},
		{ID: 2, ProjectID: 40, Name: "philosophers", Slug: "philosophers",
			Status: project.StatusInProgress, SyncedAt: timePtr(now.Add(-time.Hour))},
	}
	projectRepo.finished = []matching.FinishedRecord{
		{
			Student: helperSummary("asmith"),
			Record: project.Record{ID: 10, ProjectID: 30, Name: "minishell", Slug: "minishell",
				Status: project.StatusFinished, FinalMark: intPtr(101),
				FinishedAt: timePtr(now.Add(-24 * time.Hour))},
		},
		{
			Student: helperSummary("bjones"),
			Record: project.Record{ID: 11, ProjectID: 30, Name: "minishell", Slug: "minishell",
				Status: project.StatusFinished, FinalMark: intPtr(125),
				FinishedAt: timePtr(now.Add(-time.Hour))},
		},
	}

	handler := NewFindHelpersHandler(studentRepo, projectRepo, projectRepo, nil)

	result, err := handler.Handle(context.Background(), FindHelpersQuery{Login: "jdoe"})
	require.NoError(t, err)

	require.Len(t, result.Projects, 2)

	// Requester's projects ordered by their own activity.
	minishell := result.Projects[0]
	assert.Equal(t, "minishell", minishell.Name)
	require.Len(t, minishell.Helpers, 2)

	// Most recent completion first.
	assert.Equal(t, "bjones", minishell.Helpers[0].Student.Login)
	assert.Equal(t, "asmith", minishell.Helpers[1].Student.Login)
	require.NotNil(t, minishell.Helpers[0].FinalMark)
	assert.Equal(t, 125, *minishell.Helpers[0].FinalMark)

	// Tracked project with no finishers gets an explicit empty list.
	philosophers := result.Projects[1]
	assert.Equal(t, "philosophers", philosophers.Name)
	assert.NotNil(t, philosophers.Helpers)
	assert.Empty(t, philosophers.Helpers)
}

func TestFindHelpers_LimitPerProject(t *testing.T) {
	now := time.Now().UTC()

	studentRepo := newFakeStudentRepo()
	studentRepo.students["jdoe"] = testStudent("jdoe")

	projectRepo := newFakeProjectRepo()
	projectRepo.records["jdoe"] = []project.Record{
		{ID: 1, ProjectID: 30, Name: "minishell", Slug: "minishell",
			Status: project.StatusInProgress, SyncedAt: timePtr(now)},
	}
	for i := 0; i < 10; i++ {
		projectRepo.finished = append(projectRepo.finished, matching.FinishedRecord{
			Student: helperSummary("helper"),
			Record: project.Record{ID: project.RecordID(100 + i), ProjectID: 30,
				Status: project.StatusFinished, FinishedAt: timePtr(now.Add(-time.Duration(i) * time.Hour))},
		})
	}

	handler := NewFindHelpersHandler(studentRepo, projectRepo, projectRepo, nil)

	result, err := handler.Handle(context.Background(), FindHelpersQuery{Login: "jdoe", Limit: 3})
	require.NoError(t, err)

	require.Len(t, result.Projects, 1)
	assert.Len(t, result.Projects[0].Helpers, 3)
	assert.Equal(t, 10, result.Projects[0].TotalFound)
}

func TestFindHelpers_NoActiveProjects(t *testing.T) {
	studentRepo := newFakeStudentRepo()
	studentRepo.students["jdoe"] = testStudent("jdoe")

	projectRepo := newFakeProjectRepo()
	projectRepo.records["jdoe"] = []project.Record{
		{ID: 1, ProjectID: 10, Name: "Libft", Slug: "42cursus-libft",
			Status: project.StatusFinished},
	}

	handler := NewFindHelpersHandler(studentRepo, projectRepo, projectRepo, nil)

	result, err := handler.Handle(context.Background(), FindHelpersQuery{Login: "jdoe"})
	require.NoError(t, err)
	assert.Empty(t, result.Projects)
}

func TestFindHelpers_UnknownRequester(t *testing.T) {
	projectRepo := newFakeProjectRepo()
	handler := NewFindHelpersHandler(newFakeStudentRepo(), projectRepo, projectRepo, nil)

	_, err := handler.Handle(context.Background(), FindHelpersQuery{Login: "ghost"})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestActiveProjects_CollapsesRetakeDuplicates(t *testing.T) {
	now := time.Now().UTC()

	records := []project.Record{
		{ID: 1, ProjectID: 30, Name: "minishell", Slug: "minishell",
			Status: project.StatusInProgress, SyncedAt: timePtr(now)},
		{ID: 2, ProjectID: 30, Name: "minishell", Slug: "minishell",
			Status: project.StatusInProgress, SyncedAt: timePtr(now.Add(-time.Hour))},
	}

	active := activeProjects(records)
	require.Len(t, active, 1)
	assert.Equal(t, project.RecordID(1), active[0].ID)
}
