package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func finishedRecord(login string, projectID project.ID, finishedAt *time.Time) FinishedRecord {
	return FinishedRecord{
		Student: student.Summary{Login: student.Login(login), ReadyToHelp: student.OptInYes},
		Record: project.Record{
			ProjectID:  projectID,
			Status:     project.StatusFinished,
			FinishedAt: finishedAt,
		},
	}
}

func TestFindHelpers_OrdersByCompletionDescending(t *testing.T) {
	earlier := mustTime(t, "2024-01-10T00:00:00Z")
	later := mustTime(t, "2024-02-10T00:00:00Z")

	pool := []FinishedRecord{
		finishedRecord("alice", 1331, &earlier),
		finishedRecord("bob", 1331, &later),
	}

	result := FindHelpers([]project.ID{1331}, pool)

	require.Contains(t, result, project.ID(1331))
	candidates := result[1331]
	require.Len(t, candidates, 2)
	assert.Equal(t, student.Login("bob"), candidates[0].Student.Login)
	assert.Equal(t, student.Login("alice"), candidates[1].Student.Login)
	assert.Equal(t, later, candidates[0].FinishedAt)
}

func TestFindHelpers_TrackedProjectWithoutFinishersYieldsEmptyList(t *testing.T) {
	finished := mustTime(t, "2024-01-10T00:00:00Z")
	pool := []FinishedRecord{finishedRecord("alice", 1331, &finished)}

	result := FindHelpers([]project.ID{1331, 2007}, pool)

	require.Contains(t, result, project.ID(2007), "tracked project must be present")
	assert.Empty(t, result[2007])
	assert.NotNil(t, result[2007], "explicitly empty, not a missing key")
}

func TestFindHelpers_IgnoresPoolEntriesForUntrackedProjects(t *testing.T) {
	finished := mustTime(t, "2024-01-10T00:00:00Z")
	pool := []FinishedRecord{finishedRecord("alice", 9999, &finished)}

	result := FindHelpers([]project.ID{1331}, pool)

	assert.Len(t, result, 1)
	assert.NotContains(t, result, project.ID(9999))
}

func TestFindHelpers_TiesKeepPoolOrder(t *testing.T) {
	same := mustTime(t, "2024-01-10T00:00:00Z")
	pool := []FinishedRecord{
		finishedRecord("first", 1331, &same),
		finishedRecord("second", 1331, &same),
		finishedRecord("third", 1331, &same),
	}

	result := FindHelpers([]project.ID{1331}, pool)

	candidates := result[1331]
	require.Len(t, candidates, 3)
	assert.Equal(t, student.Login("first"), candidates[0].Student.Login)
	assert.Equal(t, student.Login("second"), candidates[1].Student.Login)
	assert.Equal(t, student.Login("third"), candidates[2].Student.Login)
}

func TestFindHelpers_UsesCompletionFallbackForMissingFinishedAt(t *testing.T) {
	marked := mustTime(t, "2024-03-01T00:00:00Z")

	fr := FinishedRecord{
		Student: student.Summary{Login: "carol"},
		Record: project.Record{
			ProjectID: 1331,
			Status:    project.StatusFinished,
			MarkedAt:  &marked,
		},
	}

	result := FindHelpers([]project.ID{1331}, []FinishedRecord{fr})

	candidates := result[1331]
	require.Len(t, candidates, 1)
	assert.Equal(t, marked, candidates[0].FinishedAt)
}

func TestFindHelpers_CarriesFinalMark(t *testing.T) {
	finished := mustTime(t, "2024-01-10T00:00:00Z")
	mark := 125

	fr := finishedRecord("dave", 1331, &finished)
	fr.Record.FinalMark = &mark

	result := FindHelpers([]project.ID{1331}, []FinishedRecord{fr})

	candidates := result[1331]
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].FinalMark)
	assert.Equal(t, 125, *candidates[0].FinalMark)
}
