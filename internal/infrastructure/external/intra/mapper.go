package intra

import (
	"time"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/timeutil"
)

// Mapper converts Intra DTOs to domain models.
// Timestamp strings that no layout accepts become nil here, so the domain
// resolvers only ever see present-or-absent instants.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// StudentFromProfile maps an Intra profile to a domain student.
// Preference fields (ReadyToHelp, VibeText) are owned by 42Connect, not
// Intra, so the caller merges them from the existing row on upsert.
func (m *Mapper) StudentFromProfile(dto *ProfileDTO, syncedAt time.Time) *student.Student {
	return &student.Student{
		IntraID:      dto.ID,
		Login:        student.Login(dto.Login),
		DisplayName:  dto.BestDisplayName(),
		Email:        dto.Email,
		ImageURL:     m.imageLink(dto.Image),
		Campus:       dto.PrimaryCampus(),
		ReadyToHelp:  student.OptInUnknown,
		LastSyncedAt: syncedAt.UTC(),
	}
}

// RecordFromProjectUser maps one projects_users entry to a raw project record.
// The record is raw: piscine filtering and name normalization happen in the
// domain normalizer, not here.
func (m *Mapper) RecordFromProjectUser(dto ProjectUserDTO, syncedAt time.Time) project.Record {
	synced := syncedAt.UTC()

	return project.Record{
		ID:         project.RecordID(dto.ID),
		ProjectID:  project.ID(dto.Project.ID),
		Name:       dto.Project.Name,
		Slug:       dto.Project.Slug,
		Status:     project.Status(dto.Status),
		FinalMark:  dto.FinalMark,
		Validated:  dto.Validated,
		SyncedAt:   &synced,
		MarkedAt:   timeutil.ParseInstantPtr(dto.MarkedAt),
		FinishedAt: m.finishedAt(dto),
	}
}

// RecordsFromProjectUsers maps a full projects_users page set.
func (m *Mapper) RecordsFromProjectUsers(dtos []ProjectUserDTO, syncedAt time.Time) []project.Record {
	records := make([]project.Record, 0, len(dtos))
	for _, dto := range dtos {
		records = append(records, m.RecordFromProjectUser(dto, syncedAt))
	}
	return records
}

// finishedAt derives the completion instant from the latest closed team.
// A project without closed teams has no completion instant of its own;
// the domain resolver then falls back to marked_at.
func (m *Mapper) finishedAt(dto ProjectUserDTO) *time.Time {
	var latest *time.Time
	for _, team := range dto.Teams {
		closed := timeutil.ParseInstantPtr(team.ClosedAt)
		if closed == nil {
			continue
		}
		if latest == nil || closed.After(*latest) {
			latest = closed
		}
	}
	return latest
}

// EnrollmentFromCursusUser maps one cursus_users entry to a domain
// enrollment. A missing grade becomes an empty string.
func (m *Mapper) EnrollmentFromCursusUser(dto CursusUserDTO, syncedAt time.Time) student.CursusEnrollment {
	synced := syncedAt.UTC()

	e := student.CursusEnrollment{
		ID:       dto.ID,
		CursusID: dto.Cursus.ID,
		Name:     dto.Cursus.Name,
		Slug:     dto.Cursus.Slug,
		Level:    dto.Level,
		BeganAt:  timeutil.ParseInstantPtr(dto.BeginAt),
		EndedAt:  timeutil.ParseInstantPtr(dto.EndAt),
		SyncedAt: &synced,
	}
	if dto.Grade != nil {
		e.Grade = *dto.Grade
	}

	return e
}

// EnrollmentsFromCursusUsers maps a full cursus_users page set.
func (m *Mapper) EnrollmentsFromCursusUsers(dtos []CursusUserDTO, syncedAt time.Time) []student.CursusEnrollment {
	enrollments := make([]student.CursusEnrollment, 0, len(dtos))
	for _, dto := range dtos {
		enrollments = append(enrollments, m.EnrollmentFromCursusUser(dto, syncedAt))
	}
	return enrollments
}

func (m *Mapper) imageLink(img *ImageDTO) string {
	if img == nil {
		return ""
	}
	return img.Link
}
