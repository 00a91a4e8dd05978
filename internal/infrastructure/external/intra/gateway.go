package intra

import (
	"context"
	"fmt"

	"github.com/Grihladin/42Connect/internal/domain/project"
	"github.com/Grihladin/42Connect/internal/domain/student"
	"github.com/Grihladin/42Connect/pkg/timeutil"
)

// Gateway adapts the raw API client and mapper to the domain-facing port
// the application commands depend on. Commands see domain types only.
type Gateway struct {
	client *Client
	mapper *Mapper
}

// NewGateway creates a Gateway over an API client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{
		client: client,
		mapper: NewMapper(),
	}
}

// FetchStudent loads a student's profile by login and maps it to the domain
// model. The returned student carries no preferences: those live locally
// and are merged by the caller.
func (g *Gateway) FetchStudent(ctx context.Context, login string) (*student.Student, error) {
	profile, err := g.client.GetUser(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("intra gateway: fetch profile for %s: %w", login, err)
	}

	return g.mapper.StudentFromProfile(profile, timeutil.UTCNow()), nil
}

// FetchProjects loads all project records for an Intra user id.
func (g *Gateway) FetchProjects(ctx context.Context, intraID int64) ([]project.Record, error) {
	dtos, err := g.client.GetUserProjects(ctx, intraID)
	if err != nil {
		return nil, fmt.Errorf("intra gateway: fetch projects for %d: %w", intraID, err)
	}

	return g.mapper.RecordsFromProjectUsers(dtos, timeutil.UTCNow()), nil
}

// FetchCursus loads all cursus enrollments for an Intra user id.
func (g *Gateway) FetchCursus(ctx context.Context, intraID int64) ([]student.CursusEnrollment, error) {
	dtos, err := g.client.GetUserCursus(ctx, intraID)
	if err != nil {
		return nil, fmt.Errorf("intra gateway: fetch cursus for %d: %w", intraID, err)
	}

	return g.mapper.EnrollmentsFromCursusUsers(dtos, timeutil.UTCNow()), nil
}
