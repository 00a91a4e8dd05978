// Package intra implements the 42 Intra API client.
// This package handles all communication with the Intra platform,
// including fetching user profiles, project enrollments, and cursus data.
package intra

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ProfileDTO represents a user profile as returned by /v2/me and /v2/users/:login.
// This is the external representation that gets mapped to our domain model.
type ProfileDTO struct {
	// ID is the numeric user id on the Intra platform
	ID int64 `json:"id"`

	// Login is the user's intra login
	Login string `json:"login"`

	// DisplayName is the user's preferred display name
	DisplayName string `json:"displayname"`

	// UsualFullName is the fallback full name
	UsualFullName string `json:"usual_full_name"`

	// Email is the user's intra email
	Email string `json:"email"`

	// Image holds avatar links
	Image *ImageDTO `json:"image,omitempty"`

	// Campus lists the campuses the user belongs to, primary first
	Campus []CampusDTO `json:"campus,omitempty"`

	// Staff flag
	Staff bool `json:"staff?"`
}

// BestDisplayName returns the display name with fallbacks, login last.
func (p *ProfileDTO) BestDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.UsualFullName != "" {
		return p.UsualFullName
	}
	return p.Login
}

// PrimaryCampus returns the name of the first campus, or empty.
func (p *ProfileDTO) PrimaryCampus() string {
	if len(p.Campus) == 0 {
		return ""
	}
	return p.Campus[0].Name
}

// ImageDTO holds avatar links.
type ImageDTO struct {
	Link string `json:"link"`
}

// CampusDTO represents a campus entry on a profile.
type CampusDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PROJECT DTOs
// ══════════════════════════════════════════════════════════════════════════════

// ProjectUserDTO represents one /v2/projects_users entry: a user's enrollment
// in a single project. Note the "validated?" key - the Intra API really does
// ship question marks in JSON field names.
type ProjectUserDTO struct {
	// ID is the enrollment id (projects_users id)
	ID int64 `json:"id"`

	// Project is the nested project identity
	Project ProjectDTO `json:"project"`

	// Status is the coarse state: finished, in_progress,
	// waiting_for_correction, searching_a_group, creating_group
	Status string `json:"status"`

	// Validated reports whether the project passed. Null until graded.
	Validated *bool `json:"validated?"`

	// FinalMark is the grade. Null until graded.
	FinalMark *int `json:"final_mark"`

	// MarkedAt is the grading instant as an ISO 8601 string
	MarkedAt string `json:"marked_at"`

	// Teams holds the user's teams for this project, oldest first
	Teams []TeamDTO `json:"teams,omitempty"`
}

// ProjectDTO is the nested project identity inside a projects_users entry.
type ProjectDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// TeamDTO represents a team attempt on a project.
type TeamDTO struct {
	ID int64 `json:"id"`

	// ClosedAt is the instant the team was closed (work finished)
	ClosedAt string `json:"closed_at"`

	// FinalMark is the team's grade. Null until graded.
	FinalMark *int `json:"final_mark"`

	// Validated reports whether this attempt passed
	Validated *bool `json:"validated?"`
}

// ══════════════════════════════════════════════════════════════════════════════
// CURSUS DTOs
// ══════════════════════════════════════════════════════════════════════════════

// CursusUserDTO represents one /v2/cursus_users entry.
type CursusUserDTO struct {
	ID      int64     `json:"id"`
	Grade   *string   `json:"grade"`
	Level   float64   `json:"level"`
	BeginAt string    `json:"begin_at"`
	EndAt   string    `json:"end_at"`
	Cursus  CursusDTO `json:"cursus"`
}

// CursusDTO is the nested cursus identity.
type CursusDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR DTOs
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO represents an Intra API error body.
type APIErrorDTO struct {
	StatusCode       int    `json:"-"`
	Message          string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (e *APIErrorDTO) Error() string {
	if e.ErrorDescription != "" {
		return e.Message + ": " + e.ErrorDescription
	}
	return e.Message
}
