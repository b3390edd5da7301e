package student

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/history"
	"github.com/ricardious/semestrix/core/program"
	"github.com/ricardious/semestrix/core/progress"
)

var (
	ErrNotFound = errors.New("profile not found")
)

type Repository interface {
	GetProfileByUser(ctx context.Context, userID string) (Profile, error)
	CreateProfile(ctx context.Context, p Profile) (Profile, error)
	UpdateProfile(ctx context.Context, p Profile) (Profile, error)
}

type Service interface {
	Status(ctx context.Context, userID string) (Status, error)
	GetMine(ctx context.Context, userID string) (Profile, error)
	SetIdentity(ctx context.Context, userID string, id Identity) (Profile, error)
	MarkHistoryDone(ctx context.Context, userID string) (Profile, error)
	CompleteOnboarding(ctx context.Context, userID string) (Profile, error)
	Progress(ctx context.Context, userID string) (progress.Report, error)
}

type service struct {
	repo     Repository
	progRepo program.Repository
	histRepo history.Repository
}

var _ Service = (*service)(nil)

func NewService(repo Repository, progRepo program.Repository, histRepo history.Repository) *service {
	if repo == nil || progRepo == nil || histRepo == nil {
		panic("all repos are required")
	}
	return &service{
		repo:     repo,
		progRepo: progRepo,
		histRepo: histRepo,
	}
}

func (s *service) Status(ctx context.Context, userID string) (Status, error) {
	p, err := s.repo.GetProfileByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Status{HasProfile: false, OnboardingStep: 0}, nil
		}
		return Status{}, err
	}

	st := Status{
		HasProfile:     true,
		OnboardingStep: p.OnboardingStep,
		ProfileID:      &p.ID,
		StudentID:      p.StudentID,
	}
	if p.ProgramID != nil {
		if prog, err := s.progRepo.GetProgramByID(ctx, *p.ProgramID); err == nil {
			st.CareerCode = &prog.Code
		}
	}
	return st, nil
}

func (s *service) GetMine(ctx context.Context, userID string) (Profile, error) {
	return s.repo.GetProfileByUser(ctx, userID)
}

// SetIdentity creates the profile on first call and updates it afterwards.
// The program may come as an id or a code; codes resolve through the active
// curriculum version.
func (s *service) SetIdentity(ctx context.Context, userID string, id Identity) (Profile, error) {
	var (
		programID int
		versionID int
	)
	if id.ProgramID != nil {
		av, err := s.progRepo.GetActiveVersionByProgramID(ctx, *id.ProgramID)
		if err != nil {
			return Profile{}, s.wrapProgramErr(err, "program_id")
		}
		programID = av.Program.ID
		versionID = av.ID
	} else {
		av, err := s.progRepo.GetActiveVersion(ctx, id.CareerCode)
		if err != nil {
			return Profile{}, s.wrapProgramErr(err, "career_code")
		}
		programID = av.Program.ID
		versionID = av.ID
	}

	p, err := s.repo.GetProfileByUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return Profile{}, err
		}
		p = Profile{UserID: userID}
	}

	p.StudentID = &id.StudentID
	p.ProgramID = &programID
	p.VersionID = &versionID
	p.CurrentSemester = id.CurrentSemester
	if p.OnboardingStep < StepIdentity {
		p.OnboardingStep = StepIdentity
	}

	if p.ID == "" {
		return s.repo.CreateProfile(ctx, p)
	}
	return s.repo.UpdateProfile(ctx, p)
}

func (s *service) MarkHistoryDone(ctx context.Context, userID string) (Profile, error) {
	return s.advance(ctx, userID, StepIdentity, StepHistory)
}

func (s *service) CompleteOnboarding(ctx context.Context, userID string) (Profile, error) {
	return s.advance(ctx, userID, StepHistory, StepDone)
}

// advance moves the onboarding step forward. Steps never move backwards, and
// skipping ahead of the expected step is rejected.
func (s *service) advance(ctx context.Context, userID string, from, to int) (Profile, error) {
	p, err := s.repo.GetProfileByUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if p.OnboardingStep >= to {
		return p, nil // already there, idempotent
	}
	if p.OnboardingStep < from {
		err := errors.New("previous onboarding step is not complete")
		return Profile{}, core.NewValidationError(err, core.FieldError{Field: "onboarding_step", Error: err.Error()})
	}
	p.OnboardingStep = to
	return s.repo.UpdateProfile(ctx, p)
}

// Progress joins the profile's curriculum structure with the user's course
// history and evaluates per-course eligibility.
func (s *service) Progress(ctx context.Context, userID string) (progress.Report, error) {
	p, err := s.repo.GetProfileByUser(ctx, userID)
	if err != nil {
		return progress.Report{}, err
	}
	if p.VersionID == nil {
		err := errors.New("no curriculum version selected")
		return progress.Report{}, core.NewValidationError(err, core.FieldError{Field: "current_version_id", Error: err.Error()})
	}

	structure, err := s.progRepo.GetStructure(ctx, *p.VersionID)
	if err != nil {
		return progress.Report{}, err
	}

	items, err := s.histRepo.QueryItems(ctx, userID)
	if err != nil {
		return progress.Report{}, err
	}

	return progress.Evaluate(&structure, items), nil
}

func (s *service) wrapProgramErr(err error, field string) error {
	switch errors.Cause(err) {
	case program.ErrNotFound, program.ErrNoActiveVersion:
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return err
}
