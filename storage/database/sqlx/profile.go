package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core/student"
)

type dbProfile struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	StudentID       sql.NullString `db:"student_id"`
	ProgramID       sql.NullInt64  `db:"program_id"`
	VersionID       sql.NullInt64  `db:"version_id"`
	CurrentSemester sql.NullInt64  `db:"current_semester"`
	OnboardingStep  int            `db:"onboarding_step"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (p dbProfile) toProfile() student.Profile {
	prof := student.Profile{
		ID:             p.ID,
		UserID:         p.UserID,
		OnboardingStep: p.OnboardingStep,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.StudentID.Valid {
		prof.StudentID = &p.StudentID.String
	}
	if p.ProgramID.Valid {
		v := int(p.ProgramID.Int64)
		prof.ProgramID = &v
	}
	if p.VersionID.Valid {
		v := int(p.VersionID.Int64)
		prof.VersionID = &v
	}
	if p.CurrentSemester.Valid {
		v := int(p.CurrentSemester.Int64)
		prof.CurrentSemester = &v
	}
	return prof
}

var profileColumns = []string{"id", "user_id", "student_id", "program_id", "version_id", "current_semester", "onboarding_step", "created_at", "updated_at"}

type profileRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) GetProfileByUser(ctx context.Context, userID string) (student.Profile, error) {
	stmt, args, err := psql.Select(profileColumns...).
		From("academic_profile").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return student.Profile{}, errors.Wrap(err, "building profile query")
	}

	var p dbProfile
	if err = repo.db.GetContext(ctx, &p, stmt, args...); err != nil {
		if err == sql.ErrNoRows {
			return student.Profile{}, student.ErrNotFound
		}
		return student.Profile{}, errors.Wrap(err, "finding profile")
	}
	return p.toProfile(), nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	p.ID = uuid.New().String()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	stmt, args, err := psql.Insert("academic_profile").
		Columns(profileColumns...).
		Values(p.ID, p.UserID, p.StudentID, p.ProgramID, p.VersionID, p.CurrentSemester,
			p.OnboardingStep, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return student.Profile{}, errors.Wrap(err, "building profile insert")
	}
	if _, err = repo.db.ExecContext(ctx, stmt, args...); err != nil {
		return student.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	p.UpdatedAt = time.Now().UTC()

	stmt, args, err := psql.Update("academic_profile").
		Set("student_id", p.StudentID).
		Set("program_id", p.ProgramID).
		Set("version_id", p.VersionID).
		Set("current_semester", p.CurrentSemester).
		Set("onboarding_step", p.OnboardingStep).
		Set("updated_at", p.UpdatedAt).
		Where(sq.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return student.Profile{}, errors.Wrap(err, "building profile update")
	}

	res, err := repo.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return student.Profile{}, errors.Wrap(err, "updating profile")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return student.Profile{}, student.ErrNotFound
	}
	return p, nil
}
