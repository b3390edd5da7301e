package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ricardious/semestrix/core/student"
)

type profileRepository struct {
	db *profileTable
}

var _ student.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db.profile}
}

func (repo *profileRepository) GetProfileByUser(ctx context.Context, userID string) (student.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[userID]; ok {
		return *p, nil
	}
	return student.Profile{}, student.ErrNotFound
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	repo.db.table[p.UserID] = &p
	return p, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p student.Profile) (student.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.UserID]
	if !ok {
		return student.Profile{}, student.ErrNotFound
	}
	p.CreatedAt = orig.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	repo.db.table[p.UserID] = &p
	return p, nil
}
