package inmemdb

import (
	"context"
	"sort"

	"github.com/ricardious/semestrix/core/history"
)

type historyRepository struct {
	db *historyTable
}

var _ history.Repository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db.history}
}

func (repo *historyRepository) QueryItems(ctx context.Context, userID string) ([]history.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]history.Item, 0, len(repo.db.table[userID]))
	for _, it := range repo.db.table[userID] {
		items = append(items, *it)
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Term != b.Term {
			return a.Term < b.Term
		}
		return a.ID < b.ID
	})
	return items, nil
}

func (repo *historyRepository) GetItem(ctx context.Context, userID string, id int) (history.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if it, ok := repo.db.table[userID][id]; ok {
		return *it, nil
	}
	return history.Item{}, history.ErrNotFound
}

func (repo *historyRepository) CreateItem(ctx context.Context, userID string, it history.Item) (history.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.create(userID, it), nil
}

func (repo *historyRepository) create(userID string, it history.Item) history.Item {
	repo.db.pk++
	it.ID = repo.db.pk
	if repo.db.table[userID] == nil {
		repo.db.table[userID] = make(map[int]*history.Item)
	}
	repo.db.table[userID][it.ID] = &it
	return it
}

func (repo *historyRepository) UpdateItem(ctx context.Context, userID string, it history.Item) (history.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[userID][it.ID]; !ok {
		return history.Item{}, history.ErrNotFound
	}
	repo.db.table[userID][it.ID] = &it
	return it, nil
}

func (repo *historyRepository) DeleteItem(ctx context.Context, userID string, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[userID][id]; !ok {
		return history.ErrNotFound
	}
	delete(repo.db.table[userID], id)
	return nil
}

func (repo *historyRepository) UpsertItemByCourse(ctx context.Context, userID string, it history.Item) (history.Item, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, existing := range repo.db.table[userID] {
		if existing.CourseID == it.CourseID {
			it.ID = id
			it.CreatedAt = existing.CreatedAt
			repo.db.table[userID][id] = &it
			return it, false, nil
		}
	}
	return repo.create(userID, it), true, nil
}
