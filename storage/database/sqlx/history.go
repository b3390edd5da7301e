package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core/history"
)

type dbHistoryItem struct {
	ID         int             `db:"id"`
	CourseID   int             `db:"course_id"`
	CourseCode string          `db:"course_code"`
	CourseName string          `db:"course_name"`
	Year       int             `db:"year"`
	Term       int             `db:"term"`
	Grade      sql.NullFloat64 `db:"grade"`
	Status     string          `db:"status"`
	Professor  sql.NullString  `db:"professor"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

func (h dbHistoryItem) toItem() history.Item {
	it := history.Item{
		ID:         h.ID,
		CourseID:   h.CourseID,
		CourseCode: h.CourseCode,
		CourseName: h.CourseName,
		Year:       h.Year,
		Term:       h.Term,
		Status:     history.NormalizeStatus(h.Status),
		CreatedAt:  h.CreatedAt,
		UpdatedAt:  h.UpdatedAt,
	}
	if h.Grade.Valid {
		it.Grade = &h.Grade.Float64
	}
	if h.Professor.Valid {
		it.Professor = &h.Professor.String
	}
	return it
}

type historyRepository struct {
	db *sqlx.DB
}

var _ history.Repository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *sqlx.DB) *historyRepository {
	return &historyRepository{db: db}
}

func (repo historyRepository) selectItems() sq.SelectBuilder {
	return psql.Select(
		"h.id", "h.course_id", "c.code AS course_code", "c.name AS course_name",
		"h.year", "h.term", "h.grade", "h.status", "h.professor", "h.created_at", "h.updated_at").
		From("history h").
		Join("course c ON c.id = h.course_id")
}

func (repo historyRepository) QueryItems(ctx context.Context, userID string) ([]history.Item, error) {
	stmt, args, err := repo.selectItems().
		Where(sq.Eq{"h.user_id": userID}).
		OrderBy("h.year ASC", "h.term ASC", "h.id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building history query")
	}

	var rows []dbHistoryItem
	if err = repo.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "querying history")
	}

	items := make([]history.Item, 0, len(rows))
	for _, h := range rows {
		items = append(items, h.toItem())
	}
	return items, nil
}

func (repo historyRepository) GetItem(ctx context.Context, userID string, id int) (history.Item, error) {
	stmt, args, err := repo.selectItems().
		Where(sq.Eq{"h.user_id": userID, "h.id": id}).
		ToSql()
	if err != nil {
		return history.Item{}, errors.Wrap(err, "building history query")
	}

	var h dbHistoryItem
	if err = repo.db.GetContext(ctx, &h, stmt, args...); err != nil {
		if err == sql.ErrNoRows {
			return history.Item{}, history.ErrNotFound
		}
		return history.Item{}, errors.Wrap(err, "finding history entry")
	}
	return h.toItem(), nil
}

func (repo historyRepository) CreateItem(ctx context.Context, userID string, it history.Item) (history.Item, error) {
	stmt, args, err := psql.Insert("history").
		Columns("user_id", "course_id", "year", "term", "grade", "status", "professor", "created_at", "updated_at").
		Values(userID, it.CourseID, it.Year, it.Term, it.Grade, string(it.Status), it.Professor,
			it.CreatedAt.UTC(), it.UpdatedAt.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return history.Item{}, errors.Wrap(err, "building history insert")
	}
	if err = repo.db.GetContext(ctx, &it.ID, stmt, args...); err != nil {
		return history.Item{}, errors.Wrap(err, "inserting history entry")
	}
	return it, nil
}

func (repo historyRepository) UpdateItem(ctx context.Context, userID string, it history.Item) (history.Item, error) {
	stmt, args, err := psql.Update("history").
		Set("course_id", it.CourseID).
		Set("year", it.Year).
		Set("term", it.Term).
		Set("grade", it.Grade).
		Set("status", string(it.Status)).
		Set("professor", it.Professor).
		Set("updated_at", it.UpdatedAt.UTC()).
		Where(sq.Eq{"user_id": userID, "id": it.ID}).
		ToSql()
	if err != nil {
		return history.Item{}, errors.Wrap(err, "building history update")
	}

	res, err := repo.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return history.Item{}, errors.Wrap(err, "updating history entry")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return history.Item{}, history.ErrNotFound
	}
	return repo.GetItem(ctx, userID, it.ID)
}

func (repo historyRepository) DeleteItem(ctx context.Context, userID string, id int) error {
	stmt, args, err := psql.Delete("history").
		Where(sq.Eq{"user_id": userID, "id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building history delete")
	}

	res, err := repo.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrap(err, "deleting history entry")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return history.ErrNotFound
	}
	return nil
}

func (repo historyRepository) UpsertItemByCourse(ctx context.Context, userID string, it history.Item) (history.Item, bool, error) {
	stmt, args, err := psql.Insert("history").
		Columns("user_id", "course_id", "year", "term", "grade", "status", "professor", "created_at", "updated_at").
		Values(userID, it.CourseID, it.Year, it.Term, it.Grade, string(it.Status), it.Professor,
			it.CreatedAt.UTC(), it.UpdatedAt.UTC()).
		Suffix(`ON CONFLICT (user_id, course_id) DO UPDATE SET
			year = EXCLUDED.year,
			term = EXCLUDED.term,
			grade = EXCLUDED.grade,
			status = EXCLUDED.status,
			professor = EXCLUDED.professor,
			updated_at = EXCLUDED.updated_at
			RETURNING id, (xmax = 0) AS inserted`).
		ToSql()
	if err != nil {
		return history.Item{}, false, errors.Wrap(err, "building history upsert")
	}

	var created bool
	row := repo.db.QueryRowxContext(ctx, stmt, args...)
	if err = row.Scan(&it.ID, &created); err != nil {
		return history.Item{}, false, errors.Wrap(err, "upserting history entry")
	}
	return it, created, nil
}
