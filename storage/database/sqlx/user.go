package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/ricardious/semestrix/core"
	"github.com/ricardious/semestrix/core/user"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type dbUser struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

func (u dbUser) toUser() user.User {
	isActive := u.IsActive
	return user.User{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.Username,
		Email:        u.Email,
		IsActive:     &isActive,
		Roles:        u.Roles,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

var userColumns = []string{"id", "name", "username", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login"}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := psql.Select("username", "email").
		From(`"user"`).
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}})
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var matches []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err = repo.db.SelectContext(ctx, &matches, stmt, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, m := range matches {
		if m.Username == username {
			return user.ErrUsernameExists
		}
		if m.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	isActive := true
	if usr.IsActive != nil {
		isActive = *usr.IsActive
	}

	stmt, args, err := psql.Insert(`"user"`).
		Columns(userColumns...).
		Values(usr.ID, usr.Name, usr.Username, usr.Email, isActive, pq.StringArray(usr.Roles),
			usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin.UTC()).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user insert")
	}
	if _, err = repo.db.ExecContext(ctx, stmt, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.IsActive = &isActive
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := psql.Select(userColumns...).From(`"user"`)

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != nil:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		q = q.Where(sq.Or{sq.Eq{"username": uname}, sq.Eq{"email": email}})
	default:
		return user.User{}, user.ErrNotFound
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user query")
	}

	var u dbUser
	if err = repo.db.GetContext(ctx, &u, stmt, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return u.toUser(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := psql.Select(userColumns...).From(`"user"`)

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"name": val},
				sq.ILike{"username": val},
				sq.ILike{"email": val},
			})
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleOr := make(sq.Or, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleOr = append(roleOr, sq.Expr(
					`id IN (SELECT id FROM "user", UNNEST(roles) user_role WHERE user_role ILIKE ?)`, role+"%"))
			}
			q = q.Where(roleOr)
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	for _, ord := range ordering {
		q = q.OrderBy(ord.String())
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}

	var dbUsers []dbUser
	if err = repo.db.SelectContext(ctx, &dbUsers, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(dbUsers))
	for _, u := range dbUsers {
		users = append(users, u.toUser())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := psql.Update(`"user"`).
		Set("name", usr.Name).
		Set("username", usr.Username).
		Set("email", usr.Email).
		Set("roles", pq.StringArray(usr.Roles)).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", usr.UpdatedAt.UTC()).
		Set("last_login", usr.LastLogin.UTC()).
		Where(sq.Eq{"id": usr.ID})
	if usr.IsActive != nil {
		q = q.Set("is_active", *usr.IsActive)
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user update")
	}
	if _, err = repo.db.ExecContext(ctx, stmt, args...); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string) (int, error) {
	stmt, args, err := psql.Delete(`"user"`).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building user delete")
	}
	res, err := repo.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
