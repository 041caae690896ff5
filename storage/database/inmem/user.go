package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user.table))
	for _, u := range repo.db.user.table {
		users = append(users, cloneUser(*u))
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}

	for _, usr := range repo.db.user.table {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.user.mutex.Lock()
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if _, ok := repo.db.user.table[usr.ID]; ok {
		repo.db.user.mutex.Unlock()
		return user.User{}, user.ErrUserExists
	}
	stored := cloneUser(usr)
	repo.db.user.table[usr.ID] = &stored
	repo.db.user.mutex.Unlock()

	return usr, errors.Wrap(repo.db.commit(), "saving users")
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	users := repo.query()
	if filter != nil && !filter.IsEmpty() {
		kept := users[:0]
		for _, usr := range users {
			if matchUser(usr, filter) {
				kept = append(kept, usr)
			}
		}
		users = kept
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareUsers(users[i], users[j], field) })
	})
	return users, nil
}

func matchUser(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" && !contains(usr.Name, filter.Search) && !contains(usr.Username, filter.Search) &&
		!contains(usr.Email, filter.Search) {
		return false
	}
	if filter.Roles != nil {
		found := false
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.IsActive != nil && usr.Active() != *filter.IsActive {
		return false
	}
	if filter.Department != "" && !strings.EqualFold(usr.Department, filter.Department) {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return compareStrings(a.Name, b.Name)
	case "username":
		return compareStrings(a.Username, b.Username)
	case "email":
		return compareStrings(a.Email, b.Email)
	case "is_active":
		return compareBools(a.Active(), b.Active())
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "last_login":
		return compareTimes(a.LastLogin, b.LastLogin)
	}
	return 0
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.user.table[filter.ID]; ok {
			return cloneUser(*usr), nil
		}
		return user.User{}, user.ErrNotFound
	}

	var match func(usr *user.User) bool
	switch {
	case filter.Username != "":
		match = func(usr *user.User) bool { return strings.EqualFold(usr.Username, filter.Username) }
	case filter.Email != "":
		match = func(usr *user.User) bool { return strings.EqualFold(usr.Email, filter.Email) }
	case len(filter.UsernameOrEmail) > 0:
		uname, email := filter.UsernameOrEmail[0], filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) > 1 {
			email = filter.UsernameOrEmail[1]
		}
		match = func(usr *user.User) bool {
			return (uname != "" && strings.EqualFold(usr.Username, uname)) || (email != "" && strings.EqualFold(usr.Email, email))
		}
	case filter.Name != "":
		match = func(usr *user.User) bool {
			return strings.EqualFold(usr.Name, filter.Name) && (filter.Role == "" || usr.RoleStartsWith(filter.Role))
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	for _, usr := range repo.db.user.table {
		if match(usr) {
			return cloneUser(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.user.mutex.Lock()
	if _, ok := repo.db.user.table[usr.ID]; !ok {
		repo.db.user.mutex.Unlock()
		return user.User{}, user.ErrNotFound
	}
	stored := cloneUser(usr)
	repo.db.user.table[usr.ID] = &stored
	repo.db.user.mutex.Unlock()

	return usr, errors.Wrap(repo.db.commit(), "saving users")
}

// UpdateOrCreateUser replaces the user with the same username, keeping its ID and creation date,
// or creates it.
func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	existing, err := repo.GetUser(ctx, user.GetFilter{Username: usr.Username})
	switch errors.Cause(err) {
	case nil:
		usr.ID = existing.ID
		usr.CreatedAt = existing.CreatedAt
		return repo.UpdateUser(ctx, usr)
	case user.ErrNotFound:
		return repo.CreateUser(ctx, usr)
	default:
		return user.User{}, err
	}
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) (int, error) {
	repo.db.user.mutex.Lock()
	var deleted int
	for _, id := range ids {
		if _, ok := repo.db.user.table[id]; ok {
			delete(repo.db.user.table, id)
			deleted++
		}
	}
	repo.db.user.mutex.Unlock()

	if deleted == 0 {
		return 0, nil
	}
	return deleted, errors.Wrap(repo.db.commit(), "saving users")
}

func cloneUser(usr user.User) user.User {
	if usr.IsActive != nil {
		usr.SetActive(*usr.IsActive)
	}
	usr.Roles = append([]string(nil), usr.Roles...)
	usr.PasswordHash = append([]byte(nil), usr.PasswordHash...)
	return usr
}
