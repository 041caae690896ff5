package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/mentorship/core"
	"github.com/trezcool/mentorship/core/student"
	"github.com/trezcool/mentorship/core/survey"
	"github.com/trezcool/mentorship/core/user"
	"github.com/trezcool/mentorship/storage/database"
	inmemdb "github.com/trezcool/mentorship/storage/database/inmem"
	sqlxrepos "github.com/trezcool/mentorship/storage/database/sqlx"
)

var ErrUnknownEngine = errors.New("unknown store engine")

// Store holds the repositories of the configured engine.
type Store struct {
	Engine   string
	Users    user.Repository
	Students student.Repository
	Surveys  survey.Repository

	SQL *sql.DB     // postgres engine only
	Mem *inmemdb.DB // memory engine only
}

// Open sets up the store engine of conf.Store.
// The postgres database is created and migrated if needed; the memory store is seeded if conf.Store.Seed.
func Open(ctx context.Context, conf *core.Config) (*Store, error) {
	switch conf.Store.Engine {
	case core.StoreMemory, "":
		return openMemory(ctx, conf)
	case core.StorePostgres:
		return openPostgres(conf)
	default:
		return nil, errors.Wrap(ErrUnknownEngine, conf.Store.Engine)
	}
}

func openMemory(ctx context.Context, conf *core.Config) (*Store, error) {
	var (
		db  *inmemdb.DB
		err error
	)
	if conf.Store.DataFile != "" {
		db, err = inmemdb.OpenFile(conf.Store.DataFile)
	} else {
		db, err = inmemdb.Open()
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening memory store")
	}

	if conf.Store.Seed {
		if err = inmemdb.Seed(ctx, db); err != nil {
			return nil, errors.Wrap(err, "seeding memory store")
		}
	}

	return &Store{
		Engine:   core.StoreMemory,
		Users:    inmemdb.NewUserRepository(db),
		Students: inmemdb.NewStudentRepository(db),
		Surveys:  inmemdb.NewSurveyRepository(db),
		Mem:      db,
	}, nil
}

func openPostgres(conf *core.Config) (*Store, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	xdb := sqlxrepos.NewDB(db)
	return &Store{
		Engine:   core.StorePostgres,
		Users:    sqlxrepos.NewUserRepository(xdb),
		Students: sqlxrepos.NewStudentRepository(xdb),
		Surveys:  sqlxrepos.NewSurveyRepository(xdb),
		SQL:      db,
	}, nil
}

// Close saves the memory snapshot or closes the database connection.
func (s *Store) Close() error {
	if s.Mem != nil {
		return errors.Wrap(s.Mem.Save(), "saving memory store")
	}
	if s.SQL != nil {
		return errors.Wrap(s.SQL.Close(), "closing database")
	}
	return nil
}
