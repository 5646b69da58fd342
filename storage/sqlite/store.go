package sqlite

import (
	"context"
	"database/sql"

	"github.com/4406arthur/copilot/domain"
	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

//Store persists client state in a single sqlite key/value table
type Store struct {
	Db *sql.DB
}

//NewStore opens (or creates) the database file at path
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite store %s", path)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "ping sqlite store %s", path)
	}

	s := &Store{Db: db}
	if err := s.Init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

//Init creates the state table if needed
func (s *Store) Init() error {
	createTable := `create table if not exists client_state(
		key text primary key,
		value text not null,
		updated_at DATETIME not null default CURRENT_TIMESTAMP
	);`
	_, err := s.Db.Exec(createTable)
	return errors.Wrap(err, "create client_state table")
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.Db.QueryRowContext(ctx, `select value from client_state where key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", key)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	statement := `insert into client_state (key, value, updated_at) values (?, ?, CURRENT_TIMESTAMP)
		on conflict(key) do update set value = excluded.value, updated_at = excluded.updated_at;`
	_, err := s.Db.ExecContext(ctx, statement, key, value)
	return errors.Wrapf(err, "write %s", key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.Db.ExecContext(ctx, `delete from client_state where key = ?`, key)
	return errors.Wrapf(err, "delete %s", key)
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.Db.ExecContext(ctx, `delete from client_state`)
	return errors.Wrap(err, "clear client state")
}

func (s *Store) Close() error {
	return s.Db.Close()
}
