package sqlite

/*
Локальное хранилище очереди на SQLite, используется по умолчанию.

Раздел настроек в конфиге:

path = "data/positions.db"
busy_timeout = "5000"
*/

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/sqldb"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Connector struct {
	sqldb.Queue
	path string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	path, err := filepath.Abs(connector.GetOptionValue("path", "data/positions.db", cfg))
	if err != nil {
		return fmt.Errorf("некорректный путь к базе: %v", err)
	}
	c.path = path
	busyTimeout := connector.GetOptionValue("busy_timeout", "5000", cfg)

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("не получилось создать директорию для базы: %v", err)
		}
	}

	if err = sqldb.ApplyMigrations(migrations, "sqlite3://"+path); err != nil {
		return err
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=%s", path, busyTimeout)
	if c.DB, err = sql.Open("sqlite3", dsn); err != nil {
		return fmt.Errorf("ошибка открытия SQLite: %v", err)
	}
	c.DB.SetMaxOpenConns(1)
	c.Dialect = sqldb.Dialect{Placeholder: sqldb.Question}

	if err = c.DB.Ping(); err != nil {
		return fmt.Errorf("SQLite недоступен: %v", err)
	}
	return nil
}

func (c *Connector) Path() string {
	return c.path
}
