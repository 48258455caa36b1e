package postgresql

/*
Настройки, которые могут (а не которые – должны) быть в конфиге для подключения хранилища:

host = "localhost"
port = "5432"
user = "postgres"
password = "postgres"
database = "tracker"
sslmode = "disable"
*/

import (
	"database/sql"
	"embed"
	"fmt"
	"net"
	"net/url"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/sqldb"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Connector struct {
	sqldb.Queue
	config map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	var (
		err error
	)
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg

	host := connector.GetOptionValue("host", "localhost", cfg)
	port := connector.GetOptionValue("port", "5432", cfg)
	user := connector.GetOptionValue("user", "postgres", cfg)
	database := connector.GetOptionValue("database", "tracker", cfg)
	sslmode := connector.GetOptionValue("sslmode", "disable", cfg)

	dbUrl := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, cfg["password"]),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + database,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}

	if err = sqldb.ApplyMigrations(migrations, dbUrl.String()); err != nil {
		return err
	}

	if c.DB, err = sql.Open("postgres", dbUrl.String()); err != nil {
		return fmt.Errorf("ошибка подключения к PostgreSQL: %v", err)
	}
	c.Dialect = sqldb.Dialect{Placeholder: sqldb.Dollar, Returning: true}

	if err = c.DB.Ping(); err != nil {
		return fmt.Errorf("PostgreSQL недоступен: %v", err)
	}
	return err
}
