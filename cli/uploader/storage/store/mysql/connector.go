package mysql

/*
Настройки хранилища в конфиге:

host = "localhost"
port = "3306"
user = "root"
password = ""
database = "tracker"
*/

import (
	"database/sql"
	"embed"
	"fmt"
	"net"

	"github.com/daniil11ru/tracker/cli/uploader/connector"
	"github.com/daniil11ru/tracker/cli/uploader/storage/store/sqldb"
	"github.com/go-sql-driver/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Connector struct {
	sqldb.Queue
}

func (c *Connector) Init(cfg map[string]string) error {
	var (
		err error
	)
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}

	dsn := mysql.NewConfig()
	dsn.User = connector.GetOptionValue("user", "root", cfg)
	dsn.Passwd = cfg["password"]
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(connector.GetOptionValue("host", "localhost", cfg), connector.GetOptionValue("port", "3306", cfg))
	dsn.DBName = connector.GetOptionValue("database", "tracker", cfg)
	dsn.MultiStatements = true

	if err = sqldb.ApplyMigrations(migrations, "mysql://"+dsn.FormatDSN()); err != nil {
		return err
	}

	if c.DB, err = sql.Open("mysql", dsn.FormatDSN()); err != nil {
		return fmt.Errorf("ошибка подключения к MySQL: %v", err)
	}
	c.Dialect = sqldb.Dialect{Placeholder: sqldb.Question}

	if err = c.DB.Ping(); err != nil {
		return fmt.Errorf("MySQL недоступен: %v", err)
	}
	return err
}
