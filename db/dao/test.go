package dao

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/civicgrid/vote-engine/db/model"
)

// Database is the unit-test database handle. Tests run against the
// sqlite3 dialect with one shared in-memory database per suite.
type Database struct {
	Name string
	DB   *gorm.DB
}

// RunDB opens an in-memory database for unit tests. The name keeps
// suites isolated from each other when they run in parallel.
func RunDB(dbName string) (*Database, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	// Shared-cache in-memory sqlite lives as long as one connection
	// stays open; a second connection would race table drops.
	conn, err := db.DB()
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)

	return &Database{
		Name: dbName,
		DB:   db,
	}, nil
}

// StopDB closes the database, discarding the in-memory contents.
func (d *Database) StopDB() error {
	conn, err := d.DB.DB()
	if err != nil {
		return err
	}
	return conn.Close()
}

// GetDBName get a db name by using the Suite struct in each test
func GetDBName(s interface{}) string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return strings.ReplaceAll(t.Name(), "/", "_")
}

// ClearDB drops the tables so the next test starts clean.
func (d *Database) ClearDB() error {
	for _, m := range []interface{}{&model.Poll{}, &model.PollOption{}, &model.Vote{}} {
		if d.DB.Migrator().HasTable(m) {
			if err := d.DB.Migrator().DropTable(m); err != nil {
				return err
			}
		}
	}
	return nil
}
