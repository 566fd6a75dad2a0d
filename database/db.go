package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/Volodya262/jb-products-info/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = createProductTables(db)
	if err != nil {
		return nil, err
	}
	err = createBuildTables(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func createProductTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS product (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS product_alternative_code (
			alternative_code TEXT NOT NULL,
			primary_code TEXT NOT NULL REFERENCES product(code),
			PRIMARY KEY (alternative_code, primary_code)
		);

		CREATE TABLE IF NOT EXISTS product_update_history (
			product_code TEXT NOT NULL,
			check_date TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_product_update_history_code
			ON product_update_history (product_code);
	`)
	return err
}

func createBuildTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS build (
			product_code TEXT NOT NULL,
			build_full_number TEXT NOT NULL,
			release_date DATE,
			PRIMARY KEY (product_code, build_full_number)
		);

		CREATE TABLE IF NOT EXISTS build_process_events (
			product_code TEXT NOT NULL,
			build_full_number TEXT NOT NULL,
			event_number INT NOT NULL,
			data JSONB NOT NULL,
			PRIMARY KEY (product_code, build_full_number, event_number)
		);
	`)
	return err
}
