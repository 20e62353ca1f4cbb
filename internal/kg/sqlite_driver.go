package kg

import (
	"database/sql"
	"fmt"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLite driver with custom SQL functions.
	SQLiteDriverName = "sqlite3_kgportal"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("kg_fold", sqliteFold, true); err != nil {
				return fmt.Errorf("register kg_fold SQL function: %w", err)
			}
			return nil
		},
	})
}

// sqliteFold lower-cases with Unicode rules; SQLite's lower() only folds ASCII.
func sqliteFold(s string) string {
	return strings.ToLower(s)
}
