package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createPaymentRequestTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payment_requests (
		id TEXT PRIMARY KEY,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		chain TEXT NOT NULL,
		recipient TEXT NOT NULL,
		description TEXT,
		status TEXT NOT NULL,
		tx_hash TEXT,
		last_checked DATETIME,
		created_at DATETIME,
		expires_at DATETIME NOT NULL,
		updated_at DATETIME
	);`)
}

func createTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		request_id TEXT,
		tx_hash TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		chain TEXT NOT NULL,
		from_address TEXT,
		to_address TEXT,
		status TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		created_at DATETIME,
		UNIQUE (chain, tx_hash)
	);`)
}
