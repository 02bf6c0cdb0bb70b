package legacy

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// prmsSchema emulates the PRMS files used here. INPUL500 is a logical view
// over the INPUP500 physical file, as on the AS/400.
const prmsSchema = `
CREATE TABLE INPUP500 (
	P3PURCH TEXT PRIMARY KEY,
	P3STAT  TEXT NOT NULL,
	P3XDTE  INTEGER NOT NULL DEFAULT 0,
	P3XTIM  INTEGER NOT NULL DEFAULT 0,
	P3DAMNT DECIMAL(18,2),
	P3IAMNT DECIMAL(18,2)
);
CREATE VIEW INPUL500 AS SELECT P3PURCH, P3STAT, P3XDTE, P3XTIM, P3DAMNT, P3IAMNT FROM INPUP500;
CREATE TABLE INPOL112 (PURCH TEXT PRIMARY KEY, VNDNO TEXT, HOUSE TEXT, BUYER TEXT, PODMN INTEGER, PODDY INTEGER, PODYR INTEGER);
CREATE TABLE MSVMP100 (VNDNO TEXT PRIMARY KEY, VNAME TEXT, VADD1 TEXT, VADD2 TEXT, VADD3 TEXT, VSTAT TEXT, VZIPC TEXT);
CREATE TABLE POBMP100 (BMBUY TEXT PRIMARY KEY, BMNAM TEXT);
CREATE TABLE INPOL300 (
	PURCH TEXT, "LINE#" INTEGER, HOUSE TEXT, PRDNO TEXT, SDESC TEXT,
	QUANO DECIMAL(18,4), ORDUM TEXT, ECOST DECIMAL(18,4),
	RQ3MN INTEGER, RQ3DY INTEGER, RQ3YR INTEGER, POIGL TEXT
);
CREATE TABLE MSPMP100 (PRDNO TEXT PRIMARY KEY, DESCP TEXT);
CREATE TABLE INPVP500 (P5PURCH TEXT, P5TYPE TEXT, P5BRK DECIMAL(19,4), P5APRV TEXT, P5ADTE INTEGER, P5ATIM INTEGER, P5STAT TEXT);
CREATE TABLE INPTP500 (P6PURCH TEXT, P6CDTE INTEGER, P6CTIM INTEGER);
`

func openPRMS(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "prms.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(prmsSchema)
	require.NoError(t, err)
	return db
}

// seedPO inserts a waiting PO with header, vendor, buyer and the given lines.
func seedPO(t *testing.T, db *sql.DB, po string, direct, indirect any, lines int) {
	t.Helper()

	mustExec(t, db, `INSERT INTO INPUP500 (P3PURCH, P3STAT, P3DAMNT, P3IAMNT) VALUES (?, 'W', ?, ?)`, po, direct, indirect)
	mustExec(t, db, `INSERT OR IGNORE INTO MSVMP100 VALUES ('V100', 'Acme Supply  ', '1 Main St', NULL, NULL, 'CA', '90210')`)
	mustExec(t, db, `INSERT OR IGNORE INTO POBMP100 VALUES ('B7', 'Pat Buyer')`)
	mustExec(t, db, `INSERT OR IGNORE INTO MSPMP100 VALUES ('P-1', 'Widget, large')`)
	mustExec(t, db, `INSERT INTO INPOL112 VALUES (?, 'V100', 'H1', 'B7', 3, 15, 26)`, po)
	for i := 1; i <= lines; i++ {
		mustExec(t, db, `INSERT INTO INPOL300 VALUES (?, ?, 'H1', 'P-1', 'widget', 2, 'EA', 12.5, 4, 1, 26, '6100-200')`, po, i)
	}
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err)
}
