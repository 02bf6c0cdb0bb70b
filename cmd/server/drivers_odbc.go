//go:build odbc

package main

// odbc backs legacy.driver=odbc (IBM i Access ODBC driver). It needs cgo and
// unixODBC, so it is only linked with -tags odbc.
import _ "github.com/alexbrainman/odbc"
