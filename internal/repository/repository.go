// Package repository contains the SQL data access layer. Every write method
// accepts an optional *sql.Tx so services can group writes into one
// transaction; a nil tx falls back to the pooled connection.
package repository

import "database/sql"

// dbtx is the subset of sql.DB/sql.Tx the repositories use.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// runner picks the transaction when one is supplied.
func runner(tx *sql.Tx, db *sql.DB) dbtx {
	if tx != nil {
		return tx
	}
	return db
}
