// Package datasource provides the veo.DataSource implementations used to drive VEO
// construction:
//
//   - ArrayDataSource: a single row, used for the synthetic rows built for encodings
//   - ListDataSource: rows held in memory
//   - TableDataSource: a UTF-8 tab separated file
//   - QueryDataSource: the rows returned by a PostgreSQL query
//
// Columns are numbered from 1. Asking for a column that does not exist returns "".
package datasource
