package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type IndexInfo struct {
	Name string `json:"name"`
	Def  string `json:"def"`
}

type TableInfo struct {
	Name       string      `json:"name"`
	Size       int64       `json:"size"`
	Indexes    []IndexInfo `json:"indexes"`
	LastUpdate *time.Time  `json:"last_update"`
}

type DatabaseInfo struct {
	Name        string      `json:"dbname"`
	Size        int64       `json:"dbsize"`
	TablesCount int64       `json:"tables_count"`
	UsersCount  int64       `json:"users_count"`
	Tables      []TableInfo `json:"tables"`
}

// DatabaseInfo describes the current database and its public tables. A
// table's LastUpdate is its most recent vacuum or analyze, if any.
func (c *Collector) DatabaseInfo(ctx context.Context) (DatabaseInfo, error) {
	var info DatabaseInfo
	if err := c.db.QueryRowContext(ctx, currentDatabaseSQL).Scan(&info.Name, &info.Size); err != nil {
		return info, fmt.Errorf("failed to read current database: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, tablesCountSQL).Scan(&info.TablesCount); err != nil {
		return info, fmt.Errorf("failed to count tables: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, usersCountSQL).Scan(&info.UsersCount); err != nil {
		return info, fmt.Errorf("failed to count users: %w", err)
	}

	names, err := c.tableNames(ctx)
	if err != nil {
		return info, err
	}

	info.Tables = make([]TableInfo, 0, len(names))
	for _, name := range names {
		t, err := c.tableInfo(ctx, name)
		if err != nil {
			return info, err
		}
		info.Tables = append(info.Tables, t)
	}
	return info, nil
}

func (c *Collector) tableNames(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, tableNamesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (c *Collector) tableInfo(ctx context.Context, name string) (TableInfo, error) {
	t := TableInfo{Name: name, Indexes: []IndexInfo{}}

	if err := c.db.QueryRowContext(ctx, tableSizeSQL, name).Scan(&t.Size); err != nil {
		return t, fmt.Errorf("failed to read size of %s: %w", name, err)
	}

	rows, err := c.db.QueryContext(ctx, tableIndexesSQL, name)
	if err != nil {
		return t, fmt.Errorf("failed to list indexes of %s: %w", name, err)
	}
	for rows.Next() {
		var idx IndexInfo
		if err := rows.Scan(&idx.Name, &idx.Def); err != nil {
			rows.Close()
			return t, fmt.Errorf("failed to scan index of %s: %w", name, err)
		}
		t.Indexes = append(t.Indexes, idx)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return t, fmt.Errorf("error iterating indexes of %s: %w", name, err)
	}

	var last sql.NullTime
	err = c.db.QueryRowContext(ctx, tableMaintenanceSQL, name).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return t, fmt.Errorf("failed to read maintenance of %s: %w", name, err)
	case last.Valid:
		t.LastUpdate = &last.Time
	}
	return t, nil
}
