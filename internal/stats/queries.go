package stats

// Server-wide statistics. Each query returns a single nullable value.
const (
	cacheHitRatioSQL = `
		SELECT CASE WHEN sum(blks_hit + blks_read) = 0 THEN 1
		       ELSE sum(blks_hit)::float8 / sum(blks_hit + blks_read) END
		FROM pg_stat_database`

	indexUsageSQL = `
		SELECT CASE WHEN sum(seq_scan + idx_scan) = 0 THEN 1
		       ELSE sum(idx_scan)::float8 / sum(seq_scan + idx_scan) END
		FROM pg_stat_user_tables`

	waitTimeSQL = `SELECT count(*) FROM pg_stat_activity WHERE wait_event_type IS NOT NULL`

	// blks_written is not present on every server version or fork.
	hasBlocksWrittenSQL = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'pg_stat_database' AND column_name = 'blks_written')`

	diskReadSQL  = `SELECT sum(blks_read)::float8 FROM pg_stat_database`
	diskWriteSQL = `SELECT sum(blks_written)::float8 FROM pg_stat_database`

	databaseSizeSQL = `SELECT pg_database_size(coalesce(nullif($1, ''), current_database()))`

	deadlockCountSQL = `SELECT sum(deadlocks)::float8 FROM pg_stat_database`

	uptimeSQL = `SELECT extract(epoch FROM now() - pg_postmaster_start_time())::float8`

	activeConnectionsSQL = `SELECT count(*) FROM pg_stat_activity WHERE state = 'active'`

	lockContentionSQL = `SELECT count(*) FROM pg_locks WHERE NOT granted`

	replicationLagSQL = `
		SELECT CASE WHEN pg_last_wal_receive_lsn() IS NULL THEN 0
		       ELSE pg_wal_lsn_diff(pg_current_wal_lsn(), pg_last_wal_receive_lsn())::float8 END`

	explainJSONSQL = `EXPLAIN (FORMAT JSON) `
)

// Lock-table introspection.
const (
	currentLocksSQL = `
		SELECT
			coalesce(l.pid, 0),
			l.locktype,
			coalesce(l.relation::regclass::text, ''),
			l.mode,
			l.granted,
			coalesce(l.fastpath, false),
			coalesce(l.virtualtransaction, ''),
			coalesce(l.transactionid::text, ''),
			coalesce(l.virtualxid, ''),
			coalesce(a.datname, ''),
			coalesce(a.application_name, ''),
			coalesce(a.state, ''),
			coalesce(a.query, ''),
			extract(epoch FROM now() - a.query_start)::float8 AS query_duration
		FROM pg_locks l
		LEFT JOIN pg_stat_activity a USING (pid)
		WHERE l.relation IS NOT NULL
		ORDER BY l.granted DESC, query_duration DESC NULLS LAST`

	blockingPairsSQL = `
		SELECT
			a.pid, coalesce(a.query, ''), coalesce(a.state, ''),
			b.pid, coalesce(b.query, ''), coalesce(b.state, '')
		FROM pg_locks bl
		JOIN pg_stat_activity a ON bl.pid = a.pid
		JOIN pg_locks wl ON bl.locktype = wl.locktype
			AND bl.database IS NOT DISTINCT FROM wl.database
			AND bl.relation IS NOT DISTINCT FROM wl.relation
			AND bl.page IS NOT DISTINCT FROM wl.page
			AND bl.tuple IS NOT DISTINCT FROM wl.tuple
			AND bl.virtualxid IS NOT DISTINCT FROM wl.virtualxid
			AND bl.transactionid IS NOT DISTINCT FROM wl.transactionid
			AND bl.classid IS NOT DISTINCT FROM wl.classid
			AND bl.objid IS NOT DISTINCT FROM wl.objid
			AND bl.objsubid IS NOT DISTINCT FROM wl.objsubid
		JOIN pg_stat_activity b ON wl.pid = b.pid
		WHERE NOT bl.granted AND wl.granted AND a.pid <> b.pid`
)

// Database overview.
const (
	currentDatabaseSQL = `SELECT current_database(), pg_database_size(current_database())`
	tablesCountSQL     = `SELECT count(*) FROM information_schema.tables WHERE table_schema = 'public'`
	usersCountSQL      = `SELECT count(*) FROM pg_user`
	tableNamesSQL      = `SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`
	tableSizeSQL       = `SELECT pg_total_relation_size(format('%I.%I', 'public', $1::text)::regclass)`
	tableIndexesSQL    = `SELECT indexname, indexdef FROM pg_indexes WHERE schemaname = 'public' AND tablename = $1 ORDER BY indexname`

	tableMaintenanceSQL = `
		SELECT greatest(last_vacuum, last_autovacuum, last_analyze, last_autoanalyze)
		FROM pg_stat_user_tables WHERE schemaname = 'public' AND relname = $1`
)
