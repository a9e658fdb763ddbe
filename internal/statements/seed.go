package statements

// Seed statements write dummy catalog fixtures. Each one is idempotent on
// the node keys it is given.
var (
	SeedDatabase = newStatement("seed_database", `
		MERGE (db:Database {key: $db_key})
		SET db.name = $db_name`, "db_key", "db_name")

	SeedCluster = newStatement("seed_cluster", `
		MATCH (db:Database {key: $db_key})
		MERGE (clstr:Cluster {key: $cluster_key})
		SET clstr.name = $cluster_name
		MERGE (db)-[:CLUSTER]->(clstr)-[:CLUSTER_OF]->(db)`, "db_key", "cluster_key", "cluster_name")

	SeedSchema = newStatement("seed_schema", `
		MATCH (clstr:Cluster {key: $cluster_key})
		MERGE (schema:Schema {key: $schema_key})
		SET schema.name = $schema_name
		MERGE (clstr)-[:SCHEMA]->(schema)-[:SCHEMA_OF]->(clstr)`, "cluster_key", "schema_key", "schema_name")

	SeedTable = newStatement("seed_table", `
		MATCH (schema:Schema {key: $schema_key})
		MERGE (tbl:Table {key: $tbl_key})
		SET tbl.name = $tbl_name, tbl.is_view = $is_view
		MERGE (schema)-[:TABLE]->(tbl)-[:TABLE_OF]->(schema)`, "schema_key", "tbl_key", "tbl_name", "is_view")

	SeedColumn = newStatement("seed_column", `
		MATCH (tbl:Table {key: $tbl_key})
		MERGE (col:Column {key: $col_key})
		SET col.name = $col_name, col.type = $col_type, col.sort_order = $sort_order
		MERGE (tbl)-[:COLUMN]->(col)-[:COLUMN_OF]->(tbl)`, "tbl_key", "col_key", "col_name", "col_type", "sort_order")

	SeedStatistics = newStatement("seed_statistics", `
		MATCH (col:Column {key: $col_key})
		MERGE (stat:Statistics {key: $stat_key})
		SET stat.stat_name = $stat_name, stat.stat_val = $stat_val,
		stat.start_epoch = $start_epoch, stat.end_epoch = $end_epoch
		MERGE (col)-[:STAT]->(stat)-[:STAT_OF]->(col)`,
		"col_key", "stat_key", "stat_name", "stat_val", "start_epoch", "end_epoch")

	SeedWatermark = newStatement("seed_watermark", `
		MATCH (tbl:Table {key: $tbl_key})
		MERGE (wmk:Watermark {key: $wmk_key})
		SET wmk.partition_key = $partition_key, wmk.partition_value = $partition_value,
		wmk.create_time = $create_time
		MERGE (tbl)-[:WATERMARK]->(wmk)-[:BELONG_TO_TABLE]->(tbl)`,
		"tbl_key", "wmk_key", "partition_key", "partition_value", "create_time")

	SeedApplication = newStatement("seed_application", `
		MATCH (tbl:Table {key: $tbl_key})
		MERGE (app:Application {key: $app_key})
		SET app.id = $app_id, app.name = $app_name, app.description = $app_description,
		app.application_url = $app_url
		MERGE (app)-[:GENERATES]->(tbl)-[:DERIVED_FROM]->(app)`,
		"tbl_key", "app_key", "app_id", "app_name", "app_description", "app_url")

	SeedSource = newStatement("seed_source", `
		MATCH (tbl:Table {key: $tbl_key})
		MERGE (src:Source {key: $src_key})
		SET src.source = $source, src.source_type = $source_type
		MERGE (tbl)-[:SOURCE]->(src)-[:SOURCE_OF]->(tbl)`, "tbl_key", "src_key", "source", "source_type")

	SeedTimestamp = newStatement("seed_timestamp", `
		MATCH (tbl:Table {key: $tbl_key})
		MERGE (t:Timestamp {key: $ts_key})
		SET t.last_updated_timestamp = $last_updated_timestamp
		MERGE (tbl)-[:LAST_UPDATED_AT]->(t)-[:LAST_UPDATED_TIME_OF]->(tbl)`,
		"tbl_key", "ts_key", "last_updated_timestamp")

	SeedUser = newStatement("seed_user", `
		MERGE (u:User {key: $email})
		SET u.email = $email, u.full_name = $full_name, u.first_name = $first_name,
		u.last_name = $last_name, u.employee_type = $employee_type, u.is_active = $is_active,
		u.github_username = $github_username, u.slack_id = $slack_id, u.team_name = $team_name`,
		"email", "full_name", "first_name", "last_name", "employee_type", "is_active",
		"github_username", "slack_id", "team_name")

	SeedManager = newStatement("seed_manager", `
		MATCH (u:User {key: $email}), (m:User {key: $manager_email})
		MERGE (u)-[:MANAGE_BY]->(m)-[:MANAGE]->(u)`, "email", "manager_email")

	SeedReadCount = newStatement("seed_read_count", `
		MATCH (u:User {key: $email}), (tbl:Table {key: $tbl_key})
		MERGE (u)-[r1:READ]->(tbl)
		MERGE (tbl)-[r2:READ_BY]->(u)
		SET r1.read_count = $read_count, r2.read_count = $read_count`, "email", "tbl_key", "read_count")

	SeedUpdatedTimestamp = newStatement("seed_updated_timestamp", `
		MERGE (n:Updatedtimestamp {key: $key})
		SET n.latest_timestmap = $latest_timestamp`, "key", "latest_timestamp")
)
