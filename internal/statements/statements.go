// Package statements holds the parametrized Cypher text for every proxy and
// seeding operation. Caller values are always passed as bind parameters.
package statements

import (
	"fmt"
	"strings"

	"github.com/vitebski/graph-metadata-proxy/internal/schema"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

// Statement is a named Cypher template with the bind parameters it requires
type Statement struct {
	Name   string
	Text   string
	Params []string
}

// Bind pairs the statement's parameter names with values in order. A count
// mismatch is a programming error and panics.
func (s Statement) Bind(values ...interface{}) map[string]interface{} {
	if len(values) != len(s.Params) {
		panic(fmt.Sprintf("statements: %s expects %d parameters, got %d", s.Name, len(s.Params), len(values)))
	}
	params := make(map[string]interface{}, len(values))
	for i, name := range s.Params {
		params[name] = values[i]
	}
	return params
}

func newStatement(name, text string, params ...string) Statement {
	return Statement{Name: name, Text: strings.TrimSpace(text), Params: params}
}

// LatestUpdatedKey is the key of the node holding the catalog's last
// ingestion time
const LatestUpdatedKey = "catalog_updated_timestamp"

// Read statements
var (
	TableColumns = newStatement("table_columns", `
		MATCH (db:Database)-[:CLUSTER]->(clstr:Cluster)-[:SCHEMA]->(schema:Schema)
		-[:TABLE]->(tbl:Table {key: $tbl_key})-[:COLUMN]->(col:Column)
		OPTIONAL MATCH (tbl)-[:DESCRIPTION]->(tbl_dscrpt:Description)
		OPTIONAL MATCH (col)-[:DESCRIPTION]->(col_dscrpt:Description)
		OPTIONAL MATCH (col)-[:STAT]->(stat:Statistics)
		RETURN db, clstr, schema, tbl, tbl_dscrpt, col, col_dscrpt, collect(distinct stat) AS col_stats
		ORDER BY col.sort_order`, "tbl_key")

	TableReaders = newStatement("table_readers", `
		MATCH (user:User)-[read:READ]->(tbl:Table {key: $tbl_key})
		RETURN user.email AS email, user.full_name AS full_name, read.read_count AS read_count
		ORDER BY read_count DESC LIMIT $limit`, "tbl_key", "limit")

	TableLevel = newStatement("table_level", `
		MATCH (tbl:Table {key: $tbl_key})
		OPTIONAL MATCH (wmk:Watermark)-[:BELONG_TO_TABLE]->(tbl)
		OPTIONAL MATCH (application:Application)-[:GENERATES]->(tbl)
		OPTIONAL MATCH (tbl)-[:LAST_UPDATED_AT]->(t:Timestamp)
		OPTIONAL MATCH (tbl)-[:OWNER]->(owner:User)
		OPTIONAL MATCH (tbl)-[:TAGGED_BY]->(tag:Tag)
		OPTIONAL MATCH (tbl)-[:SOURCE]->(src:Source)
		RETURN collect(distinct wmk) AS wmk_records, application, t AS last_updated,
		collect(distinct owner) AS owner_records, collect(distinct tag) AS tag_records, src`, "tbl_key")

	TableDescription = newStatement("table_description", `
		MATCH (tbl:Table {key: $tbl_key})-[:DESCRIPTION]->(d:Description)
		RETURN d.description AS description`, "tbl_key")

	ColumnDescription = newStatement("column_description", `
		MATCH (tbl:Table {key: $tbl_key})-[:COLUMN]->(c:Column {name: $column_name})-[:DESCRIPTION]->(d:Description)
		RETURN d.description AS description`, "tbl_key", "column_name")

	TagCounts = newStatement("tag_counts", `
		MATCH (t:Tag)-[:TAG]->(tbl:Table)
		WITH t AS tag_name, count(distinct tbl.key) AS tag_count
		WHERE tag_count > 0
		RETURN tag_name, tag_count
		ORDER BY tag_count DESC`)

	PopularTableRanking = newStatement("popular_table_ranking", `
		MATCH (tbl:Table)-[r:READ_BY]->(u:User)
		WITH tbl.key AS table_key, count(distinct u) AS readers, sum(r.read_count) AS total_reads
		WHERE readers >= $min_readers
		RETURN table_key, readers, total_reads, (readers * log(total_reads)) AS score
		ORDER BY score DESC LIMIT $num_entries`, "min_readers", "num_entries")

	PopularTableDetails = newStatement("popular_table_details", `
		MATCH (db:Database)-[:CLUSTER]->(clstr:Cluster)-[:SCHEMA]->(schema:Schema)-[:TABLE]->(tbl:Table)
		WHERE tbl.key IN $table_keys
		WITH db.name AS database_name, clstr.name AS cluster_name, schema.name AS schema_name, tbl
		OPTIONAL MATCH (tbl)-[:DESCRIPTION]->(dscrpt:Description)
		RETURN database_name, cluster_name, schema_name, tbl.name AS table_name,
		tbl.key AS table_key, dscrpt.description AS table_description`, "table_keys")

	UserDetail = newStatement("user_detail", `
		MATCH (user:User {key: $user_key})
		OPTIONAL MATCH (user)-[:MANAGE_BY]->(manager:User)
		RETURN user AS user_record, manager AS manager_record`, "user_key")

	FrequentlyUsedTables = newStatement("frequently_used_tables", `
		MATCH (user:User {key: $user_key})-[r:READ]->(tbl:Table)
		WITH r, tbl ORDER BY r.read_count DESC LIMIT $limit
		MATCH (tbl)-[:TABLE_OF]->(schema:Schema)-[:SCHEMA_OF]->(clstr:Cluster)-[:CLUSTER_OF]->(db:Database)
		OPTIONAL MATCH (tbl)-[:DESCRIPTION]->(tbl_dscrpt:Description)
		RETURN db, clstr, schema, tbl, tbl_dscrpt`, "user_key", "limit")

	LatestUpdatedTimestamp = newStatement("latest_updated_timestamp", `
		MATCH (n:Updatedtimestamp {key: $key})
		RETURN n AS ts`, "key")
)

// Write statements
var (
	UpsertDescription = newStatement("upsert_description", `
		MERGE (d:Description {key: $desc_key})
		ON CREATE SET d.description = $description
		ON MATCH SET d.description = $description`, "desc_key", "description")

	AttachTableDescription = newStatement("attach_table_description", `
		MATCH (d:Description {key: $desc_key}), (tbl:Table {key: $tbl_key})
		MERGE (tbl)-[:DESCRIPTION]->(d)-[:DESCRIPTION_OF]->(tbl)
		RETURN d.key AS desc_key, tbl.key AS tbl_key`, "desc_key", "tbl_key")

	AttachColumnDescription = newStatement("attach_column_description", `
		MATCH (d:Description {key: $desc_key}), (tbl:Table {key: $tbl_key})-[:COLUMN]->(col:Column {name: $column_name})
		MERGE (col)-[:DESCRIPTION]->(d)-[:DESCRIPTION_OF]->(col)
		RETURN d.key AS desc_key, col.name AS column_name`, "desc_key", "tbl_key", "column_name")

	UpsertTag = newStatement("upsert_tag", `
		MERGE (t:Tag {key: $tag})`, "tag")

	DefaultTagType = newStatement("default_tag_type", `
		MATCH (t:Tag {key: $tag})
		WHERE t.tag_type IS NULL
		SET t.tag_type = $tag_type`, "tag", "tag_type")

	AttachTag = newStatement("attach_tag", `
		MATCH (t:Tag {key: $tag}), (tbl:Table {key: $tbl_key})
		MERGE (t)-[:TAG]->(tbl)-[:TAGGED_BY]->(t)
		RETURN t.key AS tag, tbl.key AS tbl_key`, "tag", "tbl_key")

	DetachTag = newStatement("detach_tag", `
		MATCH (t:Tag {key: $tag}), (tbl:Table {key: $tbl_key})
		OPTIONAL MATCH (t)-[r1:TAG]->(tbl)
		OPTIONAL MATCH (tbl)-[r2:TAGGED_BY]->(t)
		DELETE r1, r2`, "tag", "tbl_key")

	UpsertUser = newStatement("upsert_user", `
		MERGE (u:User {key: $user_email})
		ON CREATE SET u.email = $user_email`, "user_email")
)

// RelationSet holds the statements for one user-to-table relation
type RelationSet struct {
	Attach Statement
	Detach Statement
	Tables Statement
}

var relationSets = buildRelationSets()

// ForRelation returns the statements for rel. Edge labels cannot be bound as
// parameters, so each set is expanded from the closed relation list.
func ForRelation(rel models.UserResourceRel) (RelationSet, error) {
	set, ok := relationSets[rel]
	if !ok {
		return RelationSet{}, models.ErrValidation("unknown relation type %s", rel)
	}
	return set, nil
}

func buildRelationSets() map[models.UserResourceRel]RelationSet {
	sets := make(map[models.UserResourceRel]RelationSet)
	for _, rel := range models.UserResourceRels() {
		forward, reverse, err := schema.RelationEdge(rel)
		if err != nil {
			panic(err)
		}
		sets[rel] = RelationSet{
			Attach: newStatement("attach_"+rel.String(), fmt.Sprintf(`
				MATCH (u:User {key: $user_email}), (tbl:Table {key: $tbl_key})
				MERGE (u)-[:%s]->(tbl)-[:%s]->(u)
				RETURN u.key AS user_email, tbl.key AS tbl_key`, forward, reverse), "user_email", "tbl_key"),
			Detach: newStatement("detach_"+rel.String(), fmt.Sprintf(`
				MATCH (u:User {key: $user_email}), (tbl:Table {key: $tbl_key})
				OPTIONAL MATCH (u)-[r1:%s]->(tbl)
				OPTIONAL MATCH (tbl)-[r2:%s]->(u)
				DELETE r1, r2`, forward, reverse), "user_email", "tbl_key"),
			Tables: newStatement("tables_by_"+rel.String(), fmt.Sprintf(`
				MATCH (user:User {key: $user_key})-[:%s]->(tbl:Table)
				MATCH (tbl)-[:TABLE_OF]->(schema:Schema)-[:SCHEMA_OF]->(clstr:Cluster)-[:CLUSTER_OF]->(db:Database)
				OPTIONAL MATCH (tbl)-[:DESCRIPTION]->(tbl_dscrpt:Description)
				RETURN db, clstr, schema, tbl, tbl_dscrpt
				ORDER BY db.name, clstr.name, schema.name, tbl.name`, forward), "user_key"),
		}
	}
	return sets
}
