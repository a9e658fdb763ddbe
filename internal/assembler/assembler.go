// Package assembler folds raw graph records into catalog entities.
package assembler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vitebski/graph-metadata-proxy/internal/statements"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

// Property names read outside the typed rows
const (
	LastUpdatedProperty     = "last_updated_timestamp"
	LatestTimestampProperty = "latest_timestmap" // spelled as written by the ingestion jobs
)

type tableIdentity struct {
	database    string
	cluster     string
	schema      string
	name        string
	description string
}

type columnIdentity struct {
	name      string
	sortOrder int
}

type statIdentity struct {
	statType   string
	startEpoch int64
	endEpoch   int64
}

// AssembleTable builds a Table from the column rows, the reader rows and the
// optional table-level record. Zero column rows means the table does not exist.
func AssembleTable(columnRecords, readerRecords []map[string]interface{}, tableLevel map[string]interface{}) (*models.Table, error) {
	rows, err := decodeAll[columnRow](statements.TableColumns.Name, columnRecords)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.ErrNotFound("table not found")
	}

	identity, err := groupTable(rows)
	if err != nil {
		return nil, err
	}

	table := &models.Table{
		Database:     identity.database,
		Cluster:      identity.cluster,
		Schema:       identity.schema,
		Name:         identity.name,
		Description:  identity.description,
		Tags:         []models.Tag{},
		Watermarks:   []models.Watermark{},
		Owners:       []models.User{},
		TableReaders: []models.User{},
	}

	for _, row := range rows {
		if row.Table.IsView {
			table.IsView = true
		}
	}

	table.Columns, err = foldColumns(rows)
	if err != nil {
		return nil, err
	}

	table.TableReaders, err = assembleReaders(readerRecords)
	if err != nil {
		return nil, err
	}

	if tableLevel != nil {
		if err := mergeTableLevel(table, tableLevel); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// groupTable returns the single table described by rows
func groupTable(rows []columnRow) (tableIdentity, error) {
	var groups []tableIdentity
	seen := make(map[tableIdentity]bool)

	for _, row := range rows {
		identity := tableIdentity{
			database: row.Database.Name,
			cluster:  row.Cluster.Name,
			schema:   row.Schema.Name,
			name:     row.Table.Name,
		}
		if row.TableDescription != nil {
			identity.description = row.TableDescription.Description
		}
		if !seen[identity] {
			seen[identity] = true
			groups = append(groups, identity)
		}
	}

	if len(groups) > 1 {
		return tableIdentity{}, &models.QueryError{
			Statement: statements.TableColumns.Name,
			Err:       fmt.Errorf("records describe %d tables, expected one", len(groups)),
		}
	}
	return groups[0], nil
}

// foldColumns deduplicates columns and their statistics and orders the
// columns by sort order
func foldColumns(rows []columnRow) ([]models.Column, error) {
	var order []columnIdentity
	columns := make(map[columnIdentity]*models.Column)
	stats := make(map[columnIdentity]map[statIdentity]bool)

	for _, row := range rows {
		id := columnIdentity{name: row.Column.Name, sortOrder: row.Column.SortOrder}
		column, exists := columns[id]
		if !exists {
			column = &models.Column{
				Name:      row.Column.Name,
				ColType:   row.Column.Type,
				SortOrder: row.Column.SortOrder,
				Stats:     []models.Statistics{},
			}
			if row.ColumnDescription != nil {
				column.Description = row.ColumnDescription.Description
			}
			columns[id] = column
			stats[id] = make(map[statIdentity]bool)
			order = append(order, id)
		}

		for _, stat := range row.Stats {
			statID := statIdentity{statType: stat.StatName, startEpoch: stat.StartEpoch, endEpoch: stat.EndEpoch}
			if stats[id][statID] {
				continue
			}
			stats[id][statID] = true
			column.Stats = append(column.Stats, models.Statistics{
				StatType:   stat.StatName,
				StartEpoch: stat.StartEpoch,
				EndEpoch:   stat.EndEpoch,
				StatVal:    stat.StatVal,
			})
		}
	}

	result := make([]models.Column, 0, len(order))
	sortOrders := make(map[int]string)
	for _, id := range order {
		if other, taken := sortOrders[id.sortOrder]; taken {
			return nil, &models.QueryError{
				Statement: statements.TableColumns.Name,
				Err:       fmt.Errorf("columns %s and %s share sort order %d", other, id.name, id.sortOrder),
			}
		}
		sortOrders[id.sortOrder] = id.name
		result = append(result, *columns[id])
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SortOrder < result[j].SortOrder
	})
	return result, nil
}

func assembleReaders(records []map[string]interface{}) ([]models.User, error) {
	rows, err := decodeAll[readerRow](statements.TableReaders.Name, records)
	if err != nil {
		return nil, err
	}

	readers := make([]models.User, 0, len(rows))
	seen := make(map[string]bool)
	for _, row := range rows {
		if row.Email == "" || seen[row.Email] {
			continue
		}
		seen[row.Email] = true
		readers = append(readers, models.User{Email: row.Email, FullName: row.FullName})
	}
	return readers, nil
}

// mergeTableLevel copies the singleton table fields into table
func mergeTableLevel(table *models.Table, record map[string]interface{}) error {
	var row tableLevelRow
	if err := decode(statements.TableLevel.Name, record, &row); err != nil {
		return err
	}

	seenWatermarks := make(map[string]bool)
	for _, wmk := range row.Watermarks {
		wmkType := watermarkType(wmk.Key)
		if wmkType == "" || seenWatermarks[wmkType] {
			continue
		}
		seenWatermarks[wmkType] = true
		table.Watermarks = append(table.Watermarks, models.Watermark{
			WatermarkType:  wmkType,
			PartitionKey:   wmk.PartitionKey,
			PartitionValue: wmk.PartitionValue,
			CreateTime:     wmk.CreateTime,
		})
	}

	seenOwners := make(map[string]bool)
	for _, owner := range row.Owners {
		email := owner.Email
		if email == "" {
			email = owner.Key
		}
		if email == "" || seenOwners[email] {
			continue
		}
		seenOwners[email] = true
		table.Owners = append(table.Owners, models.User{Email: email})
	}

	seenTags := make(map[string]bool)
	for _, tag := range row.Tags {
		if tag.Key == "" || seenTags[tag.Key] {
			continue
		}
		seenTags[tag.Key] = true
		tagType := tag.TagType
		if tagType == "" {
			tagType = models.DefaultTagType
		}
		table.Tags = append(table.Tags, models.Tag{TagName: tag.Key, TagType: tagType})
	}

	if row.Application != nil {
		table.TableWriter = &models.Application{
			ID:             row.Application.ID,
			Name:           row.Application.Name,
			Description:    row.Application.Description,
			ApplicationURL: row.Application.ApplicationURL,
		}
	}

	if row.Source != nil {
		table.Source = &models.Source{Source: row.Source.Source, SourceType: row.Source.SourceType}
	}

	lastUpdated, err := TimestampFrom(statements.TableLevel.Name, row.LastUpdated, LastUpdatedProperty)
	if err != nil {
		return err
	}
	table.LastUpdatedTimestamp = lastUpdated
	return nil
}

// watermarkType derives the watermark type from its node key; unknown keys
// yield an empty string
func watermarkType(key string) string {
	switch {
	case strings.Contains(key, models.WatermarkHigh):
		return models.WatermarkHigh
	case strings.Contains(key, models.WatermarkLow):
		return models.WatermarkLow
	}
	return ""
}

// TimestampFrom reads a timestamp property from a node. It returns nil when
// the node is absent and 0 when the node exists without a usable value.
func TimestampFrom(statement string, node interface{}, property string) (*int64, error) {
	if node == nil {
		return nil, nil
	}
	props, ok := node.(map[string]interface{})
	if !ok {
		return nil, &models.QueryError{Statement: statement, Err: fmt.Errorf("timestamp node has type %T", node)}
	}

	var ts int64
	switch value := props[property].(type) {
	case nil:
	case string:
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			parsed, err := strconv.ParseInt(trimmed, 10, 64)
			if err != nil {
				return nil, &models.QueryError{Statement: statement, Err: err}
			}
			ts = parsed
		}
	case int64:
		ts = value
	case int:
		ts = int64(value)
	case float64:
		ts = int64(value)
	default:
		return nil, &models.QueryError{Statement: statement, Err: fmt.Errorf("%s has type %T", property, value)}
	}
	return &ts, nil
}

// AssembleLatestTimestamp returns the latest catalog update time, 0 when the
// marker node carries no value and nil when there is no marker node
func AssembleLatestTimestamp(records []map[string]interface{}) (*int64, error) {
	if len(records) == 0 {
		return nil, nil
	}
	return TimestampFrom(statements.LatestUpdatedTimestamp.Name, records[0]["ts"], LatestTimestampProperty)
}

// AssembleDescription returns the description of the first record, or nil
func AssembleDescription(statement string, records []map[string]interface{}) (*string, error) {
	if len(records) == 0 || records[0]["description"] == nil {
		return nil, nil
	}
	var row descriptionNode
	if err := decode(statement, records[0], &row); err != nil {
		return nil, err
	}
	return &row.Description, nil
}

// AssembleUser builds a User from a user detail record
func AssembleUser(records []map[string]interface{}) (*models.User, error) {
	if len(records) == 0 {
		return nil, models.ErrNotFound("user not found")
	}

	var row userRow
	if err := decode(statements.UserDetail.Name, records[0], &row); err != nil {
		return nil, err
	}
	if row.User == nil {
		return nil, models.ErrNotFound("user not found")
	}

	user := &models.User{
		Email:          row.User.Email,
		EmployeeType:   row.User.EmployeeType,
		FullName:       row.User.FullName,
		FirstName:      row.User.FirstName,
		LastName:       row.User.LastName,
		IsActive:       row.User.IsActive,
		GithubUsername: row.User.GithubUsername,
		SlackID:        row.User.SlackID,
		TeamName:       row.User.TeamName,
	}
	if row.Manager != nil {
		manager := row.Manager.FullName
		user.ManagerFullName = &manager
	}
	return user, nil
}

// AssemblePopularTables maps detail rows to PopularTables ordered by their
// position in keys. Rows whose key is not listed keep their relative order
// after the listed ones.
func AssemblePopularTables(records []map[string]interface{}, keys []string) ([]models.PopularTable, error) {
	rows, err := decodeAll[popularTableRow](statements.PopularTableDetails.Name, records)
	if err != nil {
		return nil, err
	}

	position := make(map[string]int, len(keys))
	for i, key := range keys {
		if _, exists := position[key]; !exists {
			position[key] = i
		}
	}

	rank := func(row popularTableRow) int {
		key := row.TableKey
		if key == "" {
			key = models.TableKey(row.DatabaseName, row.ClusterName, row.SchemaName, row.TableName)
		}
		if i, ok := position[key]; ok {
			return i
		}
		return len(keys)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rank(rows[i]) < rank(rows[j])
	})

	tables := make([]models.PopularTable, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, models.PopularTable{
			Database:    row.DatabaseName,
			Cluster:     row.ClusterName,
			Schema:      row.SchemaName,
			Name:        row.TableName,
			Description: row.TableDescription,
		})
	}
	return tables, nil
}

// AssembleTagDetails maps tag count rows to TagDetails
func AssembleTagDetails(records []map[string]interface{}) ([]models.TagDetail, error) {
	rows, err := decodeAll[tagCountRow](statements.TagCounts.Name, records)
	if err != nil {
		return nil, err
	}

	details := make([]models.TagDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, models.TagDetail{TagName: row.TagName.Key, TagCount: row.TagCount})
	}
	return details, nil
}

// AssembleResourceRelation maps the tables related to a user
func AssembleResourceRelation(statement string, records []map[string]interface{}) ([]models.PopularTable, error) {
	rows, err := decodeAll[resourceRow](statement, records)
	if err != nil {
		return nil, err
	}

	tables := make([]models.PopularTable, 0, len(rows))
	for _, row := range rows {
		table := models.PopularTable{
			Database: row.Database.Name,
			Cluster:  row.Cluster.Name,
			Schema:   row.Schema.Name,
			Name:     row.Table.Name,
		}
		if row.TableDescription != nil {
			description := row.TableDescription.Description
			table.Description = &description
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// AssembleRankedKeys returns the table keys of a ranking in record order
func AssembleRankedKeys(records []map[string]interface{}) ([]string, error) {
	rows, err := decodeAll[rankedKeyRow](statements.PopularTableRanking.Name, records)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.TableKey)
	}
	return keys, nil
}
