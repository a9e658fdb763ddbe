package assembler

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

// Result rows as returned by the statements in internal/statements. Node
// values arrive as property maps.

type namedNode struct {
	Key  string `mapstructure:"key"`
	Name string `mapstructure:"name"`
}

type tableNode struct {
	Key    string `mapstructure:"key"`
	Name   string `mapstructure:"name"`
	IsView bool   `mapstructure:"is_view"`
}

type descriptionNode struct {
	Description string `mapstructure:"description"`
}

type columnNode struct {
	Name      string `mapstructure:"name"`
	Type      string `mapstructure:"type"`
	SortOrder int    `mapstructure:"sort_order"`
}

type statNode struct {
	StatName   string `mapstructure:"stat_name"`
	StartEpoch int64  `mapstructure:"start_epoch"`
	EndEpoch   int64  `mapstructure:"end_epoch"`
	StatVal    string `mapstructure:"stat_val"`
}

type columnRow struct {
	Database          namedNode        `mapstructure:"db"`
	Cluster           namedNode        `mapstructure:"clstr"`
	Schema            namedNode        `mapstructure:"schema"`
	Table             tableNode        `mapstructure:"tbl"`
	TableDescription  *descriptionNode `mapstructure:"tbl_dscrpt"`
	Column            columnNode       `mapstructure:"col"`
	ColumnDescription *descriptionNode `mapstructure:"col_dscrpt"`
	Stats             []statNode       `mapstructure:"col_stats"`
}

type readerRow struct {
	Email     string `mapstructure:"email"`
	FullName  string `mapstructure:"full_name"`
	ReadCount int64  `mapstructure:"read_count"`
}

type watermarkNode struct {
	Key            string `mapstructure:"key"`
	PartitionKey   string `mapstructure:"partition_key"`
	PartitionValue string `mapstructure:"partition_value"`
	CreateTime     string `mapstructure:"create_time"`
}

type applicationNode struct {
	ID             string `mapstructure:"id"`
	Name           string `mapstructure:"name"`
	Description    string `mapstructure:"description"`
	ApplicationURL string `mapstructure:"application_url"`
}

type ownerNode struct {
	Key   string `mapstructure:"key"`
	Email string `mapstructure:"email"`
}

type tagNode struct {
	Key     string `mapstructure:"key"`
	TagType string `mapstructure:"tag_type"`
}

type sourceNode struct {
	Source     string `mapstructure:"source"`
	SourceType string `mapstructure:"source_type"`
}

type tableLevelRow struct {
	Watermarks  []watermarkNode  `mapstructure:"wmk_records"`
	Application *applicationNode `mapstructure:"application"`
	LastUpdated interface{}      `mapstructure:"last_updated"`
	Owners      []ownerNode      `mapstructure:"owner_records"`
	Tags        []tagNode        `mapstructure:"tag_records"`
	Source      *sourceNode      `mapstructure:"src"`
}

type userNode struct {
	Email          string `mapstructure:"email"`
	EmployeeType   string `mapstructure:"employee_type"`
	FullName       string `mapstructure:"full_name"`
	FirstName      string `mapstructure:"first_name"`
	LastName       string `mapstructure:"last_name"`
	IsActive       bool   `mapstructure:"is_active"`
	GithubUsername string `mapstructure:"github_username"`
	SlackID        string `mapstructure:"slack_id"`
	TeamName       string `mapstructure:"team_name"`
}

type userRow struct {
	User    *userNode `mapstructure:"user_record"`
	Manager *userNode `mapstructure:"manager_record"`
}

type popularTableRow struct {
	DatabaseName     string  `mapstructure:"database_name"`
	ClusterName      string  `mapstructure:"cluster_name"`
	SchemaName       string  `mapstructure:"schema_name"`
	TableName        string  `mapstructure:"table_name"`
	TableKey         string  `mapstructure:"table_key"`
	TableDescription *string `mapstructure:"table_description"`
}

type tagCountRow struct {
	TagName  namedNode `mapstructure:"tag_name"`
	TagCount int       `mapstructure:"tag_count"`
}

type resourceRow struct {
	Database         namedNode        `mapstructure:"db"`
	Cluster          namedNode        `mapstructure:"clstr"`
	Schema           namedNode        `mapstructure:"schema"`
	Table            tableNode        `mapstructure:"tbl"`
	TableDescription *descriptionNode `mapstructure:"tbl_dscrpt"`
}

type rankedKeyRow struct {
	TableKey string `mapstructure:"table_key"`
}

// decode converts one raw record into its typed row. Values are decoded
// weakly so heterogeneous stat values become text.
func decode(statement string, input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return &models.QueryError{Statement: statement, Err: err}
	}
	if err := decoder.Decode(input); err != nil {
		return &models.QueryError{Statement: statement, Err: err}
	}
	return nil
}

func decodeAll[T any](statement string, records []map[string]interface{}) ([]T, error) {
	rows := make([]T, 0, len(records))
	for _, record := range records {
		var row T
		if err := decode(statement, record, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
