package models

import (
	"fmt"
	"strings"
)

// Watermark types recognized in a watermark node key
const (
	WatermarkHigh = "high_watermark"
	WatermarkLow  = "low_watermark"
)

// DefaultTagType is assigned to tags whose node carries no type
const DefaultTagType = "default"

// ResourceTable groups table results returned for a user relation
const ResourceTable = "table"

// Table represents the full description of a catalog table
type Table struct {
	Database             string
	Cluster              string
	Schema               string
	Name                 string
	Description          string
	IsView               bool
	Tags                 []Tag
	Columns              []Column
	Watermarks           []Watermark
	Owners               []User
	TableWriter          *Application
	TableReaders         []User
	LastUpdatedTimestamp *int64
	Source               *Source
}

// Key returns the table URI
func (t Table) Key() string {
	return TableKey(t.Database, t.Cluster, t.Schema, t.Name)
}

// Column represents a table column with its statistics
type Column struct {
	Name        string
	Description string
	ColType     string
	SortOrder   int
	Stats       []Statistics
}

// Statistics represents one computed column statistic
type Statistics struct {
	StatType   string
	StartEpoch int64
	EndEpoch   int64
	StatVal    string
}

// Watermark represents a recorded partition boundary of a table
type Watermark struct {
	WatermarkType  string
	PartitionKey   string
	PartitionValue string
	CreateTime     string
}

// Tag represents a tag attached to a table
type Tag struct {
	TagName string
	TagType string
}

// TagDetail represents a tag with the number of tables using it
type TagDetail struct {
	TagName  string
	TagCount int
}

// User represents a person known to the catalog, keyed by email
type User struct {
	Email           string
	EmployeeType    string
	FullName        string
	FirstName       string
	LastName        string
	IsActive        bool
	GithubUsername  string
	SlackID         string
	TeamName        string
	ManagerFullName *string
}

// Application represents the producer of a table
type Application struct {
	ID             string
	Name           string
	Description    string
	ApplicationURL string
}

// Source represents where a table definition lives
type Source struct {
	Source     string
	SourceType string
}

// PopularTable is a lightweight table projection used by rankings and listings
type PopularTable struct {
	Database    string
	Cluster     string
	Schema      string
	Name        string
	Description *string
}

// Key returns the table URI
func (p PopularTable) Key() string {
	return TableKey(p.Database, p.Cluster, p.Schema, p.Name)
}

// UserResourceRel is the kind of edge between a user and a resource
type UserResourceRel int

const (
	RelationFollow UserResourceRel = iota
	RelationOwn
	RelationRead
)

var relationNames = map[UserResourceRel]string{
	RelationFollow: "follow",
	RelationOwn:    "own",
	RelationRead:   "read",
}

// UserResourceRels lists every supported relation
func UserResourceRels() []UserResourceRel {
	return []UserResourceRel{RelationFollow, RelationOwn, RelationRead}
}

func (r UserResourceRel) String() string {
	if name, ok := relationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("UserResourceRel(%d)", int(r))
}

// Valid reports whether r is one of the supported relations
func (r UserResourceRel) Valid() bool {
	_, ok := relationNames[r]
	return ok
}

// ParseUserResourceRel converts a relation name into a UserResourceRel
func ParseUserResourceRel(name string) (UserResourceRel, error) {
	for rel, relName := range relationNames {
		if strings.EqualFold(relName, strings.TrimSpace(name)) {
			return rel, nil
		}
	}
	return 0, ErrValidation("unknown relation type %q", name)
}

// TableKey builds the URI addressing a table node
func TableKey(database, cluster, schema, name string) string {
	return fmt.Sprintf("%s://%s.%s/%s", database, cluster, schema, name)
}
