// Package schema describes the node labels and edges of the metadata graph.
package schema

import (
	"fmt"

	"github.com/vitebski/graph-metadata-proxy/pkg/models"
	"github.com/yourbasic/graph"
)

// Node labels
const (
	LabelDatabase         = "Database"
	LabelCluster          = "Cluster"
	LabelSchema           = "Schema"
	LabelTable            = "Table"
	LabelColumn           = "Column"
	LabelDescription      = "Description"
	LabelWatermark        = "Watermark"
	LabelTag              = "Tag"
	LabelUser             = "User"
	LabelApplication      = "Application"
	LabelSource           = "Source"
	LabelStatistics       = "Statistics"
	LabelTimestamp        = "Timestamp"
	LabelUpdatedTimestamp = "Updatedtimestamp"
)

// Labels lists every node label in a stable order
var Labels = []string{
	LabelDatabase,
	LabelCluster,
	LabelSchema,
	LabelTable,
	LabelColumn,
	LabelDescription,
	LabelWatermark,
	LabelTag,
	LabelUser,
	LabelApplication,
	LabelSource,
	LabelStatistics,
	LabelTimestamp,
	LabelUpdatedTimestamp,
}

// EdgePair is a relationship written in both directions
type EdgePair struct {
	From    string
	To      string
	Label   string
	Reverse string
}

// Edges lists the relationships the proxy reads and writes. An edge's From
// node must exist before the edge, and so before the To node is attached.
var Edges = []EdgePair{
	{From: LabelDatabase, To: LabelCluster, Label: "CLUSTER", Reverse: "CLUSTER_OF"},
	{From: LabelCluster, To: LabelSchema, Label: "SCHEMA", Reverse: "SCHEMA_OF"},
	{From: LabelSchema, To: LabelTable, Label: "TABLE", Reverse: "TABLE_OF"},
	{From: LabelTable, To: LabelColumn, Label: "COLUMN", Reverse: "COLUMN_OF"},
	{From: LabelTable, To: LabelDescription, Label: "DESCRIPTION", Reverse: "DESCRIPTION_OF"},
	{From: LabelColumn, To: LabelDescription, Label: "DESCRIPTION", Reverse: "DESCRIPTION_OF"},
	{From: LabelColumn, To: LabelStatistics, Label: "STAT", Reverse: "STAT_OF"},
	{From: LabelTable, To: LabelWatermark, Label: "WATERMARK", Reverse: "BELONG_TO_TABLE"},
	{From: LabelTable, To: LabelApplication, Label: "DERIVED_FROM", Reverse: "GENERATES"},
	{From: LabelTable, To: LabelTimestamp, Label: "LAST_UPDATED_AT", Reverse: "LAST_UPDATED_TIME_OF"},
	{From: LabelTable, To: LabelSource, Label: "SOURCE", Reverse: "SOURCE_OF"},
	{From: LabelTable, To: LabelTag, Label: "TAGGED_BY", Reverse: "TAG"},
	{From: LabelTable, To: LabelUser, Label: "OWNER", Reverse: "OWNER_OF"},
	{From: LabelTable, To: LabelUser, Label: "READ_BY", Reverse: "READ"},
	{From: LabelTable, To: LabelUser, Label: "FOLLOWED_BY", Reverse: "FOLLOW"},
}

// RelationEdge returns the user-to-table edge labels for a relation. The
// forward label points from the user to the table.
func RelationEdge(rel models.UserResourceRel) (forward, reverse string, err error) {
	switch rel {
	case models.RelationFollow:
		return "FOLLOW", "FOLLOWED_BY", nil
	case models.RelationOwn:
		return "OWNER_OF", "OWNER", nil
	case models.RelationRead:
		return "READ", "READ_BY", nil
	}
	return "", "", models.ErrValidation("unknown relation type %s", rel)
}

// CreationOrder returns the node labels ordered so that every label comes
// after the labels it is attached to
func CreationOrder() ([]string, error) {
	index := make(map[string]int, len(Labels))
	for i, label := range Labels {
		index[label] = i
	}

	dependencies := graph.New(len(Labels))
	for _, edge := range Edges {
		from, ok := index[edge.From]
		if !ok {
			return nil, fmt.Errorf("edge %s references unknown label %s", edge.Label, edge.From)
		}
		to, ok := index[edge.To]
		if !ok {
			return nil, fmt.Errorf("edge %s references unknown label %s", edge.Label, edge.To)
		}
		if from != to {
			dependencies.Add(from, to)
		}
	}

	order, ok := graph.TopSort(dependencies)
	if !ok {
		return nil, fmt.Errorf("graph schema contains a cycle")
	}

	labels := make([]string, 0, len(order))
	for _, i := range order {
		labels = append(labels, Labels[i])
	}
	return labels, nil
}
