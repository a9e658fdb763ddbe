package schema

import (
	"testing"

	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

func TestCreationOrder(t *testing.T) {
	order, err := CreationOrder()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(order) != len(Labels) {
		t.Errorf("Expected %d labels in the creation order, got %d", len(Labels), len(order))
	}

	position := make(map[string]int)
	for i, label := range order {
		position[label] = i
	}

	// Every edge source must be created before its target
	for _, edge := range Edges {
		if position[edge.From] > position[edge.To] {
			t.Errorf("Expected %s to come before %s", edge.From, edge.To)
		}
	}

	if position[LabelDatabase] > position[LabelStatistics] {
		t.Error("Expected Database to come before Statistics")
	}
}

func TestRelationEdge(t *testing.T) {
	for _, rel := range models.UserResourceRels() {
		forward, reverse, err := RelationEdge(rel)
		if err != nil {
			t.Errorf("Unexpected error for %s: %v", rel, err)
		}
		if forward == "" || reverse == "" {
			t.Errorf("Expected edge labels for %s", rel)
		}
	}

	if _, _, err := RelationEdge(models.UserResourceRel(99)); err == nil {
		t.Error("Expected an error for an unknown relation")
	}
}
