package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestTableKey(t *testing.T) {
	key := TableKey("hive", "gold", "foo_schema", "foo_table")
	if key != "hive://gold.foo_schema/foo_table" {
		t.Errorf("Expected hive://gold.foo_schema/foo_table, got '%s'", key)
	}

	table := Table{Database: "hive", Cluster: "gold", Schema: "foo_schema", Name: "foo_table"}
	if table.Key() != key {
		t.Errorf("Expected table key to be '%s', got '%s'", key, table.Key())
	}
}

func TestParseUserResourceRel(t *testing.T) {
	cases := map[string]UserResourceRel{
		"follow":  RelationFollow,
		"own":     RelationOwn,
		"READ":    RelationRead,
		" read  ": RelationRead,
	}
	for name, expected := range cases {
		rel, err := ParseUserResourceRel(name)
		if err != nil {
			t.Errorf("Unexpected error parsing %q: %v", name, err)
			continue
		}
		if rel != expected {
			t.Errorf("Expected %s for %q, got %s", expected, name, rel)
		}
	}

	_, err := ParseUserResourceRel("like")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected a validation error for unknown relation, got %v", err)
	}

	if UserResourceRel(42).Valid() {
		t.Error("Expected relation 42 to be invalid")
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("get table x: %w", &TransactionError{Err: ErrNotFound("table %s not found", "x")})
	if !IsNotFound(wrapped) {
		t.Error("Expected NotFoundError to be found through the transaction error")
	}
	if IsStoreUnavailable(wrapped) {
		t.Error("Did not expect a store unavailable error")
	}

	unavailable := fmt.Errorf("get user: %w", &StoreUnavailableError{Err: errors.New("connection refused")})
	if !IsStoreUnavailable(unavailable) {
		t.Error("Expected StoreUnavailableError to be detected")
	}
}
