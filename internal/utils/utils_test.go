package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/schema"
	"github.com/vitebski/graph-metadata-proxy/internal/seeder"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

func TestSetupLogging(t *testing.T) {
	// Test with default log level
	t.Setenv("METADATA_LOG_LEVEL", "")
	logger := SetupLogging("")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info, got %s", logger.Level)
	}

	t.Setenv("METADATA_LOG_LEVEL", "warn")
	logger = SetupLogging("")
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level from environment to be warn, got %s", logger.Level)
	}

	logger = SetupLogging("debug")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("error")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level to be error, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	t.Setenv("NEO4J_HOST", "")
	t.Setenv("NEO4J_USER", "")
	t.Setenv("NEO4J_PASSWORD", "")

	envFile := filepath.Join(t.TempDir(), ".env")
	if LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected loading to report missing variables")
	}

	content := "NEO4J_HOST=graph.local\nNEO4J_USER=neo4j\nNEO4J_PASSWORD=secret\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	// godotenv does not override variables that are already set
	os.Unsetenv("NEO4J_HOST")
	os.Unsetenv("NEO4J_USER")
	os.Unsetenv("NEO4J_PASSWORD")

	if !LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected loading to succeed with a complete env file")
	}
	if os.Getenv("NEO4J_HOST") != "graph.local" {
		t.Errorf("Expected NEO4J_HOST from env file, got %q", os.Getenv("NEO4J_HOST"))
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	value := GetEnvInt("TEST_ENV_INT", 10)
	if value != 42 {
		t.Errorf("Expected value to be 42, got %d", value)
	}

	t.Setenv("TEST_ENV_INT", "")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default), got %d", value)
	}

	t.Setenv("TEST_ENV_INT", "not-an-int")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default) for invalid input, got %d", value)
	}
}

func TestValidateConnectionParams(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	if !ValidateConnectionParams("localhost", "neo4j", "password", "7687", logger) {
		t.Error("Expected validation to pass with valid parameters")
	}

	if ValidateConnectionParams("", "neo4j", "password", "7687", logger) {
		t.Error("Expected validation to fail with missing host")
	}

	if ValidateConnectionParams("localhost", "", "password", "7687", logger) {
		t.Error("Expected validation to fail with missing user")
	}

	if ValidateConnectionParams("localhost", "neo4j", "password", "not-a-port", logger) {
		t.Error("Expected validation to fail with invalid port")
	}

	// Empty password is allowed
	if !ValidateConnectionParams("localhost", "neo4j", "", "7687", logger) {
		t.Error("Expected validation to pass with empty password")
	}
}

func TestPrintTable(t *testing.T) {
	lastUpdated := int64(1)
	table := &models.Table{
		Database: "hive",
		Cluster:  "gold",
		Schema:   "foo_schema",
		Name:     "foo_table",
		Columns: []models.Column{
			{Name: "bar_id_1", ColType: "varchar", Stats: []models.Statistics{{StatType: "avg", StatVal: "1"}}},
		},
		Watermarks:           []models.Watermark{{WatermarkType: models.WatermarkHigh, PartitionKey: "ds", PartitionValue: "fake_value"}},
		Owners:               []models.User{{Email: "tester@x.com"}},
		Tags:                 []models.Tag{{TagName: "test", TagType: "default"}},
		TableWriter:          &models.Application{Name: "Airflow", ID: "dag/task_id"},
		LastUpdatedTimestamp: &lastUpdated,
	}

	var buf bytes.Buffer
	PrintTable(&buf, table)
	output := buf.String()

	for _, expected := range []string{"hive://gold.foo_schema/foo_table", "bar_id_1 varchar", "avg = 1", "high_watermark: ds=fake_value", "tester@x.com", "Tags: test", "Writer: Airflow"} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected output to contain %q", expected)
		}
	}
}

func TestPrintPopularTables(t *testing.T) {
	description := "popular"
	var buf bytes.Buffer
	PrintPopularTables(&buf, "Popular tables", []models.PopularTable{
		{Database: "db", Cluster: "c", Schema: "s", Name: "t", Description: &description},
	})

	if !strings.Contains(buf.String(), "1. db://c.s/t - popular") {
		t.Errorf("Unexpected output: %s", buf.String())
	}

	buf.Reset()
	PrintPopularTables(&buf, "Popular tables", nil)
	if !strings.Contains(buf.String(), "No tables found") {
		t.Errorf("Expected empty message, got: %s", buf.String())
	}
}

func TestPrintSeedSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSeedSummary(&buf, &seeder.Summary{
		Tables:       2,
		Users:        5,
		FailedTables: map[string]bool{"db://c.s/broken": true},
	})

	output := buf.String()
	if !strings.Contains(output, "Tables written: 2") {
		t.Errorf("Expected table count in output: %s", output)
	}
	if !strings.Contains(output, "- db://c.s/broken") {
		t.Errorf("Expected failed table in output: %s", output)
	}
}

func TestPrintSchema(t *testing.T) {
	order, err := schema.CreationOrder()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var buf bytes.Buffer
	PrintSchema(&buf, order)
	output := buf.String()

	if !strings.Contains(output, "(Table)-[:COLUMN]->(Column)") {
		t.Errorf("Expected column edge in output: %s", output)
	}
	if !strings.Contains(output, "(User)-[:FOLLOW]->(Table)") {
		t.Errorf("Expected follow relation in output: %s", output)
	}
}
