package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testConfig() *config {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return &config{logger: logger}
}

func TestSchemaCommand(t *testing.T) {
	cmd := newSchemaCmd(testConfig())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "NODE CREATION ORDER") {
		t.Errorf("Expected schema report, got: %s", out.String())
	}
}

func TestRelationCommandRejectsUnknownRelation(t *testing.T) {
	cmd := newRelationCmd(testConfig())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"hive://gold.s/t", "user@x.com", "likes"})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown relation type") {
		t.Errorf("Expected unknown relation error, got %v", err)
	}
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv("NEO4J_HOST", "graph.local")
	t.Setenv("NEO4J_USER", "")
	t.Setenv("NEO4J_PORT", "")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := &config{user: "admin"}
	cfg.applyEnvironment()

	if cfg.host != "graph.local" {
		t.Errorf("Expected host from environment, got %s", cfg.host)
	}
	if cfg.user != "admin" {
		t.Errorf("Expected flag value to win, got %s", cfg.user)
	}
	if cfg.port != "7687" {
		t.Errorf("Expected default port, got %s", cfg.port)
	}
	if cfg.redisAddr != "localhost:6379" {
		t.Errorf("Expected redis address from environment, got %s", cfg.redisAddr)
	}
}
