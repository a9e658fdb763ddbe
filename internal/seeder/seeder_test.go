package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/graph-metadata-proxy/internal/connector"
	"github.com/vitebski/graph-metadata-proxy/internal/statements"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

type recordedStatement struct {
	name   string
	params map[string]interface{}
}

// fakeWriter records every statement and can fail a chosen transaction
type fakeWriter struct {
	transactions [][]recordedStatement
	failTx       int
	failErr      error
}

func (w *fakeWriter) WithWriteTransaction(ctx context.Context, fn func(tx connector.Transaction) error) error {
	tx := &fakeTx{}
	err := fn(tx)
	w.transactions = append(w.transactions, tx.statements)
	if err == nil && w.failErr != nil && len(w.transactions) == w.failTx {
		err = w.failErr
	}
	return err
}

func (w *fakeWriter) statementNames() []string {
	var names []string
	for _, tx := range w.transactions {
		for _, stmt := range tx {
			names = append(names, stmt.name)
		}
	}
	return names
}

func (w *fakeWriter) tableKeys() []string {
	var keys []string
	for _, tx := range w.transactions {
		for _, stmt := range tx {
			if stmt.name == statements.SeedTable.Name {
				keys = append(keys, stmt.params["tbl_key"].(string))
			}
		}
	}
	return keys
}

type fakeTx struct {
	statements []recordedStatement
}

func (tx *fakeTx) Run(ctx context.Context, stmt statements.Statement, params map[string]interface{}) ([]map[string]interface{}, error) {
	tx.statements = append(tx.statements, recordedStatement{name: stmt.Name, params: params})
	return []map[string]interface{}{{"ok": true}}, nil
}

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestSeed(t *testing.T) {
	writer := &fakeWriter{}
	seeder, err := NewSeeder(writer, 42, 5, createTestLogger())
	require.NoError(t, err)

	summary, err := seeder.Seed(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Tables)
	assert.Equal(t, 5, summary.Users)
	assert.Empty(t, summary.FailedTables)
	assert.Positive(t, summary.LatestUpdated)

	// users, one transaction per table, then the latest-updated marker
	require.Len(t, writer.transactions, 5)
	assert.Len(t, writer.tableKeys(), 3)

	for _, tx := range writer.transactions[1:4] {
		require.NotEmpty(t, tx)
		assert.Equal(t, statements.SeedDatabase.Name, tx[0].name)
		assert.Equal(t, statements.SeedCluster.Name, tx[1].name)
		assert.Equal(t, statements.SeedSchema.Name, tx[2].name)
		assert.Equal(t, statements.SeedTable.Name, tx[3].name)
	}

	last := writer.transactions[4]
	require.Len(t, last, 1)
	assert.Equal(t, statements.SeedUpdatedTimestamp.Name, last[0].name)
	assert.Equal(t, statements.LatestUpdatedKey, last[0].params["key"])
}

func TestSeedWritesEveryLabel(t *testing.T) {
	writer := &fakeWriter{}
	seeder, err := NewSeeder(writer, 7, 3, createTestLogger())
	require.NoError(t, err)

	_, err = seeder.Seed(context.Background(), 10)
	require.NoError(t, err)

	names := writer.statementNames()
	for _, expected := range []string{
		statements.SeedUser.Name,
		statements.SeedManager.Name,
		statements.SeedColumn.Name,
		statements.SeedWatermark.Name,
		statements.SeedApplication.Name,
		statements.SeedSource.Name,
		statements.SeedTimestamp.Name,
		statements.UpsertDescription.Name,
		statements.AttachTableDescription.Name,
		statements.AttachColumnDescription.Name,
		"attach_own",
	} {
		assert.Contains(t, names, expected)
	}
}

func TestSeedIsReproducible(t *testing.T) {
	first := &fakeWriter{}
	second := &fakeWriter{}

	for _, writer := range []*fakeWriter{first, second} {
		seeder, err := NewSeeder(writer, 99, 4, createTestLogger())
		require.NoError(t, err)
		_, err = seeder.Seed(context.Background(), 4)
		require.NoError(t, err)
	}

	assert.Equal(t, first.tableKeys(), second.tableKeys())
}

func TestSeedContinuesAfterTableFailure(t *testing.T) {
	writer := &fakeWriter{failTx: 2, failErr: &models.TransactionError{Err: errors.New("constraint violated")}}
	seeder, err := NewSeeder(writer, 42, 3, createTestLogger())
	require.NoError(t, err)

	summary, err := seeder.Seed(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Tables)
	assert.Len(t, summary.FailedTables, 1)
}

func TestSeedStopsWhenStoreUnavailable(t *testing.T) {
	writer := &fakeWriter{failTx: 2, failErr: &models.StoreUnavailableError{Err: errors.New("connection refused")}}
	seeder, err := NewSeeder(writer, 42, 3, createTestLogger())
	require.NoError(t, err)

	summary, err := seeder.Seed(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, models.IsStoreUnavailable(err))
	assert.Zero(t, summary.Tables)
	assert.Len(t, writer.transactions, 2)
}
