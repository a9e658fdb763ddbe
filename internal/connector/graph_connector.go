package connector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/metrics"
	"github.com/vitebski/graph-metadata-proxy/internal/statements"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

// Transaction runs statements inside an open write transaction
type Transaction interface {
	Run(ctx context.Context, stmt statements.Statement, params map[string]interface{}) ([]map[string]interface{}, error)
}

// GraphConnector handles the graph store connection and statement execution
type GraphConnector struct {
	Scheme   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	Driver   neo4j.DriverWithContext
	Logger   *logrus.Logger
	Metrics  *metrics.Metrics

	mu sync.Mutex
}

// NewGraphConnector creates a new graph connector
func NewGraphConnector(host, user, password, database, port string, logger *logrus.Logger) *GraphConnector {
	if host == "" {
		host = getEnvOrDefault("NEO4J_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("NEO4J_USER", "neo4j")
	}
	if password == "" {
		password = getEnvOrDefault("NEO4J_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("NEO4J_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("NEO4J_PORT", "7687")
	}

	return &GraphConnector{
		Scheme:   getEnvOrDefault("NEO4J_SCHEME", "bolt"),
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// URI returns the Bolt address of the graph store
func (gc *GraphConnector) URI() string {
	return fmt.Sprintf("%s://%s:%s", gc.Scheme, gc.Host, gc.Port)
}

// Connect establishes a connection to the graph store
func (gc *GraphConnector) Connect(ctx context.Context) error {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.connectLocked(ctx)
}

func (gc *GraphConnector) connectLocked(ctx context.Context) error {
	if gc.Driver != nil {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(gc.URI(), neo4j.BasicAuth(gc.User, gc.Password, ""))
	if err != nil {
		gc.Logger.Errorf("Error creating graph driver for %s: %v", gc.URI(), err)
		return &models.StoreUnavailableError{Err: err}
	}

	// Test the connection
	if err := driver.VerifyConnectivity(ctx); err != nil {
		gc.Logger.Errorf("Error reaching graph store at %s: %v", gc.URI(), err)
		_ = driver.Close(ctx)
		return &models.StoreUnavailableError{Err: err}
	}

	gc.Driver = driver
	gc.Logger.Infof("Connected to graph store: %s", gc.URI())
	return nil
}

// Disconnect closes the driver and its connection pool
func (gc *GraphConnector) Disconnect(ctx context.Context) {
	gc.mu.Lock()
	defer gc.mu.Unlock()

	if gc.Driver != nil {
		if err := gc.Driver.Close(ctx); err != nil {
			gc.Logger.Errorf("Error closing graph driver: %v", err)
		} else {
			gc.Logger.Info("Graph store connection closed")
		}
		gc.Driver = nil
	}
}

func (gc *GraphConnector) driver(ctx context.Context) (neo4j.DriverWithContext, error) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	if err := gc.connectLocked(ctx); err != nil {
		return nil, err
	}
	return gc.Driver, nil
}

// ExecuteRead runs a read statement in its own session and returns the
// records as plain maps
func (gc *GraphConnector) ExecuteRead(ctx context.Context, stmt statements.Statement, params map[string]interface{}) ([]map[string]interface{}, error) {
	driver, err := gc.driver(ctx)
	if err != nil {
		return nil, err
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: gc.Database,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			gc.Logger.Warningf("Error closing read session: %v", err)
		}
	}()

	started := time.Now()
	rows, err := collect(ctx, stmt, func() (neo4j.ResultWithContext, error) {
		return session.Run(ctx, stmt.Text, params)
	})
	gc.Metrics.ObserveQuery(stmt.Name, started, err)
	if err != nil {
		gc.Logger.Errorf("Error executing %s: %v", stmt.Name, err)
		return nil, err
	}

	gc.Logger.Debugf("Statement %s returned %d record(s)", stmt.Name, len(rows))
	return rows, nil
}

// WithWriteTransaction runs fn inside one write transaction. The transaction
// commits when fn returns nil and rolls back on any error.
func (gc *GraphConnector) WithWriteTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	driver, err := gc.driver(ctx)
	if err != nil {
		return err
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: gc.Database,
	})
	defer func() {
		if err := session.Close(ctx); err != nil {
			gc.Logger.Warningf("Error closing write session: %v", err)
		}
	}()

	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		gc.Logger.Errorf("Error starting transaction: %v", err)
		return classifyError("begin_transaction", err)
	}

	err = finishTransaction(ctx, tx, fn(&writeTransaction{tx: tx, gc: gc}))
	gc.Metrics.ObserveTransaction(err)
	if err != nil {
		gc.Logger.Errorf("Error in write transaction: %v", err)
	}
	return err
}

type writeTransaction struct {
	tx neo4j.ExplicitTransaction
	gc *GraphConnector
}

func (wt *writeTransaction) Run(ctx context.Context, stmt statements.Statement, params map[string]interface{}) ([]map[string]interface{}, error) {
	started := time.Now()
	rows, err := collect(ctx, stmt, func() (neo4j.ResultWithContext, error) {
		return wt.tx.Run(ctx, stmt.Text, params)
	})
	wt.gc.Metrics.ObserveQuery(stmt.Name, started, err)
	if err != nil {
		wt.gc.Logger.Errorf("Error executing %s: %v", stmt.Name, err)
		return nil, err
	}
	return rows, nil
}

type committer interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// finishTransaction commits when runErr is nil and rolls back otherwise
func finishTransaction(ctx context.Context, tx committer, runErr error) error {
	if runErr != nil {
		if err := tx.Rollback(ctx); err != nil {
			return &models.TransactionError{Err: errors.Join(runErr, classifyError("rollback", err))}
		}
		return &models.TransactionError{Err: runErr}
	}

	if err := tx.Commit(ctx); err != nil {
		return &models.TransactionError{Err: classifyError("commit", err)}
	}
	return nil
}

func collect(ctx context.Context, stmt statements.Statement, run func() (neo4j.ResultWithContext, error)) ([]map[string]interface{}, error) {
	result, err := run()
	if err != nil {
		return nil, classifyError(stmt.Name, err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, classifyError(stmt.Name, err)
	}

	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		row := make(map[string]interface{}, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = toPlain(record.Values[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// toPlain flattens nodes and relationships to their properties so records
// can be decoded without the driver types
func toPlain(value interface{}) interface{} {
	switch v := value.(type) {
	case neo4j.Node:
		return toPlain(v.Props)
	case neo4j.Relationship:
		return toPlain(v.Props)
	case []interface{}:
		list := make([]interface{}, len(v))
		for i, item := range v {
			list[i] = toPlain(item)
		}
		return list
	case map[string]interface{}:
		props := make(map[string]interface{}, len(v))
		for key, item := range v {
			props[key] = toPlain(item)
		}
		return props
	default:
		return v
	}
}

// classifyError maps driver failures onto the proxy error taxonomy
func classifyError(statement string, err error) error {
	if neo4j.IsConnectivityError(err) {
		return &models.StoreUnavailableError{Err: err}
	}
	return &models.QueryError{Statement: statement, Err: err}
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
