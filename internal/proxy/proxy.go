// Package proxy implements the catalog operations on top of the graph store.
package proxy

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/assembler"
	"github.com/vitebski/graph-metadata-proxy/internal/connector"
	"github.com/vitebski/graph-metadata-proxy/internal/popularity"
	"github.com/vitebski/graph-metadata-proxy/internal/statements"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

const (
	// DefaultMinReaders is the reader count a table needs to be ranked as popular
	DefaultMinReaders = 10
	// DefaultReaderLimit caps the readers returned with a table
	DefaultReaderLimit = 5
	// DefaultFrequentLimit caps the tables returned as frequently used by a user
	DefaultFrequentLimit = 50

	tableDescriptionPath  = "/_description"
	columnDescriptionPath = "/%s/_description"
)

// GraphSession is the store access the proxy needs
type GraphSession interface {
	ExecuteRead(ctx context.Context, stmt statements.Statement, params map[string]interface{}) ([]map[string]interface{}, error)
	WithWriteTransaction(ctx context.Context, fn func(tx connector.Transaction) error) error
}

// MetadataProxy translates catalog operations into graph statements
type MetadataProxy struct {
	Session       GraphSession
	Cache         *popularity.Cache
	Logger        *logrus.Logger
	MinReaders    int
	ReaderLimit   int
	FrequentLimit int
}

// Option configures a MetadataProxy
type Option func(*MetadataProxy)

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(p *MetadataProxy) { p.Logger = logger }
}

// WithMinReaders sets how many distinct readers a table needs to be ranked
func WithMinReaders(n int) Option {
	return func(p *MetadataProxy) {
		if n > 0 {
			p.MinReaders = n
		}
	}
}

// WithReaderLimit sets how many top readers GetTable returns
func WithReaderLimit(n int) Option {
	return func(p *MetadataProxy) {
		if n > 0 {
			p.ReaderLimit = n
		}
	}
}

// WithFrequentLimit sets how many tables GetFrequentlyUsedTables returns
func WithFrequentLimit(n int) Option {
	return func(p *MetadataProxy) {
		if n > 0 {
			p.FrequentLimit = n
		}
	}
}

// New creates a proxy over session. A nil cache gets an in-memory one with
// the default size and window.
func New(session GraphSession, cache *popularity.Cache, opts ...Option) *MetadataProxy {
	p := &MetadataProxy{
		Session:       session,
		Cache:         cache,
		Logger:        logrus.StandardLogger(),
		MinReaders:    DefaultMinReaders,
		ReaderLimit:   DefaultReaderLimit,
		FrequentLimit: DefaultFrequentLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.Cache == nil {
		p.Cache = popularity.NewCache(popularity.NewMemoryStore(), 0, 0, p.Logger)
	}
	return p
}

// GetTable returns the full description of the table at tableURI
func (p *MetadataProxy) GetTable(ctx context.Context, tableURI string) (*models.Table, error) {
	if err := requireKey("table uri", tableURI); err != nil {
		return nil, p.fail("get table", tableURI, err)
	}

	columns, err := p.Session.ExecuteRead(ctx, statements.TableColumns, statements.TableColumns.Bind(tableURI))
	if err != nil {
		return nil, p.fail("get table", tableURI, err)
	}
	if len(columns) == 0 {
		return nil, p.fail("get table", tableURI, models.ErrNotFound("table %s not found", tableURI))
	}

	readers, err := p.Session.ExecuteRead(ctx, statements.TableReaders, statements.TableReaders.Bind(tableURI, p.ReaderLimit))
	if err != nil {
		return nil, p.fail("get table", tableURI, err)
	}

	tableLevel, err := p.Session.ExecuteRead(ctx, statements.TableLevel, statements.TableLevel.Bind(tableURI))
	if err != nil {
		return nil, p.fail("get table", tableURI, err)
	}
	var tableLevelRecord map[string]interface{}
	if len(tableLevel) > 0 {
		tableLevelRecord = tableLevel[0]
	}

	table, err := assembler.AssembleTable(columns, readers, tableLevelRecord)
	if err != nil {
		return nil, p.fail("get table", tableURI, err)
	}
	return table, nil
}

// GetTableDescription returns the table's description, or nil when none is
// attached
func (p *MetadataProxy) GetTableDescription(ctx context.Context, tableURI string) (*string, error) {
	if err := requireKey("table uri", tableURI); err != nil {
		return nil, p.fail("get table description", tableURI, err)
	}

	records, err := p.Session.ExecuteRead(ctx, statements.TableDescription, statements.TableDescription.Bind(tableURI))
	if err != nil {
		return nil, p.fail("get table description", tableURI, err)
	}
	description, err := assembler.AssembleDescription(statements.TableDescription.Name, records)
	if err != nil {
		return nil, p.fail("get table description", tableURI, err)
	}
	return description, nil
}

// PutTableDescription replaces the table's description
func (p *MetadataProxy) PutTableDescription(ctx context.Context, tableURI, description string) error {
	if err := requireKey("table uri", tableURI); err != nil {
		return p.fail("put table description", tableURI, err)
	}

	descKey := tableURI + tableDescriptionPath
	err := p.Session.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		if _, err := tx.Run(ctx, statements.UpsertDescription, statements.UpsertDescription.Bind(descKey, description)); err != nil {
			return err
		}
		return attach(ctx, tx, statements.AttachTableDescription,
			statements.AttachTableDescription.Bind(descKey, tableURI), "table %s not found", tableURI)
	})
	if err != nil {
		return p.fail("put table description", tableURI, err)
	}
	return nil
}

// GetColumnDescription returns the column's description, or nil when none is
// attached
func (p *MetadataProxy) GetColumnDescription(ctx context.Context, tableURI, columnName string) (*string, error) {
	key := tableURI + "/" + columnName
	if err := requireKey("table uri", tableURI); err != nil {
		return nil, p.fail("get column description", key, err)
	}
	if err := requireKey("column name", columnName); err != nil {
		return nil, p.fail("get column description", key, err)
	}

	records, err := p.Session.ExecuteRead(ctx, statements.ColumnDescription, statements.ColumnDescription.Bind(tableURI, columnName))
	if err != nil {
		return nil, p.fail("get column description", key, err)
	}
	description, err := assembler.AssembleDescription(statements.ColumnDescription.Name, records)
	if err != nil {
		return nil, p.fail("get column description", key, err)
	}
	return description, nil
}

// PutColumnDescription replaces the column's description
func (p *MetadataProxy) PutColumnDescription(ctx context.Context, tableURI, columnName, description string) error {
	key := tableURI + "/" + columnName
	if err := requireKey("table uri", tableURI); err != nil {
		return p.fail("put column description", key, err)
	}
	if err := requireKey("column name", columnName); err != nil {
		return p.fail("put column description", key, err)
	}

	descKey := tableURI + fmt.Sprintf(columnDescriptionPath, columnName)
	err := p.Session.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		if _, err := tx.Run(ctx, statements.UpsertDescription, statements.UpsertDescription.Bind(descKey, description)); err != nil {
			return err
		}
		return attach(ctx, tx, statements.AttachColumnDescription,
			statements.AttachColumnDescription.Bind(descKey, tableURI, columnName), "column %s not found", key)
	})
	if err != nil {
		return p.fail("put column description", key, err)
	}
	return nil
}

// AddOwner makes owner an owner of the table
func (p *MetadataProxy) AddOwner(ctx context.Context, tableURI, owner string) error {
	if err := p.addRelation(ctx, tableURI, owner, models.RelationOwn); err != nil {
		return p.fail("add owner", tableURI, err)
	}
	return nil
}

// DeleteOwner removes owner from the table's owners. Removing an absent
// owner succeeds.
func (p *MetadataProxy) DeleteOwner(ctx context.Context, tableURI, owner string) error {
	if err := p.deleteRelation(ctx, tableURI, owner, models.RelationOwn); err != nil {
		return p.fail("delete owner", tableURI, err)
	}
	return nil
}

// AddTag tags the table, creating the tag with the default type when needed
func (p *MetadataProxy) AddTag(ctx context.Context, tableURI, tag string) error {
	if err := requireKey("table uri", tableURI); err != nil {
		return p.fail("add tag", tableURI, err)
	}
	if err := requireKey("tag", tag); err != nil {
		return p.fail("add tag", tableURI, err)
	}

	err := p.Session.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		if _, err := tx.Run(ctx, statements.UpsertTag, statements.UpsertTag.Bind(tag)); err != nil {
			return err
		}
		if _, err := tx.Run(ctx, statements.DefaultTagType, statements.DefaultTagType.Bind(tag, models.DefaultTagType)); err != nil {
			return err
		}
		return attach(ctx, tx, statements.AttachTag, statements.AttachTag.Bind(tag, tableURI), "table %s not found", tableURI)
	})
	if err != nil {
		return p.fail("add tag", tableURI, err)
	}
	return nil
}

// DeleteTag removes tag from the table. Removing an absent tag succeeds.
func (p *MetadataProxy) DeleteTag(ctx context.Context, tableURI, tag string) error {
	if err := requireKey("table uri", tableURI); err != nil {
		return p.fail("delete tag", tableURI, err)
	}
	if err := requireKey("tag", tag); err != nil {
		return p.fail("delete tag", tableURI, err)
	}

	err := p.Session.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		_, err := tx.Run(ctx, statements.DetachTag, statements.DetachTag.Bind(tag, tableURI))
		return err
	})
	if err != nil {
		return p.fail("delete tag", tableURI, err)
	}
	return nil
}

// AddTableRelationByUser links the user and the table with rel
func (p *MetadataProxy) AddTableRelationByUser(ctx context.Context, tableURI, userEmail string, rel models.UserResourceRel) error {
	if err := p.addRelation(ctx, tableURI, userEmail, rel); err != nil {
		return p.fail("add "+rel.String()+" relation", tableURI, err)
	}
	return nil
}

// DeleteTableRelationByUser removes the rel link between the user and the
// table. Removing an absent link succeeds.
func (p *MetadataProxy) DeleteTableRelationByUser(ctx context.Context, tableURI, userEmail string, rel models.UserResourceRel) error {
	if err := p.deleteRelation(ctx, tableURI, userEmail, rel); err != nil {
		return p.fail("delete "+rel.String()+" relation", tableURI, err)
	}
	return nil
}

func (p *MetadataProxy) addRelation(ctx context.Context, tableURI, userEmail string, rel models.UserResourceRel) error {
	set, err := relationStatements(tableURI, userEmail, rel)
	if err != nil {
		return err
	}

	return p.Session.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		if _, err := tx.Run(ctx, statements.UpsertUser, statements.UpsertUser.Bind(userEmail)); err != nil {
			return err
		}
		return attach(ctx, tx, set.Attach, set.Attach.Bind(userEmail, tableURI), "table %s not found", tableURI)
	})
}

func (p *MetadataProxy) deleteRelation(ctx context.Context, tableURI, userEmail string, rel models.UserResourceRel) error {
	set, err := relationStatements(tableURI, userEmail, rel)
	if err != nil {
		return err
	}

	return p.Session.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		_, err := tx.Run(ctx, set.Detach, set.Detach.Bind(userEmail, tableURI))
		return err
	})
}

func relationStatements(tableURI, userEmail string, rel models.UserResourceRel) (statements.RelationSet, error) {
	if err := requireKey("table uri", tableURI); err != nil {
		return statements.RelationSet{}, err
	}
	if err := requireKey("user", userEmail); err != nil {
		return statements.RelationSet{}, err
	}
	return statements.ForRelation(rel)
}

// GetTags returns every tag in use with the number of tables carrying it
func (p *MetadataProxy) GetTags(ctx context.Context) ([]models.TagDetail, error) {
	records, err := p.Session.ExecuteRead(ctx, statements.TagCounts, nil)
	if err != nil {
		return nil, p.fail("get tags", "", err)
	}
	details, err := assembler.AssembleTagDetails(records)
	if err != nil {
		return nil, p.fail("get tags", "", err)
	}
	return details, nil
}

// GetPopularTables returns up to numEntries tables in ranking order. The
// ranking itself comes from the popularity cache.
func (p *MetadataProxy) GetPopularTables(ctx context.Context, numEntries int) ([]models.PopularTable, error) {
	key := fmt.Sprintf("%d", numEntries)
	if numEntries < 0 {
		return nil, p.fail("get popular tables", key, models.ErrValidation("number of entries must not be negative"))
	}

	keys, err := p.Cache.GetOrCompute(ctx, numEntries, p.rankPopularTables)
	if err != nil {
		return nil, p.fail("get popular tables", key, err)
	}
	if len(keys) == 0 {
		return []models.PopularTable{}, nil
	}

	records, err := p.Session.ExecuteRead(ctx, statements.PopularTableDetails, statements.PopularTableDetails.Bind(keys))
	if err != nil {
		return nil, p.fail("get popular tables", key, err)
	}
	tables, err := assembler.AssemblePopularTables(records, keys)
	if err != nil {
		return nil, p.fail("get popular tables", key, err)
	}
	return tables, nil
}

func (p *MetadataProxy) rankPopularTables(ctx context.Context, size int) ([]string, error) {
	records, err := p.Session.ExecuteRead(ctx, statements.PopularTableRanking,
		statements.PopularTableRanking.Bind(p.MinReaders, size))
	if err != nil {
		return nil, err
	}
	return assembler.AssembleRankedKeys(records)
}

// InvalidatePopularTables drops the cached ranking
func (p *MetadataProxy) InvalidatePopularTables(ctx context.Context) error {
	if err := p.Cache.Invalidate(ctx); err != nil {
		return p.fail("invalidate popular tables", "", err)
	}
	return nil
}

// GetUserDetail returns the user with the given email
func (p *MetadataProxy) GetUserDetail(ctx context.Context, userEmail string) (*models.User, error) {
	if err := requireKey("user", userEmail); err != nil {
		return nil, p.fail("get user", userEmail, err)
	}

	records, err := p.Session.ExecuteRead(ctx, statements.UserDetail, statements.UserDetail.Bind(userEmail))
	if err != nil {
		return nil, p.fail("get user", userEmail, err)
	}
	user, err := assembler.AssembleUser(records)
	if err != nil {
		return nil, p.fail("get user", userEmail, err)
	}
	return user, nil
}

// GetTablesByUserRelation returns the tables linked to the user by rel,
// grouped by resource kind
func (p *MetadataProxy) GetTablesByUserRelation(ctx context.Context, userEmail string, rel models.UserResourceRel) (map[string][]models.PopularTable, error) {
	op := "get tables by " + rel.String() + " relation"
	if err := requireKey("user", userEmail); err != nil {
		return nil, p.fail(op, userEmail, err)
	}
	set, err := statements.ForRelation(rel)
	if err != nil {
		return nil, p.fail(op, userEmail, err)
	}

	return p.userTables(ctx, op, userEmail, set.Tables, set.Tables.Bind(userEmail))
}

// GetFrequentlyUsedTables returns the tables the user reads most, grouped by
// resource kind
func (p *MetadataProxy) GetFrequentlyUsedTables(ctx context.Context, userEmail string) (map[string][]models.PopularTable, error) {
	op := "get frequently used tables"
	if err := requireKey("user", userEmail); err != nil {
		return nil, p.fail(op, userEmail, err)
	}

	return p.userTables(ctx, op, userEmail, statements.FrequentlyUsedTables,
		statements.FrequentlyUsedTables.Bind(userEmail, p.FrequentLimit))
}

func (p *MetadataProxy) userTables(ctx context.Context, op, userEmail string, stmt statements.Statement, params map[string]interface{}) (map[string][]models.PopularTable, error) {
	records, err := p.Session.ExecuteRead(ctx, stmt, params)
	if err != nil {
		return nil, p.fail(op, userEmail, err)
	}
	tables, err := assembler.AssembleResourceRelation(stmt.Name, records)
	if err != nil {
		return nil, p.fail(op, userEmail, err)
	}
	return map[string][]models.PopularTable{models.ResourceTable: tables}, nil
}

// GetLatestUpdatedTimestamp returns the catalog's last ingestion time: the
// stored value, 0 when the marker exists without a value, or nil when there
// is no marker
func (p *MetadataProxy) GetLatestUpdatedTimestamp(ctx context.Context) (*int64, error) {
	records, err := p.Session.ExecuteRead(ctx, statements.LatestUpdatedTimestamp,
		statements.LatestUpdatedTimestamp.Bind(statements.LatestUpdatedKey))
	if err != nil {
		return nil, p.fail("get latest updated timestamp", "", err)
	}
	ts, err := assembler.AssembleLatestTimestamp(records)
	if err != nil {
		return nil, p.fail("get latest updated timestamp", "", err)
	}
	return ts, nil
}

// attach runs a statement that must match its endpoints. No returned row
// aborts the transaction with a NotFoundError.
func attach(ctx context.Context, tx connector.Transaction, stmt statements.Statement, params map[string]interface{}, format string, args ...interface{}) error {
	records, err := tx.Run(ctx, stmt, params)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return models.ErrNotFound(format, args...)
	}
	return nil
}

func requireKey(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return models.ErrValidation("%s must not be empty", name)
	}
	return nil
}

// fail logs err and wraps it with the operation and key
func (p *MetadataProxy) fail(op, key string, err error) error {
	if key != "" {
		op = op + " " + key
	}
	if models.IsNotFound(err) {
		p.Logger.Debugf("%s: %v", op, err)
	} else {
		p.Logger.Errorf("Error during %s: %v", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
