// Package seeder writes a dummy metadata catalog into the graph store.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/connector"
	"github.com/vitebski/graph-metadata-proxy/internal/schema"
	"github.com/vitebski/graph-metadata-proxy/internal/statements"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

var (
	databases   = []string{"hive", "presto", "bigquery", "snowflake"}
	clusters    = []string{"gold", "silver", "bronze"}
	columnTypes = []string{"varchar", "bigint", "int", "double", "boolean", "timestamp", "date", "array<string>"}
	statTypes   = []string{"avg", "max", "min", "num_nulls", "distinct_values"}
	sourceTypes = []string{"github", "gitlab", "bitbucket"}
	tagNames    = []string{"pii", "finance", "marketing", "core", "deprecated", "experimental"}
	teams       = []string{"data-platform", "analytics", "growth", "payments"}
)

// Writer opens write transactions against the graph store
type Writer interface {
	WithWriteTransaction(ctx context.Context, fn func(tx connector.Transaction) error) error
}

// Summary reports what a seeding run wrote
type Summary struct {
	Tables        int
	Users         int
	FailedTables  map[string]bool
	LatestUpdated int64
}

// Seeder generates fake catalog entries and writes them table by table
type Seeder struct {
	Writer   Writer
	Faker    faker.Faker
	NumUsers int
	Logger   *logrus.Logger

	order []string
	users []fakeUser
}

type fakeUser struct {
	Email     string
	FirstName string
	LastName  string
	Github    string
	SlackID   string
	Team      string
	Manager   string
}

type fakeColumn struct {
	Name        string
	Type        string
	Description string
	Stats       map[string]string
}

type fakeTable struct {
	Database    string
	Cluster     string
	Schema      string
	Name        string
	IsView      bool
	Description string
	Columns     []fakeColumn
	Tags        []string
	Owners      []string
	Readers     map[string]int
	AppName     string
	Source      string
	SourceType  string
	LastUpdated int64
}

func (t fakeTable) key() string {
	return models.TableKey(t.Database, t.Cluster, t.Schema, t.Name)
}

// NewSeeder creates a seeder. A fixed seed makes the generated catalog
// reproducible.
func NewSeeder(writer Writer, seed int64, numUsers int, logger *logrus.Logger) (*Seeder, error) {
	order, err := schema.CreationOrder()
	if err != nil {
		return nil, err
	}
	if numUsers <= 0 {
		numUsers = 10
	}

	return &Seeder{
		Writer:   writer,
		Faker:    faker.NewWithSeed(rand.NewSource(seed)),
		NumUsers: numUsers,
		Logger:   logger,
		order:    order,
	}, nil
}

// Seed writes numTables fake tables, each in its own transaction, followed
// by the catalog's latest-updated marker
func (s *Seeder) Seed(ctx context.Context, numTables int) (*Summary, error) {
	summary := &Summary{FailedTables: make(map[string]bool)}

	s.users = s.generateUsers()
	err := s.Writer.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		return s.writeUsers(ctx, tx)
	})
	if err != nil {
		s.Logger.Errorf("Error seeding users: %v", err)
		return summary, err
	}
	summary.Users = len(s.users)

	seen := make(map[string]bool)
	for i := 0; i < numTables; i++ {
		table := s.generateTable(i)
		if seen[table.key()] {
			continue
		}
		seen[table.key()] = true

		s.Logger.Infof("Seeding table: %s", table.key())
		err := s.Writer.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
			return s.writeTable(ctx, tx, table)
		})
		if err != nil {
			s.Logger.Errorf("Error seeding table %s: %v", table.key(), err)
			if models.IsStoreUnavailable(err) {
				return summary, err
			}
			summary.FailedTables[table.key()] = true
			continue
		}
		summary.Tables++
		if table.LastUpdated > summary.LatestUpdated {
			summary.LatestUpdated = table.LastUpdated
		}
	}

	latest := fmt.Sprintf("%d", summary.LatestUpdated)
	err = s.Writer.WithWriteTransaction(ctx, func(tx connector.Transaction) error {
		_, err := tx.Run(ctx, statements.SeedUpdatedTimestamp,
			statements.SeedUpdatedTimestamp.Bind(statements.LatestUpdatedKey, latest))
		return err
	})
	if err != nil {
		s.Logger.Errorf("Error writing latest updated timestamp: %v", err)
		return summary, err
	}

	s.Logger.Infof("Seeded %d tables and %d users", summary.Tables, summary.Users)
	return summary, nil
}

func (s *Seeder) generateUsers() []fakeUser {
	users := make([]fakeUser, 0, s.NumUsers)
	emails := make(map[string]bool)

	for len(users) < s.NumUsers {
		first := s.Faker.Person().FirstName()
		last := s.Faker.Person().LastName()
		email := strings.ToLower(fmt.Sprintf("%s.%s@example.com", first, last))
		if emails[email] {
			email = strings.ToLower(fmt.Sprintf("%s.%s%d@example.com", first, last, len(users)))
		}
		emails[email] = true

		user := fakeUser{
			Email:     email,
			FirstName: first,
			LastName:  last,
			Github:    s.Faker.Internet().User(),
			SlackID:   "U" + strings.ToUpper(s.Faker.RandomStringWithLength(8)),
			Team:      s.Faker.RandomStringElement(teams),
		}
		// The first user manages everyone else
		if len(users) > 0 {
			user.Manager = users[0].Email
		}
		users = append(users, user)
	}
	return users
}

func (s *Seeder) writeUsers(ctx context.Context, tx connector.Transaction) error {
	for _, user := range s.users {
		params := statements.SeedUser.Bind(
			user.Email, user.FirstName+" "+user.LastName, user.FirstName, user.LastName,
			"fulltime", true, user.Github, user.SlackID, user.Team,
		)
		if _, err := tx.Run(ctx, statements.SeedUser, params); err != nil {
			return err
		}
	}
	for _, user := range s.users {
		if user.Manager == "" {
			continue
		}
		if _, err := tx.Run(ctx, statements.SeedManager, statements.SeedManager.Bind(user.Email, user.Manager)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) generateTable(i int) fakeTable {
	f := s.Faker
	table := fakeTable{
		Database:    f.RandomStringElement(databases),
		Cluster:     f.RandomStringElement(clusters),
		Schema:      strings.ToLower(f.Lorem().Word()) + "_schema",
		Name:        fmt.Sprintf("%s_%s_%d", strings.ToLower(f.Lorem().Word()), strings.ToLower(f.Lorem().Word()), i),
		IsView:      f.IntBetween(0, 9) == 0,
		Description: f.Lorem().Sentence(8),
		Readers:     make(map[string]int),
		AppName:     f.RandomStringElement([]string{"Airflow", "Dagster", "Spark"}),
		Source:      f.Internet().URL(),
		SourceType:  f.RandomStringElement(sourceTypes),
		LastUpdated: time.Now().Add(-time.Duration(f.IntBetween(0, 30*24)) * time.Hour).Unix(),
	}

	numColumns := f.IntBetween(1, 8)
	usedNames := make(map[string]bool)
	for c := 0; c < numColumns; c++ {
		name := strings.ToLower(f.Lorem().Word())
		if usedNames[name] {
			name = fmt.Sprintf("%s_%d", name, c)
		}
		usedNames[name] = true

		column := fakeColumn{
			Name:        name,
			Type:        f.RandomStringElement(columnTypes),
			Description: f.Lorem().Sentence(5),
			Stats:       make(map[string]string),
		}
		numStats := f.IntBetween(0, 2)
		for st := 0; st < numStats; st++ {
			column.Stats[f.RandomStringElement(statTypes)] = fmt.Sprintf("%d", f.IntBetween(0, 10000))
		}
		table.Columns = append(table.Columns, column)
	}

	numTags := f.IntBetween(0, 2)
	for t := 0; t < numTags; t++ {
		table.Tags = appendUnique(table.Tags, f.RandomStringElement(tagNames))
	}

	if len(s.users) > 0 {
		numOwners := f.IntBetween(1, 2)
		for o := 0; o < numOwners; o++ {
			table.Owners = appendUnique(table.Owners, s.users[f.IntBetween(0, len(s.users)-1)].Email)
		}
		numReaders := f.IntBetween(0, len(s.users))
		for r := 0; r < numReaders; r++ {
			table.Readers[s.users[f.IntBetween(0, len(s.users)-1)].Email] = f.IntBetween(1, 500)
		}
	}
	return table
}

// writeTable writes every part of table, label by label in creation order
func (s *Seeder) writeTable(ctx context.Context, tx connector.Transaction, table fakeTable) error {
	for _, label := range s.order {
		if err := s.writeLabel(ctx, tx, table, label); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) writeLabel(ctx context.Context, tx connector.Transaction, table fakeTable, label string) error {
	dbKey := table.Database
	clusterKey := table.Database + "://" + table.Cluster
	schemaKey := clusterKey + "." + table.Schema
	tblKey := table.key()

	run := func(stmt statements.Statement, values ...interface{}) error {
		_, err := tx.Run(ctx, stmt, stmt.Bind(values...))
		return err
	}

	switch label {
	case schema.LabelDatabase:
		return run(statements.SeedDatabase, dbKey, table.Database)
	case schema.LabelCluster:
		return run(statements.SeedCluster, dbKey, clusterKey, table.Cluster)
	case schema.LabelSchema:
		return run(statements.SeedSchema, clusterKey, schemaKey, table.Schema)
	case schema.LabelTable:
		return run(statements.SeedTable, schemaKey, tblKey, table.Name, table.IsView)
	case schema.LabelColumn:
		for i, column := range table.Columns {
			if err := run(statements.SeedColumn, tblKey, tblKey+"/"+column.Name, column.Name, column.Type, i); err != nil {
				return err
			}
		}
	case schema.LabelStatistics:
		epoch := table.LastUpdated
		for _, column := range table.Columns {
			colKey := tblKey + "/" + column.Name
			for statType, value := range column.Stats {
				statKey := colKey + "/" + statType + "/"
				if err := run(statements.SeedStatistics, colKey, statKey, statType, value, epoch, epoch); err != nil {
					return err
				}
			}
		}
	case schema.LabelDescription:
		descKey := tblKey + "/_description"
		if err := run(statements.UpsertDescription, descKey, table.Description); err != nil {
			return err
		}
		if err := run(statements.AttachTableDescription, descKey, tblKey); err != nil {
			return err
		}
		for _, column := range table.Columns {
			descKey := tblKey + "/" + column.Name + "/_description"
			if err := run(statements.UpsertDescription, descKey, column.Description); err != nil {
				return err
			}
			if err := run(statements.AttachColumnDescription, descKey, tblKey, column.Name); err != nil {
				return err
			}
		}
	case schema.LabelWatermark:
		day := time.Unix(table.LastUpdated, 0).UTC().Format("2006-01-02")
		for _, wmkType := range []string{models.WatermarkHigh, models.WatermarkLow} {
			wmkKey := tblKey + "/" + wmkType + "/"
			if err := run(statements.SeedWatermark, tblKey, wmkKey, "ds", day, day); err != nil {
				return err
			}
		}
	case schema.LabelApplication:
		appID := strings.ToLower(table.AppName) + "/" + table.Name
		return run(statements.SeedApplication, tblKey, "application://"+appID, appID, table.AppName,
			table.AppName+" job generating "+table.Name, s.Faker.Internet().URL())
	case schema.LabelSource:
		return run(statements.SeedSource, tblKey, tblKey+"/_source", table.Source, table.SourceType)
	case schema.LabelTimestamp:
		return run(statements.SeedTimestamp, tblKey, tblKey+"/_last_updated_timestamp", table.LastUpdated)
	case schema.LabelTag:
		for _, tag := range table.Tags {
			if err := run(statements.UpsertTag, tag); err != nil {
				return err
			}
			if err := run(statements.DefaultTagType, tag, models.DefaultTagType); err != nil {
				return err
			}
			if err := run(statements.AttachTag, tag, tblKey); err != nil {
				return err
			}
		}
	case schema.LabelUser:
		own, err := statements.ForRelation(models.RelationOwn)
		if err != nil {
			return err
		}
		for _, owner := range table.Owners {
			if err := run(own.Attach, owner, tblKey); err != nil {
				return err
			}
		}
		for email, count := range table.Readers {
			if err := run(statements.SeedReadCount, email, tblKey, count); err != nil {
				return err
			}
		}
	default:
		s.Logger.Debugf("Nothing to seed for label %s", label)
	}
	return nil
}

func appendUnique(values []string, value string) []string {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	return append(values, value)
}
