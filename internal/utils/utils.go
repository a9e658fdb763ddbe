package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/graph-metadata-proxy/internal/schema"
	"github.com/vitebski/graph-metadata-proxy/internal/seeder"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("METADATA_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stderr)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Debugf("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	requiredVars := []string{"NEO4J_HOST", "NEO4J_USER", "NEO4J_PASSWORD"}
	var missingVars []string

	for _, v := range requiredVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Warningf("Missing required environment variables: %s", strings.Join(missingVars, ", "))
		logger.Info("These can be provided via command line arguments, environment variables, or a .env file")
		return false
	}

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if !strings.HasPrefix(env, "NEO4J_") && !strings.HasPrefix(env, "POPULAR_TABLES_") && !strings.HasPrefix(env, "REDIS_") {
				continue
			}
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			if strings.HasSuffix(parts[0], "PASSWORD") {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return true
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// ValidateConnectionParams validates graph store connection parameters
func ValidateConnectionParams(host, user, password, port string, logger *logrus.Logger) bool {
	if host == "" {
		logger.Error("Graph store host is required")
		return false
	}

	if user == "" {
		logger.Error("Graph store user is required")
		return false
	}

	if password == "" { // Empty password is allowed
		logger.Warning("Graph store password is empty")
	}

	if _, err := strconv.Atoi(port); err != nil {
		logger.Errorf("Invalid port number: %s", port)
		return false
	}

	return true
}

// PrintTable prints the full description of a table
func PrintTable(w io.Writer, table *models.Table) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintf(w, "TABLE %s\n", table.Key())
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintf(w, "Description: %s\n", table.Description)
	fmt.Fprintf(w, "View: %t\n", table.IsView)
	if table.LastUpdatedTimestamp != nil {
		fmt.Fprintf(w, "Last updated: %d\n", *table.LastUpdatedTimestamp)
	}
	if table.TableWriter != nil {
		fmt.Fprintf(w, "Writer: %s (%s)\n", table.TableWriter.Name, table.TableWriter.ID)
	}
	if table.Source != nil {
		fmt.Fprintf(w, "Source: %s (%s)\n", table.Source.Source, table.Source.SourceType)
	}

	fmt.Fprintf(w, "\nCOLUMNS (%d)\n", len(table.Columns))
	for _, column := range table.Columns {
		fmt.Fprintf(w, "  %3d. %s %s", column.SortOrder, column.Name, column.ColType)
		if column.Description != "" {
			fmt.Fprintf(w, " - %s", column.Description)
		}
		fmt.Fprintln(w)
		for _, stat := range column.Stats {
			fmt.Fprintf(w, "       %s = %s [%d, %d]\n", stat.StatType, stat.StatVal, stat.StartEpoch, stat.EndEpoch)
		}
	}

	if len(table.Watermarks) > 0 {
		fmt.Fprintln(w, "\nWATERMARKS")
		for _, wmk := range table.Watermarks {
			fmt.Fprintf(w, "  %s: %s=%s\n", wmk.WatermarkType, wmk.PartitionKey, wmk.PartitionValue)
		}
	}

	printUsers(w, "OWNERS", table.Owners)
	printUsers(w, "TOP READERS", table.TableReaders)

	if len(table.Tags) > 0 {
		var tags []string
		for _, tag := range table.Tags {
			tags = append(tags, tag.TagName)
		}
		fmt.Fprintf(w, "\nTags: %s\n", strings.Join(tags, ", "))
	}

	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func printUsers(w io.Writer, title string, users []models.User) {
	if len(users) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	for _, user := range users {
		if user.FullName != "" {
			fmt.Fprintf(w, "  - %s (%s)\n", user.Email, user.FullName)
		} else {
			fmt.Fprintf(w, "  - %s\n", user.Email)
		}
	}
}

// PrintPopularTables prints tables in the given order
func PrintPopularTables(w io.Writer, title string, tables []models.PopularTable) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, strings.ToUpper(title))
	fmt.Fprintln(w, strings.Repeat("=", 50))

	if len(tables) == 0 {
		fmt.Fprintln(w, "No tables found")
	}
	for i, table := range tables {
		fmt.Fprintf(w, "%3d. %s", i+1, table.Key())
		if table.Description != nil && *table.Description != "" {
			fmt.Fprintf(w, " - %s", *table.Description)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintTagDetails prints tags with their usage counts
func PrintTagDetails(w io.Writer, tags []models.TagDetail) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "TAGS")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	for _, tag := range tags {
		fmt.Fprintf(w, "  %-30s %d\n", tag.TagName, tag.TagCount)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintUser prints a user profile
func PrintUser(w io.Writer, user *models.User) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintf(w, "USER %s\n", user.Email)
	fmt.Fprintln(w, strings.Repeat("=", 50))

	fmt.Fprintf(w, "Name: %s\n", user.FullName)
	fmt.Fprintf(w, "Active: %t\n", user.IsActive)
	if user.TeamName != "" {
		fmt.Fprintf(w, "Team: %s\n", user.TeamName)
	}
	if user.EmployeeType != "" {
		fmt.Fprintf(w, "Employee type: %s\n", user.EmployeeType)
	}
	if user.GithubUsername != "" {
		fmt.Fprintf(w, "GitHub: %s\n", user.GithubUsername)
	}
	if user.SlackID != "" {
		fmt.Fprintf(w, "Slack: %s\n", user.SlackID)
	}
	if user.ManagerFullName != nil {
		fmt.Fprintf(w, "Manager: %s\n", *user.ManagerFullName)
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintSeedSummary prints a summary of the seeding run
func PrintSeedSummary(w io.Writer, summary *seeder.Summary) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "CATALOG SEEDING SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Users written: %d\n", summary.Users)
	fmt.Fprintf(w, "Tables written: %d\n", summary.Tables)
	fmt.Fprintf(w, "Failed tables: %d\n", len(summary.FailedTables))
	fmt.Fprintf(w, "Latest updated timestamp: %d\n", summary.LatestUpdated)

	if len(summary.FailedTables) > 0 {
		var failed []string
		for table := range summary.FailedTables {
			failed = append(failed, table)
		}
		sort.Strings(failed)

		fmt.Fprintln(w, "\nFailed tables:")
		for _, table := range failed {
			fmt.Fprintf(w, "  - %s\n", table)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintSchema prints the graph labels in creation order and the edges
// between them
func PrintSchema(w io.Writer, order []string) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "METADATA GRAPH SCHEMA")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "\n1. NODE CREATION ORDER")
	for i, label := range order {
		fmt.Fprintf(w, "   %3d. %s\n", i+1, label)
	}

	fmt.Fprintln(w, "\n2. EDGES")
	for _, edge := range schema.Edges {
		fmt.Fprintf(w, "   (%s)-[:%s]->(%s)  (%s)-[:%s]->(%s)\n",
			edge.From, edge.Label, edge.To, edge.To, edge.Reverse, edge.From)
	}

	fmt.Fprintln(w, "\n3. USER RELATIONS")
	for _, rel := range models.UserResourceRels() {
		forward, reverse, err := schema.RelationEdge(rel)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "   %-8s (User)-[:%s]->(Table)  (Table)-[:%s]->(User)\n", rel, forward, reverse)
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
}
