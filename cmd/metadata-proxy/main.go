package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vitebski/graph-metadata-proxy/internal/utils"
)

func main() {
	cfg := &config{}

	rootCmd := &cobra.Command{
		Use:   "metadata-proxy",
		Short: "Query and update a metadata catalog stored in a Neo4j graph",
		Long: `Metadata Graph Proxy

A Go tool that reads and writes table metadata (descriptions, owners, tags,
user relations and popularity rankings) in a property graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.logger = utils.SetupLogging(cfg.logLevel)
			utils.LoadEnvironmentVariables(cfg.envFile, cfg.logger)
			cfg.applyEnvironment()
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.host, "host", "H", "", "Neo4j host (default: localhost)")
	flags.StringVarP(&cfg.user, "user", "u", "", "Neo4j user (default: neo4j)")
	flags.StringVarP(&cfg.password, "password", "p", "", "Neo4j password")
	flags.StringVarP(&cfg.database, "database", "d", "", "Neo4j database name (default: server default)")
	flags.StringVarP(&cfg.port, "port", "P", "", "Neo4j Bolt port (default: 7687)")
	flags.StringVar(&cfg.redisAddr, "redis-addr", "", "Redis address for the shared popularity cache (default: in-process cache)")
	flags.StringVarP(&cfg.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&cfg.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&cfg.metricsFile, "metrics-file", "", "Write store and cache metrics to this file in Prometheus text format on exit")

	rootCmd.AddCommand(
		newTableCmd(cfg),
		newTableDescriptionCmd(cfg),
		newColumnDescriptionCmd(cfg),
		newOwnerCmd(cfg),
		newTagCmd(cfg),
		newTagsCmd(cfg),
		newRelationCmd(cfg),
		newUserCmd(cfg),
		newUserTablesCmd(cfg),
		newFrequentCmd(cfg),
		newPopularCmd(cfg),
		newLatestUpdatedCmd(cfg),
		newSeedCmd(cfg),
		newSchemaCmd(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
