package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitebski/graph-metadata-proxy/internal/schema"
	"github.com/vitebski/graph-metadata-proxy/internal/seeder"
	"github.com/vitebski/graph-metadata-proxy/internal/utils"
	"github.com/vitebski/graph-metadata-proxy/pkg/models"
)

func newTableCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "table <table-uri>",
		Short: "Show the full description of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				table, err := a.proxy.GetTable(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				utils.PrintTable(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newTableDescriptionCmd(cfg *config) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "table-description <table-uri>",
		Short: "Show or replace a table description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				if cmd.Flags().Changed("set") {
					if err := a.proxy.PutTableDescription(cmd.Context(), args[0], set); err != nil {
						return err
					}
					cfg.logger.Infof("Updated description of %s", args[0])
					return nil
				}

				description, err := a.proxy.GetTableDescription(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printOptional(cmd, description)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&set, "set", "s", "", "New description")
	return cmd
}

func newColumnDescriptionCmd(cfg *config) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "column-description <table-uri> <column>",
		Short: "Show or replace a column description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				if cmd.Flags().Changed("set") {
					if err := a.proxy.PutColumnDescription(cmd.Context(), args[0], args[1], set); err != nil {
						return err
					}
					cfg.logger.Infof("Updated description of %s/%s", args[0], args[1])
					return nil
				}

				description, err := a.proxy.GetColumnDescription(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				printOptional(cmd, description)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&set, "set", "s", "", "New description")
	return cmd
}

func newOwnerCmd(cfg *config) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "owner <table-uri> <email>",
		Short: "Add or remove a table owner",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				if remove {
					return a.proxy.DeleteOwner(cmd.Context(), args[0], args[1])
				}
				return a.proxy.AddOwner(cmd.Context(), args[0], args[1])
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the owner instead of adding it")
	return cmd
}

func newTagCmd(cfg *config) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "tag <table-uri> <tag>",
		Short: "Add or remove a table tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				if remove {
					return a.proxy.DeleteTag(cmd.Context(), args[0], args[1])
				}
				return a.proxy.AddTag(cmd.Context(), args[0], args[1])
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the tag instead of adding it")
	return cmd
}

func newTagsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with the number of tables carrying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				tags, err := a.proxy.GetTags(cmd.Context())
				if err != nil {
					return err
				}
				utils.PrintTagDetails(cmd.OutOrStdout(), tags)
				return nil
			})
		},
	}
}

func newRelationCmd(cfg *config) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "relation <table-uri> <email> <follow|own|read>",
		Short: "Add or remove a relation between a user and a table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := models.ParseUserResourceRel(args[2])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(a *app) error {
				if remove {
					return a.proxy.DeleteTableRelationByUser(cmd.Context(), args[0], args[1], rel)
				}
				return a.proxy.AddTableRelationByUser(cmd.Context(), args[0], args[1], rel)
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the relation instead of adding it")
	return cmd
}

func newUserCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "user <email>",
		Short: "Show a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				user, err := a.proxy.GetUserDetail(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				utils.PrintUser(cmd.OutOrStdout(), user)
				return nil
			})
		},
	}
}

func newUserTablesCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "user-tables <email> <follow|own|read>",
		Short: "List the tables related to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := models.ParseUserResourceRel(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, func(a *app) error {
				resources, err := a.proxy.GetTablesByUserRelation(cmd.Context(), args[0], rel)
				if err != nil {
					return err
				}
				title := fmt.Sprintf("Tables %s %s", args[0], rel)
				utils.PrintPopularTables(cmd.OutOrStdout(), title, resources[models.ResourceTable])
				return nil
			})
		},
	}
}

func newFrequentCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "frequent <email>",
		Short: "List the tables a user reads most",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				resources, err := a.proxy.GetFrequentlyUsedTables(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				utils.PrintPopularTables(cmd.OutOrStdout(), "Frequently used tables", resources[models.ResourceTable])
				return nil
			})
		},
	}
}

func newPopularCmd(cfg *config) *cobra.Command {
	var (
		numEntries int
		invalidate bool
	)

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List the most popular tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				if invalidate {
					if err := a.proxy.InvalidatePopularTables(cmd.Context()); err != nil {
						return err
					}
				}
				tables, err := a.proxy.GetPopularTables(cmd.Context(), numEntries)
				if err != nil {
					return err
				}
				utils.PrintPopularTables(cmd.OutOrStdout(), "Popular tables", tables)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&numEntries, "num", "n", 10, "Number of tables to list")
	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "Recompute the ranking instead of using the cached one")
	return cmd
}

func newLatestUpdatedCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "latest-updated",
		Short: "Show when the catalog was last updated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				ts, err := a.proxy.GetLatestUpdatedTimestamp(cmd.Context())
				if err != nil {
					return err
				}
				if ts == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No update recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), *ts)
				return nil
			})
		},
	}
}

func newSeedCmd(cfg *config) *cobra.Command {
	var (
		tables int
		users  int
		seed   int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the graph with a dummy catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), cfg, func(a *app) error {
				s, err := seeder.NewSeeder(a.conn, seed, users, cfg.logger)
				if err != nil {
					return err
				}

				cfg.logger.Info("Starting catalog seeding...")
				summary, err := s.Seed(cmd.Context(), tables)
				utils.PrintSeedSummary(cmd.OutOrStdout(), summary)
				if err != nil {
					return err
				}
				if len(summary.FailedTables) > 0 {
					return fmt.Errorf("%d tables failed to seed", len(summary.FailedTables))
				}
				return a.proxy.InvalidatePopularTables(cmd.Context())
			})
		},
	}
	cmd.Flags().IntVarP(&tables, "tables", "t", 10, "Number of tables to generate")
	cmd.Flags().IntVar(&users, "users", 10, "Number of users to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for the generated catalog")
	return cmd
}

func newSchemaCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the graph labels, edges and creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := schema.CreationOrder()
			if err != nil {
				cfg.logger.Errorf("Failed to order graph labels: %v", err)
				return err
			}
			utils.PrintSchema(cmd.OutOrStdout(), order)
			return nil
		},
	}
}

func printOptional(cmd *cobra.Command, value *string) {
	if value == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No description")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), *value)
}
