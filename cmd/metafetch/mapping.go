package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adeilh/metafetch/db/sql/postgres"
	"github.com/adeilh/metafetch/db/sql/sqlite"
	"github.com/adeilh/metafetch/internal/config"
	"github.com/adeilh/metafetch/kitsu"
	"github.com/adeilh/metafetch/mapping"
)

type mappingStore interface {
	Get(ctx context.Context, externalID string) (string, error)
	UpsertMany(ctx context.Context, pairs map[string]string) (int, error)
	Close() error
}

func newMappingCommand(ctx *commandContext) *cobra.Command {
	mappingCmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage the Kitsu to IMDB mapping table",
	}
	mappingCmd.AddCommand(newMappingImportCommand(ctx))
	mappingCmd.AddCommand(newMappingGetCommand(ctx))
	return mappingCmd
}

func newMappingImportCommand(ctx *commandContext) *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON or YAML mapping file into the mapping database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			pairs, err := mapping.File{Path: path}.Load(cmd.Context())
			if err != nil {
				return err
			}

			store, driverName, err := openMappingStore(cmd.Context(), ctx, driver, dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.UpsertMany(cmd.Context(), pairs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d mappings from %s into %s\n", n, path, driverName)
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "Database driver: postgres or sqlite (defaults to kitsu.mapping_driver)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Connection string or sqlite path (defaults to kitsu.mapping_dsn)")
	return cmd
}

func newMappingGetCommand(ctx *commandContext) *cobra.Command {
	var driver, dsn string

	cmd := &cobra.Command{
		Use:   "get <kitsu-id>",
		Short: "Print the IMDB id stored for a Kitsu id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openMappingStore(cmd.Context(), ctx, driver, dsn)
			if err != nil {
				return err
			}
			defer store.Close()

			// Mapping tables may store bare or prefixed Kitsu ids.
			id := strings.TrimPrefix(strings.TrimSpace(args[0]), kitsu.Prefix)
			resolved, err := store.Get(cmd.Context(), id)
			if errors.Is(err, sql.ErrNoRows) {
				resolved, err = store.Get(cmd.Context(), kitsu.Prefix+id)
			}
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("no mapping stored for %s", id)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "Database driver: postgres or sqlite (defaults to kitsu.mapping_driver)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Connection string or sqlite path (defaults to kitsu.mapping_dsn)")
	return cmd
}

// openMappingStore opens the mapping database named by the flags, falling
// back to the [kitsu] config section. It returns the driver actually used.
func openMappingStore(ctx context.Context, cc *commandContext, driver, dsn string) (mappingStore, string, error) {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = cfg.Kitsu.MappingDriver
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = cfg.Kitsu.MappingDSN
	}
	store, err := openMappingDriver(ctx, driver, dsn)
	if err != nil {
		return nil, "", err
	}
	return store, driver, nil
}

func openMappingDriver(ctx context.Context, driver, dsn string) (mappingStore, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.OpenMappingRepository(ctx, postgres.WithDSN(dsn), postgres.WithMaxOpenConns(1))
	case config.DriverSQLite:
		path, err := config.ExpandPath(dsn)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(ctx, path)
	case "":
		return nil, fmt.Errorf("no mapping driver configured; pass --driver or set kitsu.mapping_driver")
	default:
		return nil, fmt.Errorf("unknown mapping driver %q", driver)
	}
}
