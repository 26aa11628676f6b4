package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/filter"
)

var initSchemaCmd = &cobra.Command{
	Use:   "init-schema",
	Short: "Create the collection and its vector index, then exit",
	Long: `Register the configured collection and create its search index.

Safe to run repeatedly and from several instances at once: an index that
already exists counts as success.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(commandContext(cmd), true)
		if err != nil {
			return err
		}
		defer a.close()

		a.logger.Info("Schema initialized",
			zap.String("collection", a.store.Collection()),
			zap.Strings("filterable", fieldNames(a.store.FilterFields())),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "schema ready: collection %s\n", a.store.Collection())
		return nil
	},
}

var schemaStatusCmd = &cobra.Command{
	Use:   "schema-status",
	Short: "Report whether the collection is registered and its index exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := commandContext(cmd)
		a, err := bootstrap(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		registered, err := a.store.Schema().Registered(ctx)
		if err != nil {
			return fmt.Errorf("registry: %w", err)
		}
		indexed, err := a.store.Schema().Check(ctx)
		if err != nil {
			return fmt.Errorf("index: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "collection %s: registered=%t index=%t filterable=%v\n",
			a.store.Collection(), registered, indexed, fieldNames(a.store.FilterFields()))
		return nil
	},
}

var dropIndexCmd = &cobra.Command{
	Use:   "drop-index",
	Short: "Drop the collection's vector index, keeping the documents",
	Long: `Drop the search index of the configured collection.

Documents and the registry entry stay in place. Run "vecstore init-schema"
afterwards to rebuild the index, e.g. after changing the filterable fields
or the HNSW parameters.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(commandContext(cmd), false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Schema().Drop(commandContext(cmd)); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index dropped: collection %s\n", a.store.Collection())
		return nil
	},
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func fieldNames(fields []filter.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
