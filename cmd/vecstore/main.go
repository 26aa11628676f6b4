// Package main is the vecstore service: an HTTP API over a Redis or Valkey vector store.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/vecstore/internal/version"
)

var (
	// env selects config/<env>.yaml and the logger flavor.
	env string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vecstore",
	Short: "Vector store service over Redis or Valkey",
	Long: `vecstore stores documents with their embeddings in Redis 8+ or Valkey
(valkey-search, valkey-json) and serves similarity search over HTTP.

Configuration is read from config/<env>.yaml. The environment defaults to the
ENV variable, or "local" when unset.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "config environment (default: $ENV or local)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initSchemaCmd)
	rootCmd.AddCommand(schemaStatusCmd)
	rootCmd.AddCommand(dropIndexCmd)
	rootCmd.AddCommand(versionCmd)
}
