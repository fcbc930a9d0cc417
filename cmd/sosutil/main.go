// Command sosutil is the administrative and ingest CLI for SOS
// containers: create/open/stat a container, load a schema from YAML,
// add job/component records from a batch file, and dump an index.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Snell1224/sos/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sosutil",
	Short: "sosutil administers and loads Scalable Object Store containers",
	Long: `sosutil is the command-line interface to a Scalable Object Store
container: creating and inspecting containers, loading schema
definitions, and bulk-loading job/component records.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(containerCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(indexCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
