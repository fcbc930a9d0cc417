package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Snell1224/sos/pkg/sos"
	sosschema "github.com/Snell1224/sos/pkg/sos/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage schema definitions",
}

func init() {
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load a schema definition from a YAML file",
		RunE:  runSchemaLoad,
	}
	loadCmd.Flags().StringP("container", "C", "", "container path (required)")
	loadCmd.Flags().StringP("file", "f", "", "schema YAML file (required)")
	_ = loadCmd.MarkFlagRequired("container")
	_ = loadCmd.MarkFlagRequired("file")

	schemaCmd.AddCommand(loadCmd)
}

func runSchemaLoad(cmd *cobra.Command, args []string) error {
	containerPath, _ := cmd.Flags().GetString("container")
	file, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading schema file: %w", err)
	}

	name, specs, err := sosschema.ParseYAML(data)
	if err != nil {
		return err
	}

	c, err := sos.Open(containerPath, sos.PermWrite)
	if err != nil {
		return err
	}
	defer c.Close(sos.CommitSync)

	if _, err := c.SchemaAdd(name, specs); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "schema %q loaded (%d attributes)\n", name, len(specs))
	return nil
}
