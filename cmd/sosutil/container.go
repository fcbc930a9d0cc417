package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Snell1224/sos/pkg/sos"
)

var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Manage container lifecycle",
}

func init() {
	createCmd := &cobra.Command{
		Use:   "create PATH",
		Short: "Create a new container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sos.Create(args[0], 0644)
		},
	}

	statCmd := &cobra.Command{
		Use:   "stat PATH",
		Short: "Print container status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := sos.Open(args[0], sos.PermRead)
			if err != nil {
				return err
			}
			defer c.Close(sos.CommitAsync)

			info, err := c.Stat()
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "path:       %s\n", args[0])
			fmt.Fprintf(os.Stdout, "size:       %d bytes\n", info.Size())
			fmt.Fprintf(os.Stdout, "schemas:    %d\n", c.SchemaCount())
			counts := c.PartitionCounts()
			fmt.Fprintf(os.Stdout, "partitions: active=%d primary=%d offline=%d\n",
				counts["active"], counts["primary"], counts["offline"])
			return nil
		},
	}

	openCmd := &cobra.Command{
		Use:   "open PATH",
		Short: "Open a container and exit, verifying it is well formed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := sos.Open(args[0], sos.PermRead)
			if err != nil {
				return err
			}
			c.Close(sos.CommitAsync)
			fmt.Fprintln(os.Stdout, "ok")
			return nil
		},
	}

	containerCmd.AddCommand(createCmd, openCmd, statCmd)
}
