package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Snell1224/sos/pkg/sos"
	"github.com/Snell1224/sos/pkg/sos/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect indices (diagnostic only — not part of the core library)",
}

func init() {
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every (key, ref) pair in an index, partition by partition, in ascending key order within each",
		RunE:  runIndexDump,
	}
	dumpCmd.Flags().StringP("container", "C", "", "path to the container (required)")
	dumpCmd.Flags().StringP("index", "i", "", "index name (required)")
	_ = dumpCmd.MarkFlagRequired("container")
	_ = dumpCmd.MarkFlagRequired("index")

	indexCmd.AddCommand(dumpCmd)
}

func runIndexDump(cmd *cobra.Command, args []string) error {
	containerPath, _ := cmd.Flags().GetString("container")
	name, _ := cmd.Flags().GetString("index")

	c, err := sos.Open(containerPath, sos.PermRead)
	if err != nil {
		return err
	}
	defer c.Close(sos.CommitAsync)

	idx, err := c.IndexOpen(name)
	if err != nil {
		return err
	}

	cmp := idx.Comparator()
	return idx.Each(func(partitionID uint64, key []byte, ref index.Ref) error {
		fmt.Fprintf(os.Stdout, "part=%d key=%s ref=%d:%d\n",
			partitionID, cmp.ToString(key), ref.PartitionID, ref.Offset)
		return nil
	})
}
