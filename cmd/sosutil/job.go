package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Snell1224/sos/pkg/sos"
	"github.com/Snell1224/sos/pkg/sos/index/comparator"
)

// timeLayout is the "YYYY/MM/DD HH:MM:SS" format expected for -s/-e.
const timeLayout = "2006/01/02 15:04:05"

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Load job and component records into a container",
}

func init() {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a job and its component records to a container",
		RunE:  runJobAdd,
	}
	addCmd.Flags().StringP("container", "C", "", "path to the container (required)")
	addCmd.Flags().StringP("job_id", "j", "", "a unique job id (required)")
	addCmd.Flags().StringP("start", "s", "", `job start time, "YYYY/MM/DD HH:MM:SS" (required)`)
	addCmd.Flags().StringP("end", "e", "", `job end time, "YYYY/MM/DD HH:MM:SS" (required)`)
	addCmd.Flags().StringP("comp_file", "c", "", "file with one component id per line (required)")
	addCmd.Flags().StringP("job_name", "n", "", "a text name for the job")
	addCmd.Flags().StringP("user_name", "u", "", "the user name")
	_ = addCmd.MarkFlagRequired("container")
	_ = addCmd.MarkFlagRequired("job_id")
	_ = addCmd.MarkFlagRequired("start")
	_ = addCmd.MarkFlagRequired("end")
	_ = addCmd.MarkFlagRequired("comp_file")

	jobCmd.AddCommand(addCmd)
}

func runJobAdd(cmd *cobra.Command, args []string) error {
	containerPath, _ := cmd.Flags().GetString("container")
	jobIDStr, _ := cmd.Flags().GetString("job_id")
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	compFile, _ := cmd.Flags().GetString("comp_file")
	jobName, _ := cmd.Flags().GetString("job_name")
	userName, _ := cmd.Flags().GetString("user_name")

	jobID64, err := strconv.ParseUint(jobIDStr, 10, 32)
	if err != nil {
		return fmt.Errorf("sosutil: job_id %q is not an integer: %w", jobIDStr, err)
	}
	jobID := uint32(jobID64)

	start, err := time.Parse(timeLayout, startStr)
	if err != nil {
		return fmt.Errorf("sosutil: start time %q: %w", startStr, err)
	}
	end, err := time.Parse(timeLayout, endStr)
	if err != nil {
		return fmt.Errorf("sosutil: end time %q: %w", endStr, err)
	}

	c, err := sos.Open(containerPath, sos.PermWrite)
	if err != nil {
		return err
	}
	defer c.Close(sos.CommitSync)

	jobSchema, ok := c.Schemas().ByName("Job")
	if !ok {
		fmt.Fprintln(os.Stderr, "Could not find the Job schema in the container.")
		os.Exit(1)
	}

	jobObj, err := jobNew(c, jobSchema, jobID, start, end, userName, jobName)
	if err != nil {
		return err
	}

	compTimeIdx, err := c.IndexOpenOrNew("CompTime", "BXTREE", "UINT64", 5)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
	jobCompIdx, err := c.IndexOpenOrNew("JobComp", "BXTREE", "UINT64", 5)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}

	ref := jobObj.Ref().ToIndexRef()
	startSecs := uint32(start.Unix())
	partitionID := jobObj.Ref().PartitionID

	f, err := os.Open(compFile)
	if err != nil {
		return fmt.Errorf("sosutil: opening component file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		compID64, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			continue
		}
		compID := uint32(compID64)

		// Component:Time key: {secondary=start_ts, primary=comp_id}
		if err := compTimeIdx.Insert(partitionID, comparator.PackCompound(startSecs, compID), ref); err != nil {
			return fmt.Errorf("sosutil: indexing CompTime: %w", err)
		}

		// Job:Component key: {secondary=comp_id, primary=job_id}
		if err := jobCompIdx.Insert(partitionID, comparator.PackCompound(compID, jobID), ref); err != nil {
			return fmt.Errorf("sosutil: indexing JobComp: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("sosutil: reading component file: %w", err)
	}

	if err := compTimeIdx.Commit(true); err != nil {
		return err
	}
	if err := jobCompIdx.Commit(true); err != nil {
		return err
	}
	return c.Commit(sos.CommitSync)
}
