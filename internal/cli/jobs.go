package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldnotes-ai/recall/internal/models"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List ingestion jobs or show one job",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "max jobs to list")
}

func runJobs(cmd *cobra.Command, args []string) error {
	if dbClient == nil {
		return fmt.Errorf("job store unavailable")
	}
	ctx := context.Background()

	if len(args) == 1 {
		job, err := dbClient.GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		printJob(*job)
		return nil
	}

	jobs, err := dbClient.ListJobs(ctx, userID, jobsLimit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}
	for _, job := range jobs {
		printJob(job)
	}
	return nil
}

func printJob(job models.Job) {
	fmt.Printf("%s  %-10s  %-8s  %s", job.ID, job.Status, job.Modality, job.Name)
	if job.Status == models.JobStatusCompleted {
		fmt.Printf("  (%d chunks)", job.ChunkCount)
	}
	if job.Error != "" {
		fmt.Printf("  error: %s", job.Error)
	}
	fmt.Printf("  %s\n", job.CreatedAt.Format("2006-01-02 15:04"))
}
