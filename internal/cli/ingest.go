package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldnotes-ai/recall/internal/models"
	"github.com/fieldnotes-ai/recall/internal/service"
)

var (
	ingestModality   string
	ingestSourceDate string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest audio recordings, documents or text files",
	Long: `Ingest files into the user's collection. Audio files are
transcribed and speaker-attributed before chunking; documents and text
go straight to metadata extraction and chunking.

Multiple files are processed concurrently by the worker pool. The
modality is inferred from each file's extension and can be overridden
with --modality.

Examples:
  recall ingest standup.mp3
  recall ingest design-doc.md --modality document
  recall ingest notes.txt --source-date 2024-03-01
  recall ingest recordings/*.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestModality, "modality", "m", "", "override modality: audio, document or text")
	ingestCmd.Flags().StringVar(&ingestSourceDate, "source-date", "", "original date of the content (YYYY-MM-DD)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	var sourceDate *time.Time
	if ingestSourceDate != "" {
		parsed, err := time.Parse("2006-01-02", ingestSourceDate)
		if err != nil {
			return fmt.Errorf("parse --source-date: %w", err)
		}
		sourceDate = &parsed
	}

	ingest, err := newIngestPipeline()
	if err != nil {
		return err
	}

	ctx := context.Background()
	queue := service.NewJobQueue(ingest, jobStore(), cfg.WorkerCount)
	queue.Start()

	var jobIDs []string
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if len(content) == 0 {
			return fmt.Errorf("%s is empty", path)
		}

		modality, err := resolveModality(path, ingestModality)
		if err != nil {
			return err
		}

		job, err := queue.Enqueue(ctx, userID, filepath.Base(path), modality, content, sourceDate)
		if err != nil {
			return fmt.Errorf("enqueue %s: %w", path, err)
		}
		fmt.Printf("Job %s queued (%s, %s)\n", job.ID, job.Name, modality)
		jobIDs = append(jobIDs, job.ID)
	}

	// Stop drains the queue; every job has finished when it returns.
	queue.Stop()

	var failed int
	for _, id := range jobIDs {
		if err := reportJob(ctx, id); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed++
		}
	}
	printPipelineStats()
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobIDs))
	}
	return nil
}

func reportJob(ctx context.Context, jobID string) error {
	if dbClient == nil {
		return nil
	}
	job, err := dbClient.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	switch job.Status {
	case models.JobStatusCompleted:
		fmt.Printf("Job %s completed: %d chunks indexed\n", job.ID, job.ChunkCount)
		return nil
	case models.JobStatusFailed:
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	default:
		fmt.Printf("Job %s is %s\n", job.ID, job.Status)
		return nil
	}
}

func resolveModality(path, override string) (models.Modality, error) {
	if override != "" {
		switch models.Modality(override) {
		case models.ModalityAudio, models.ModalityDocument, models.ModalityText:
			return models.Modality(override), nil
		default:
			return "", fmt.Errorf("unknown modality %q (want audio, document or text)", override)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav", ".m4a", ".mp4", ".ogg", ".flac", ".webm":
		return models.ModalityAudio, nil
	case ".md", ".pdf", ".doc", ".docx", ".html":
		return models.ModalityDocument, nil
	default:
		return models.ModalityText, nil
	}
}
