package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrsinham/studyforge/internal/catalog"
	"github.com/mrsinham/studyforge/internal/config"
	"github.com/mrsinham/studyforge/internal/dicom"
	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/storage/s3sink"
	"github.com/mrsinham/studyforge/internal/template"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		output string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "generate <job.yaml>",
		Short: "Generate a study from a job file",
		Example: `  studyforge generate jobs/chest_ct.yaml
  studyforge generate jobs/chest_ct.yaml -o s3://studies/chest --catalog catalog.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.LoadJob(args[0])
			if err != nil {
				return err
			}
			if output != "" {
				job.OutputDir = output
			}
			req, err := job.Request()
			if err != nil {
				return err
			}
			if dryRun {
				a.printPlan(req)
				return nil
			}
			return a.generate(cmd.Context(), req)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Override the job's output_dir")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and print the plan without writing files")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <job.yaml>",
		Short: "Check a job file without generating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := config.LoadJob(args[0])
			if err != nil {
				return err
			}
			if err := job.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s: valid\n", args[0])
			return nil
		},
	}
}

func newQuickCmd(a *app) *cobra.Command {
	var opts config.QuickOptions
	cmd := &cobra.Command{
		Use:   "quick",
		Short: "Generate a study for a patient of the patient master",
		Example: `  studyforge quick -p PAT001 -m CT -s 3 -i "1,20,20"
  studyforge quick -p PAT001 -m MR --hospital sample_hospital --pixel-mode simple_text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := config.LoadPatients(a.patients)
			if err != nil {
				return err
			}
			patient, err := master.Find(opts.PatientID)
			if err != nil {
				return err
			}
			job, err := config.QuickJob(patient, opts)
			if err != nil {
				return err
			}
			req, err := job.Request()
			if err != nil {
				return err
			}
			return a.generate(cmd.Context(), req)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.PatientID, "patient", "p", "", "Patient ID in the patient master (required)")
	f.StringVarP(&opts.Modality, "modality", "m", "", "Modality template name (required)")
	f.IntVarP(&opts.SeriesCount, "series", "s", 1, "Number of series")
	f.StringVarP(&opts.Images, "images", "i", "1", "Comma-separated image counts, one per series")
	f.StringVarP(&opts.OutputDir, "output", "o", "", "Output directory or s3:// location (default: output/<patient>)")
	f.StringVar(&opts.AccessionNumber, "accession-number", "ACC000001", "Accession number")
	f.StringVar(&opts.StudyDate, "study-date", "", "Study date YYYYMMDD (default: today)")
	f.StringVar(&opts.Hospital, "hospital", "", "Hospital template name")
	f.StringVar(&opts.PixelMode, "pixel-mode", config.ModeCTRealistic, "Pixel mode: simple_text or ct_realistic")
	_ = cmd.MarkFlagRequired("patient")
	_ = cmd.MarkFlagRequired("modality")
	return cmd
}

func (a *app) printPlan(req dicom.Request) {
	fmt.Fprintf(a.stdout, "Patient ID:   %s\n", req.Subject.ID)
	fmt.Fprintf(a.stdout, "Accession:    %s\n", req.Study.AccessionNumber)
	fmt.Fprintf(a.stdout, "Series:       %d\n", len(req.Series))
	fmt.Fprintf(a.stdout, "Total images: %d\n", req.TotalImages())
	fmt.Fprintf(a.stdout, "Output:       %s\n", req.Output)
}

// generate runs one request through the sink selected by its destination.
func (a *app) generate(ctx context.Context, req dicom.Request) error {
	var sink dicom.Sink = dicom.NewFileSink()
	if s3sink.IsDestination(req.Output) {
		s, err := s3sink.New(ctx, s3sink.ConfigFromEnv())
		if err != nil {
			return err
		}
		sink = s
	}
	if a.catalog != "" {
		c, err := catalog.Open(a.catalog)
		if err != nil {
			return &failure.FileReadError{Path: a.catalog, Reason: err.Error()}
		}
		defer func() { _ = c.Close() }()
		sink = catalog.NewSink(sink, c)
	}

	gen := &dicom.Generator{
		Logger:    a.logger,
		Sink:      sink,
		Templates: template.NewLoader(a.templates),
		Workers:   a.workers,
	}

	var progress dicom.ProgressFunc
	var bar *progressBar
	if !a.quiet {
		bar = newProgressBar(a.stderr, time.Now())
		progress = bar.Update
	}
	start := time.Now()
	dest, err := gen.Generate(ctx, req, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	a.logger.Info("study written", zap.String("destination", dest), zap.Duration("elapsed", time.Since(start)))
	fmt.Fprintf(a.stdout, "Generated %d images in %s\n", req.TotalImages(), dest)
	return nil
}
