package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/archive"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/output"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/pack"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/preview"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a tonal art map",
	Long: `Generate every (tone, mip) canvas of a tonal art map from a stroke stamp,
then pack three tones per image for each mip level.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	defaults := tam.DefaultConfig()

	// Map shape
	generateCmd.Flags().Int("resolution", defaults.Resolution, "Finest mip resolution in pixels (power of two)")
	generateCmd.Flags().Int("mip-levels", defaults.MipLevels, "Number of mip levels")
	generateCmd.Flags().Int("tone-levels", defaults.ToneLevels, "Number of tone levels")
	generateCmd.Flags().Float64("min-tone", defaults.MinTone, "Target mean ink of the lightest tone")
	generateCmd.Flags().Float64("max-tone", defaults.MaxTone, "Target mean ink of the darkest tone")

	// Growth
	generateCmd.Flags().Int("candidates", defaults.BaseCandidates, "Candidate strokes per iteration at tone 0")
	generateCmd.Flags().Int("candidate-falloff", defaults.CandidateFalloff, "Fewer candidates per darker tone level")
	generateCmd.Flags().Int("max-iterations", defaults.MaxIterations, "Stroke iterations per cell before giving up")
	generateCmd.Flags().Float32("low-alpha-threshold", defaults.LowAlphaThreshold, "Interpolation samples below this alpha count as blank")
	generateCmd.Flags().Bool("no-skew", false, "Keep strokes axis-aligned")
	generateCmd.Flags().Int64("seed", defaults.Seed, "Deterministic seed for stroke sampling and the generated stamp")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel scoring workers (default: number of CPUs)")

	// Input and output
	generateCmd.Flags().String("stamp", "", "Stroke stamp PNG (default: generate one)")
	generateCmd.Flags().Bool("progress", true, "Show progress bar during generation")
	generateCmd.Flags().Bool("strict", false, "Fail when any cell stops below its target tone")
	generateCmd.Flags().String("format", "folder", "Output format: folder or archive")
	generateCmd.Flags().String("output-file", "", "Output file path for archive format (e.g., map.tam)")
	generateCmd.Flags().Bool("preview", false, "Also write a contact sheet of all canvases")
	generateCmd.Flags().Int("preview-cell", 128, "Contact sheet cell size in pixels")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"tam.resolution", "resolution"},
		{"tam.mip_levels", "mip-levels"},
		{"tam.tone_levels", "tone-levels"},
		{"tam.min_tone", "min-tone"},
		{"tam.max_tone", "max-tone"},
		{"tam.candidates", "candidates"},
		{"tam.candidate_falloff", "candidate-falloff"},
		{"tam.max_iterations", "max-iterations"},
		{"tam.low_alpha_threshold", "low-alpha-threshold"},
		{"tam.no_skew", "no-skew"},
		{"tam.seed", "seed"},
		{"tam.workers", "workers"},
		{"generate.stamp", "stamp"},
		{"generate.progress", "progress"},
		{"generate.strict", "strict"},
		{"generate.format", "format"},
		{"generate.output_file", "output-file"},
		{"generate.preview", "preview"},
		{"generate.preview_cell", "preview-cell"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

// tamConfigFromViper reads the tam.* keys.
func tamConfigFromViper() tam.Config {
	cfg := tam.Config{
		Resolution:        viper.GetInt("tam.resolution"),
		MipLevels:         viper.GetInt("tam.mip_levels"),
		ToneLevels:        viper.GetInt("tam.tone_levels"),
		MinTone:           viper.GetFloat64("tam.min_tone"),
		MaxTone:           viper.GetFloat64("tam.max_tone"),
		BaseCandidates:    viper.GetInt("tam.candidates"),
		CandidateFalloff:  viper.GetInt("tam.candidate_falloff"),
		MaxIterations:     viper.GetInt("tam.max_iterations"),
		LowAlphaThreshold: float32(viper.GetFloat64("tam.low_alpha_threshold")),
		SkewDisabled:      viper.GetBool("tam.no_skew"),
		Seed:              viper.GetInt64("tam.seed"),
		Workers:           viper.GetInt("tam.workers"),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return cfg
}

// loadStamp reads the stamp at path, or generates the default stamp when
// path is empty. The returned name is recorded in the manifest.
func loadStamp(path string, seed int64) (*stamp.Stamp, string, error) {
	if path == "" {
		s, err := stamp.Generate(stamp.DefaultGenerateParams(seed))
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate stamp: %w", err)
		}
		return s, "generated", nil
	}

	s, err := stamp.Load(path)
	if err != nil {
		return nil, "", err
	}
	return s, filepath.Base(path), nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := tamConfigFromViper()
	stampPath := viper.GetString("generate.stamp")
	showProgress := viper.GetBool("generate.progress")
	strict := viper.GetBool("generate.strict")
	format := viper.GetString("generate.format")
	outputFile := viper.GetString("generate.output_file")
	outputDir := viper.GetString("output-dir")
	withPreview := viper.GetBool("generate.preview")
	previewCell := viper.GetInt("generate.preview_cell")

	if logger == nil {
		initLogging()
	}

	if format != "folder" && format != "archive" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'archive'", format)
	}
	if format == "archive" && outputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=archive")
	}
	if withPreview && previewCell <= 0 {
		return fmt.Errorf("preview-cell must be positive")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, stampName, err := loadStamp(stampPath, cfg.Seed)
	if err != nil {
		return err
	}

	logger.Info("Starting tonal art map generation",
		"stamp", stampName,
		"stamp_size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"format", format,
		"output_dir", outputDir,
	)

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	total := cfg.ToneLevels * cfg.MipLevels
	progress := worker.NewProgress(total, showProgress)
	degraded := 0

	opts := tam.Options{
		Logger: logger,
		OnCell: func(report tam.CellReport, completed, total int) {
			if report.Degraded() {
				degraded++
			}
			progress.Update(completed, total, degraded)
		},
	}
	if viper.GetBool("verbose") {
		opts.OnProgress = candidateLogger(logger)
	}

	builder, err := tam.NewBuilder(cfg, s, opts)
	if err != nil {
		return fmt.Errorf("failed to init builder: %w", err)
	}

	result, err := builder.Build(ctx)
	progress.Done()
	if err != nil {
		return fmt.Errorf("failed to build tonal art map: %w", err)
	}
	logger.Info(progress.Summary())

	packed, err := pack.Pack(result.Hierarchy)
	if err != nil {
		return fmt.Errorf("failed to pack canvases: %w", err)
	}

	manifest := output.NewManifest(cfg, stampName)
	switch format {
	case "folder":
		folder, err := output.NewFolder(outputDir, logger)
		if err != nil {
			return err
		}
		if err := folder.WriteResult(result, packed, manifest); err != nil {
			return err
		}
	case "archive":
		if err := writeArchive(outputFile, manifest, result, packed); err != nil {
			return err
		}
		logger.Info("Archive written", "path", outputFile, "run_id", manifest.RunID)
	}

	if withPreview {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(outputDir, "TAM_preview.png")
		if err := output.WritePNG(path, preview.ContactSheet(result.Hierarchy, previewCell)); err != nil {
			return err
		}
		logger.Info("Preview written", "path", path)
	}

	if failed := result.Degraded(); len(failed) > 0 {
		if strict {
			return fmt.Errorf("%d of %d cells stopped below their target tone", len(failed), total)
		}
		logger.Warn("Some cells stopped below their target tone", "degraded_count", len(failed))
	}

	return nil
}

// candidateLogger logs one debug line per growth iteration once all of its
// candidates are scored.
func candidateLogger(l *slog.Logger) worker.ProgressFunc {
	iteration := 0
	return func(completed, total, failed int) {
		if completed < total {
			return
		}
		iteration++
		l.Debug("Scored candidates",
			"iteration", iteration,
			"candidates", total,
			"failed", failed,
		)
	}
}

func archiveMetadata(m *output.Manifest) archive.Metadata {
	return archive.Metadata{
		Name:        "Tonal art map",
		Description: fmt.Sprintf("stamp %s", m.Config.Stamp),
		Version:     "1",
		RunID:       m.RunID,
		Resolution:  m.Config.Resolution,
		MipLevels:   m.Config.MipLevels,
		ToneLevels:  m.Config.ToneLevels,
		MinTone:     m.Config.MinTone,
		MaxTone:     m.Config.MaxTone,
		Seed:        m.Config.Seed,

		BaseCandidates:    m.Config.BaseCandidates,
		CandidateFalloff:  m.Config.CandidateFalloff,
		MaxIterations:     m.Config.MaxIterations,
		LowAlphaThreshold: m.Config.LowAlphaThreshold,
		SkewDisabled:      m.Config.SkewDisabled,
	}
}

func writeArchive(path string, m *output.Manifest, result *tam.Result, packed []*pack.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	w, err := archive.New(path, archiveMetadata(m))
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	h := result.Hierarchy
	for tone := 0; tone < h.ToneLevels; tone++ {
		for mip := 0; mip < h.MipLevels; mip++ {
			if err := w.WriteCanvas(tone, mip, h.At(tone, mip)); err != nil {
				w.Close()
				return err
			}
		}
	}
	for _, img := range packed {
		if err := w.WritePacked(img); err != nil {
			w.Close()
			return err
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}
