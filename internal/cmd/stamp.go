package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/output"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var stampCmd = &cobra.Command{
	Use:   "stamp",
	Short: "Generate a procedural stroke stamp",
	Long:  "Write the procedural pencil stroke used when generate runs without --stamp, for inspection or hand editing.",
	RunE:  runStamp,
}

func init() {
	rootCmd.AddCommand(stampCmd)

	defaults := stamp.DefaultGenerateParams(1337)

	stampCmd.Flags().String("out", "", "Output PNG path (defaults to <output-dir>/stamp.png)")
	stampCmd.Flags().Int("width", defaults.Width, "Stamp width in pixels")
	stampCmd.Flags().Int("height", defaults.Height, "Stamp height in pixels")
	stampCmd.Flags().Int64("seed", defaults.Seed, "Deterministic seed for the ink grain")
	stampCmd.Flags().Float64("taper", defaults.Taper, "Fraction of the length faded out at each end (0..0.5)")
	stampCmd.Flags().Float64("grain", defaults.Grain, "Strength of the ink grain (0..1)")
	stampCmd.Flags().Float64("softness", float64(defaults.Softness), "Edge blur sigma (0 disables)")
	stampCmd.Flags().Bool("force", false, "Overwrite a stamp that already exists")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"stamp.out", "out"},
		{"stamp.width", "width"},
		{"stamp.height", "height"},
		{"stamp.seed", "seed"},
		{"stamp.taper", "taper"},
		{"stamp.grain", "grain"},
		{"stamp.softness", "softness"},
		{"stamp.force", "force"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, stampCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runStamp(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	out := viper.GetString("stamp.out")
	if out == "" {
		out = filepath.Join(viper.GetString("output-dir"), "stamp.png")
	}
	force := viper.GetBool("stamp.force")

	params := stamp.GenerateParams{
		Width:    viper.GetInt("stamp.width"),
		Height:   viper.GetInt("stamp.height"),
		Seed:     viper.GetInt64("stamp.seed"),
		Taper:    viper.GetFloat64("stamp.taper"),
		Grain:    viper.GetFloat64("stamp.grain"),
		Softness: float32(viper.GetFloat64("stamp.softness")),
	}
	if params.Softness < 0 {
		return fmt.Errorf("softness must not be negative")
	}

	if _, err := os.Stat(out); err == nil && !force {
		logger.Info("Stamp already exists, skipping", "path", out)
		return nil
	}

	s, err := stamp.Generate(params)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create stamp directory: %w", err)
	}
	if err := output.WritePNG(out, s.Image()); err != nil {
		return err
	}

	logger.Info("Stamp generation complete",
		"path", out,
		"size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"seed", params.Seed,
	)
	return nil
}
