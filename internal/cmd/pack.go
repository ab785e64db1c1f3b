package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/archive"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/output"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/pack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Repack the canvases of an existing tonal art map",
	Long: `Reload the canvases of a generated map and write its packed images again.

With --archive the canvases come from an archive database and the packed images
are written to --output-dir. Otherwise the map folder is read through its
manifest and the packed images are written back into it.`,
	RunE: runPack,
}

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().String("input-dir", "", "Map folder containing manifest.toml (defaults to --output-dir)")
	packCmd.Flags().String("archive", "", "Archive database to read canvases from")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"pack.input_dir", "input-dir"},
		{"pack.archive", "archive"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, packCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runPack(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	outputDir := viper.GetString("output-dir")
	inputDir := viper.GetString("pack.input_dir")
	if inputDir == "" {
		inputDir = outputDir
	}
	archivePath := viper.GetString("pack.archive")

	if archivePath != "" {
		return packArchive(archivePath, outputDir)
	}
	return packFolder(inputDir)
}

func packFolder(dir string) error {
	h, manifest, err := output.LoadHierarchy(dir)
	if err != nil {
		return err
	}

	packed, err := pack.Pack(h)
	if err != nil {
		return fmt.Errorf("failed to pack canvases: %w", err)
	}

	folder, err := output.NewFolder(dir, logger)
	if err != nil {
		return err
	}
	if err := folder.WritePacked(packed, manifest); err != nil {
		return err
	}

	logger.Info("Packing complete", "dir", dir, "packed", len(packed), "run_id", manifest.RunID)
	return nil
}

func packArchive(path, outputDir string) error {
	r, err := archive.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	h, err := r.ReadHierarchy()
	if err != nil {
		return err
	}

	packed, err := pack.Pack(h)
	if err != nil {
		return fmt.Errorf("failed to pack canvases: %w", err)
	}

	if _, err := output.NewFolder(outputDir, logger); err != nil {
		return err
	}
	for _, img := range packed {
		if err := output.WritePNG(filepath.Join(outputDir, output.PackedFileName(img.Name(), img.Mip)), img.NRGBA()); err != nil {
			return err
		}
	}

	logger.Info("Packing complete", "archive", path, "dir", outputDir, "packed", len(packed))
	return nil
}
