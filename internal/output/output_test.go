package output

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/AdamKhaddaj/ScribbleRendering/internal/pack"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/stamp"
	"github.com/AdamKhaddaj/ScribbleRendering/internal/tam"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSmall(t *testing.T) (tam.Config, *tam.Result, []*pack.Image) {
	t.Helper()
	cfg := tam.DefaultConfig()
	cfg.Resolution = 16
	cfg.MipLevels = 2
	cfg.ToneLevels = 6
	cfg.BaseCandidates = 20
	cfg.CandidateFalloff = 3
	cfg.MaxIterations = 10
	cfg.SkewDisabled = true

	b, err := tam.NewBuilder(cfg, stamp.NewSolid(16, 2), tam.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	packed, err := pack.Pack(res.Hierarchy)
	require.NoError(t, err)
	return cfg, res, packed
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "TAM_Tone3_Mip1.png", CanvasFileName(3, 1))
	assert.Equal(t, "TAM_package_bright_mip2.png", PackedFileName("bright", 2))
}

func TestWriteResultAndReload(t *testing.T) {
	cfg, res, packed := buildSmall(t)
	dir := filepath.Join(t.TempDir(), "out")

	folder, err := NewFolder(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	m := NewManifest(cfg, "solid")
	require.NoError(t, folder.WriteResult(res, packed, m))

	for _, name := range []string{"TAM_Tone0_Mip0.png", "TAM_Tone5_Mip1.png", "TAM_package_dark_mip1.png", ManifestName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	h, loaded, err := LoadHierarchy(dir)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, m.Config, loaded.Config)
	assert.Len(t, loaded.Canvases, 12)
	assert.Len(t, loaded.Packed, 4)

	_, err = uuid.Parse(loaded.RunID)
	assert.NoError(t, err)

	// The manifest alone is enough to rebuild the run.
	want := cfg
	want.Workers = 0
	assert.Equal(t, want, loaded.Config.TamConfig())

	entry, ok := loaded.Canvas(2, 1)
	require.True(t, ok)
	rep, _ := res.Report(2, 1)
	assert.Equal(t, rep.Status.String(), entry.Status)
	assert.InDelta(t, rep.Achieved, entry.Achieved, 1e-12)

	// PNG stores 8-bit alpha, so reloaded canvases match to within one step.
	for tone := 0; tone < cfg.ToneLevels; tone++ {
		for mip := 0; mip < cfg.MipLevels; mip++ {
			want, have := res.Hierarchy.At(tone, mip), h.At(tone, mip)
			require.Equal(t, want.Size, have.Size)
			for i := range want.Alpha {
				require.InDelta(t, want.Alpha[i], have.Alpha[i], 1.0/255)
			}
		}
	}

	repacked, err := pack.Pack(h)
	require.NoError(t, err)
	require.Len(t, repacked, len(packed))
	for i := range packed {
		assert.Equal(t, packed[i].R, repacked[i].R)
		assert.Equal(t, packed[i].G, repacked[i].G)
		assert.Equal(t, packed[i].B, repacked[i].B)
	}
}

func TestLoadHierarchyMissingManifest(t *testing.T) {
	_, _, err := LoadHierarchy(t.TempDir())
	assert.Error(t, err)
}

func TestLoadHierarchyIncomplete(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(tam.DefaultConfig(), "generated")
	require.NoError(t, WriteManifest(dir, m))

	_, _, err := LoadHierarchy(dir)
	assert.ErrorContains(t, err, "does not list every canvas")
}

func TestParseFileName(t *testing.T) {
	ref, ok := ParseFileName(CanvasFileName(4, 2))
	require.True(t, ok)
	assert.Equal(t, FileRef{Tone: 4, Mip: 2}, ref)

	ref, ok = ParseFileName(PackedFileName("group3", 1))
	require.True(t, ok)
	assert.Equal(t, FileRef{Packed: true, Name: "group3", Mip: 1}, ref)

	for _, bad := range []string{"manifest.toml", "TAM_Tone1_Mip1.jpg", "TAM_Tonex_Mip1.png", "TAM_package__mip0.png", "TAM_package_dark.png"} {
		_, ok := ParseFileName(bad)
		assert.False(t, ok, bad)
	}
}
