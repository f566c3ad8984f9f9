package charts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudscope/internal/models"
	"fraudscope/internal/storage"
)

func sampleResults() []models.AnomalyResult {
	results := make([]models.AnomalyResult, 0, 25)
	for i := 0; i < 25; i++ {
		score := (i * 4) % 100
		results = append(results, models.AnomalyResult{
			TransactionID: "tx",
			Amount:        float64(20 + i*3),
			RiskScore:     score,
			RiskLevel:     models.RiskLevelForScore(score),
			IsAnomaly:     score >= 70,
		})
	}
	return results
}

func TestRenderAllBothThemes(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"))
	require.NoError(t, err)
	r := NewRenderer(store)

	for _, theme := range []Theme{Light, Dark} {
		t.Run(theme.Name, func(t *testing.T) {
			graphs, err := r.RenderAll("run-1", sampleResults(), theme)
			require.NoError(t, err)
			require.Len(t, graphs, 5)

			for key, filename := range graphs {
				assert.Contains(t, filename, key)
				assert.Contains(t, filename, theme.Name)

				data, err := os.ReadFile(filepath.Join(dir, "outputs", filename))
				require.NoError(t, err)
				require.Greater(t, len(data), 8, "chart %s should not be empty", key)
				assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4], "chart %s should be a PNG", key)
			}
		})
	}
}

func TestRenderAllTinyBatch(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"))
	require.NoError(t, err)
	r := NewRenderer(store)

	results := []models.AnomalyResult{
		{TransactionID: "a", Amount: 10, RiskScore: 85, RiskLevel: models.RiskLevelHigh, IsAnomaly: true},
	}
	graphs, err := r.RenderAll("run-tiny", results, Light)
	require.NoError(t, err)
	assert.Len(t, graphs, 5)
}

func TestThemeByName(t *testing.T) {
	assert.Equal(t, "dark", ThemeByName("dark").Name)
	assert.Equal(t, "light", ThemeByName("light").Name)
	assert.Equal(t, "light", ThemeByName("neon").Name)
	assert.Equal(t, "light", ThemeByName("").Name)
}

func TestPadPoints(t *testing.T) {
	xs, ys := padPoints([]float64{1, 2, 3}, []float64{4, 5, 6})
	assert.Len(t, xs, 3)
	assert.Len(t, ys, 3)

	xs, ys = padPoints([]float64{7}, []float64{3})
	require.Len(t, xs, 2)
	require.Len(t, ys, 2)
	assert.NotEqual(t, xs[0], xs[1])

	xs, ys = padPoints([]float64{2, 2, 2}, []float64{1, 5, 9})
	require.Len(t, xs, 4)
	require.Len(t, ys, 4)
	assert.NotEqual(t, xs[0], xs[3])
}
