package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-features/utils"
)

func TestCSVReaderParse(t *testing.T) {
	input := "\ufeffID, Latitude ,Longitude,Price Level\n" +
		"a,41.88,-87.63,2\n" +
		"b,41.89\n" +
		"c,41.90,-87.65,\"$$\"\n"

	records, err := NewCSVReader(utils.Discard()).Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2, "short row is skipped")

	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, map[string]string{
		"id": "a", "latitude": "41.88", "longitude": "-87.63", "price level": "2",
	}, records[0].Fields)
	assert.Equal(t, 4, records[1].Line)
	assert.Equal(t, "$$", records[1].Fields["price level"])
}

func TestCSVReaderEmptyInput(t *testing.T) {
	records, err := NewCSVReader(utils.Discard()).Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVReaderMissingFile(t *testing.T) {
	_, err := NewCSVReader(utils.Discard()).Read(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "features.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	table := sampleTable()
	require.NoError(t, w.Write(context.Background(), uuid.New(), table))
	// a second write replaces the first
	require.NoError(t, w.Write(context.Background(), uuid.New(), table))
	require.NoError(t, w.Close())

	records, err := NewCSVReader(utils.Discard()).Read(path)
	require.NoError(t, err)
	require.Len(t, records, len(table.Rows))
	assert.Equal(t, "L1", records[0].Fields["id"])
	assert.Equal(t, "THEFT", records[0].Fields["most_prevalent_crime"])
	assert.Equal(t, "", records[1].Fields["avg_restaurant_rating"])
	assert.Equal(t, "", records[2].Fields["num_restaurant"])
}

func TestCSVWriterIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	var contents [2][]byte
	for i := range contents {
		path := filepath.Join(dir, "run.csv")
		w, err := NewCSVWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.Write(context.Background(), uuid.New(), sampleTable()))
		require.NoError(t, w.Close())

		contents[i], err = os.ReadFile(path)
		require.NoError(t, err)
	}
	assert.Equal(t, contents[0], contents[1])
}
