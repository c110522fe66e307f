package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPDF(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderPDF(sampleSummary(), &buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "output must be a PDF document")
	assert.Greater(t, buf.Len(), 1000)
}

func TestWritePDF(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := WritePDF(sampleSummary(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, PDFFileName), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
