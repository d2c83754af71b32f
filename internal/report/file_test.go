package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_Msgpack(t *testing.T) {
	doc := sampleDocument(t)
	path := filepath.Join(t.TempDir(), "out", "report.msgpack")

	require.NoError(t, WriteFile(path, FormatMsgpack, doc))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	docs, err := ReadMsgpack(f)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.Parser, docs[0].Parser)
	assert.Len(t, docs[0].Issues, 2)
}

func TestWriteAtomic_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gate.json")

	require.NoError(t, WriteAtomic(path, []byte("first")))
	require.NoError(t, WriteAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	assert.Error(t, WriteFile(path, Format("yaml"), sampleDocument(t)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
