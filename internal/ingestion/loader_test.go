package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faqs.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestBuildDocument(t *testing.T) {
	entry := FaqEntry{Question: "Q1?", Answer: "A1."}

	doc := BuildDocument(entry)

	assert.Equal(t, "Q: Q1?\nA: A1.", doc)
	assert.Equal(t, doc, BuildDocument(entry), "building the same entry twice must be identical")
}

func TestBuildDocumentsPreservesOrder(t *testing.T) {
	entries := []FaqEntry{
		{Question: "first?", Answer: "one"},
		{Question: "second?", Answer: "two"},
		{Question: "third?", Answer: "three"},
	}

	docs := BuildDocuments(entries)

	require.Len(t, docs, 3)
	assert.Equal(t, "Q: first?\nA: one", docs[0])
	assert.Equal(t, "Q: second?\nA: two", docs[1])
	assert.Equal(t, "Q: third?\nA: three", docs[2])
}

func TestLoadFAQData(t *testing.T) {
	path := writeCSV(t, "question,answer\nApa itu Nawatech?,Perusahaan teknologi\nHow do I reset my password?,Use the reset link\n")

	entries, err := LoadFAQData(path)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Apa itu Nawatech?", entries[0].Question)
	assert.Equal(t, "Perusahaan teknologi", entries[0].Answer)
}

func TestLoadFAQDataDropsIncompleteRows(t *testing.T) {
	path := writeCSV(t, "question,answer\nvalid?,yes\n,missing question\nmissing answer?,\n")

	entries, err := LoadFAQData(path)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "valid?", entries[0].Question)
}

func TestLoadFAQDataMissingColumns(t *testing.T) {
	path := writeCSV(t, "question,text\nsomething?,else\n")

	_, err := LoadFAQData(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer")
}

func TestLoadFAQDataExtraColumns(t *testing.T) {
	path := writeCSV(t, "id,question,answer\n1,what?,that\n")

	entries, err := LoadFAQData(path)

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "what?", entries[0].Question)
	assert.Equal(t, "that", entries[0].Answer)
}

func TestLoadFAQDataMissingFile(t *testing.T) {
	_, err := LoadFAQData(filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
}
