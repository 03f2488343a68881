package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docsync/internal/importer"
	"github.com/hyperjump/docsync/internal/indexer"
	"github.com/hyperjump/docsync/internal/searchindex"
)

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func sampleReport() *indexer.Report {
	return &indexer.Report{
		Index: "docs", Types: []string{"post", "page"}, Total: 2500, Processed: 2500,
		Indexed: 2400, Failed: 100, Records: 3100, Pages: 25, FailedBatches: 1,
		Errors: []string{"page of 100 documents: write records: 503"}, Duration: 1500 * time.Millisecond,
	}
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), OutputText))
	out := buf.String()
	assert.Contains(t, out, "Reindexed docs")
	assert.Contains(t, out, "2,500 processed of 2,500")
	assert.Contains(t, out, "3,100 in 25 pages")
	assert.Contains(t, out, "100 documents, 1 pages")
	assert.Contains(t, out, "write records: 503")
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), OutputJSON))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.EqualValues(t, 2500, got["processed"])
	assert.EqualValues(t, 1, got["failed_batches"])
}

func TestWriteOutcome(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutcome(&buf, indexer.Outcome{
		DocumentID: "42", DistinctKey: "post#42", Index: "docs", State: indexer.StateReplaced, Records: 3,
	}, OutputText))
	assert.Equal(t, "42 (post#42) replaced: 3 records in docs\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteOutcome(&buf, indexer.Outcome{DocumentID: "9", State: indexer.StateSkipped, Reason: "autosave"}, OutputText))
	assert.Equal(t, "9 skipped: autosave\n", buf.String())
}

func TestWriteImportSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteImportSummary(&buf, &importer.Summary{Files: 3, Imported: 2, Failed: 1, Errors: []string{"broken.md: bad"}}, OutputText))
	assert.Contains(t, buf.String(), "3 (2 imported, 0 unchanged, 1 failed)")
	assert.Contains(t, buf.String(), "broken.md: bad")
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, Status{
		Index: "docs", IndexableTypes: []string{"post"}, Documents: 1200,
		PublishedByType: map[string]int64{"post": 1000, "page": 3}, DiskUsageBytes: 2_500_000,
		Connection: searchindex.Status{Provider: "algolia", Error: "unreachable"},
	}, OutputText))
	out := buf.String()
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "2.5 MB")
	assert.Less(t, strings.Index(out, "page"), strings.Index(out, "post      "), "types are sorted")
	assert.Contains(t, out, "algolia not connected: unreachable")
}

func TestProgress_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.Start(250)
	p.Advance(100, 250)
	p.Advance(250, 250)
	p.Finish()
	assert.Equal(t, "reindexing 250 documents\nprocessed 100/250\nprocessed 250/250\n", buf.String())
}

func TestBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat("=", 15)+strings.Repeat(" ", 15)+"]", bar(50, 100))
	assert.Equal(t, "["+strings.Repeat("=", barWidth)+"]", bar(0, 0))
}
