package source

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/invoice-extractor/internal/table"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestKindOf(t *testing.T) {
	tests := map[string]Kind{
		"a.pdf":        KindPDF,
		"A.PDF":        KindPDF,
		"a.json":       KindSidecar,
		"a.yaml":       KindSidecar,
		"a.yml":        KindSidecar,
		"batch.zip":    KindArchive,
		"notes.txt":    KindUnknown,
		"no-extension": KindUnknown,
	}
	for path, want := range tests {
		assert.Equal(t, want, KindOf(path), path)
	}
}

type fakeLoader struct {
	name string
	kind Kind
	err  error
}

func (f fakeLoader) Name() string               { return f.name }
func (f fakeLoader) CanHandle(path string) bool { return KindOf(path) == f.kind }
func (f fakeLoader) Load(_ context.Context, path string) (*RawPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &RawPage{SourceID: f.name + ":" + filepath.Base(path)}, nil
}

func TestRegistry(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry(
		fakeLoader{name: "first", kind: KindPDF},
		fakeLoader{name: "second", kind: KindPDF},
		fakeLoader{name: "broken", kind: KindSidecar, err: boom},
	)

	assert.Equal(t, []string{"first", "second", "broken"}, r.Names())
	assert.True(t, r.CanHandle("x.pdf"))
	assert.False(t, r.CanHandle("x.txt"))

	page, err := r.Load(context.Background(), "/tmp/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "first:x.pdf", page.SourceID)

	_, err = r.Load(context.Background(), "x.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken loader")

	_, err = r.Load(context.Background(), "x.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input")
}

func TestParseSidecar(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		page, err := ParseSidecar([]byte(`{"source": "bill_7.pdf", "text": "رقم الفاتورة: 7", ` +
			`"tables": [[["10", "1", "10", "1", "pen", "P1"], ["", null, "", "", "blue", ""]]]}`))
		require.NoError(t, err)
		assert.Equal(t, "bill_7.pdf", page.SourceID)
		assert.Equal(t, "رقم الفاتورة: 7", page.Text)
		require.Len(t, page.Tables, 1)
		assert.Equal(t, table.Row{"", "", "", "", "blue", ""}, page.Tables[0][1])
		assert.Equal(t, 2, page.RowCount())
	})

	t.Run("yaml pages", func(t *testing.T) {
		page, err := ParseSidecar([]byte("pages:\n  - first page\n  - second page\n"))
		require.NoError(t, err)
		assert.Equal(t, "first page\nsecond page", page.Text)
		assert.Equal(t, 2, page.Pages)
		assert.Empty(t, page.Tables)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := ParseSidecar([]byte("source: x.pdf\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "neither text nor table rows")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseSidecar([]byte("tables: [[["))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal sidecar")
	})
}

func TestSidecarLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bill_9.yaml", []byte("text: |\n  Invoice Number: 9\ntables:\n  - - [\"5\", \"1\", \"5\", \"1\"]\n"))

	l := NewSidecarLoader(1024)
	assert.True(t, l.CanHandle(path))
	assert.False(t, l.CanHandle("bill_9.pdf"))

	page, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "bill_9.yaml", page.SourceID)
	assert.Equal(t, path, page.Path)
	assert.Equal(t, [][]table.Row{{{"5", "1", "5", "1"}}}, page.Tables)

	_, err = NewSidecarLoader(10).Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file too large")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFLoader_RejectsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	l := NewPDFLoader(1024 * 1024)

	tests := []struct {
		name   string
		path   string
		errMsg string
	}{
		{name: "missing", path: filepath.Join(dir, "missing.pdf"), errMsg: "file does not exist"},
		{name: "empty", path: writeFile(t, dir, "empty.pdf", nil), errMsg: "file is empty"},
		{name: "garbage", path: writeFile(t, dir, "garbage.pdf", []byte("this is not a pdf at all")), errMsg: "invalid PDF"},
		{name: "wrong kind", path: writeFile(t, dir, "notes.txt", []byte("text")), errMsg: "unsupported file type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := l.Load(context.Background(), tt.path)
			require.Error(t, err)
			assert.Nil(t, page)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGroupRows(t *testing.T) {
	runs := []pdf.Text{
		// second line, out of order
		{S: "pen", X: 300, Y: 680, W: 20},
		{S: "10", X: 10, Y: 680.5, W: 10},
		{S: "1", X: 100, Y: 679, W: 5},
		// first line, glyph by glyph with a word gap
		{S: "T", X: 10, Y: 700, W: 5},
		{S: "o", X: 15, Y: 700, W: 5},
		{S: "tal", X: 22, Y: 700, W: 10},
		{S: "Qty", X: 100, Y: 700, W: 15},
	}

	rows := groupRows(runs)

	require.Len(t, rows, 2)
	assert.Equal(t, table.Row{"To tal", "Qty"}, rows[0])
	assert.Equal(t, table.Row{"10", "1", "pen"}, rows[1])
	assert.Nil(t, groupRows(nil))
}

func TestTableRegion(t *testing.T) {
	rows := []table.Row{
		{"Invoice Number: 1"},
		{"Total", "Qty", "Price"},
		{"wrapped"},
		{"10", "1", "10"},
		{"Paid: 10"},
	}

	assert.Equal(t, rows[1:4], tableRegion(rows))
	assert.Nil(t, tableRegion(rows[:1]))
}

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	v := NewValidator(1024)

	sidecar := writeFile(t, dir, "a.json", []byte(`{"text": "x"}`))
	archive := filepath.Join(dir, "batch.zip")
	writeZip(t, archive, map[string]string{"a.json": `{"text": "x"}`})
	brokenZip := writeFile(t, dir, "broken.zip", []byte("not a zip"))
	large := writeFile(t, dir, "large.json", make([]byte, 2048))

	tests := []struct {
		name   string
		path   string
		valid  bool
		kind   Kind
		errMsg string
	}{
		{name: "sidecar", path: sidecar, valid: true, kind: KindSidecar},
		{name: "archive", path: archive, valid: true, kind: KindArchive},
		{name: "broken archive", path: brokenZip, kind: KindArchive, errMsg: "invalid archive"},
		{name: "too large", path: large, kind: KindSidecar, errMsg: "file too large"},
		{name: "directory", path: dir, errMsg: "is a directory"},
		{name: "empty path", path: "", errMsg: "path cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateFile(tt.path)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.kind, result.Kind)
			assert.Equal(t, tt.valid, v.IsValid(tt.path))
			if tt.errMsg != "" {
				assert.Contains(t, result.Message, tt.errMsg)
			}
		})
	}
}
