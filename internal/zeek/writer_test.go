package zeek

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
	"github.com/mimecast/zeekagent/internal/testutil"
)

func TestWriterLifecycle(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	err := w.Write(&Comment{Text: "too early"})
	if !errors.Is(err, errors.ErrHeaderNotWritten) {
		t.Errorf("expected ErrHeaderNotWritten, got %v", err)
	}

	h := NewHeader("\t")
	h.Set(KeyPath, "conn")
	testutil.AssertNoError(t, w.WriteHeader(h))

	err = w.WriteHeader(h)
	if !errors.Is(err, errors.ErrHeaderWritten) {
		t.Errorf("expected ErrHeaderWritten, got %v", err)
	}
	testutil.AssertNoError(t, w.Close())
	testutil.AssertEqual(t, "#separator \\x09\n#path\tconn\n", out.String())
}

func TestWriterAppendedFields(t *testing.T) {
	r, err := NewReader(strings.NewReader(scenarioHeader + "100\t10.0.0.1\t10.0.0.2\n#close\tx\n"))
	testutil.AssertNoError(t, err)

	h := r.Header()
	testutil.AssertNoError(t, h.AppendField("agent_hostname", "string"))

	var out bytes.Buffer
	w := NewWriter(&out)
	testutil.AssertNoError(t, w.WriteHeader(h))
	for _, rec := range readAll(t, r) {
		if row, ok := rec.(*Row); ok {
			testutil.AssertNoError(t, row.AppendString("agent_hostname", "Carol"))
		}
		testutil.AssertNoError(t, w.Write(rec))
	}
	testutil.AssertNoError(t, w.Close())

	expected := "#separator \\x09\n#set_separator\t,\n" +
		"#fields\tts\tid.orig_h\tid.resp_h\tagent_hostname\n" +
		"#types\ttime\taddr\taddr\tstring\n" +
		"100\t10.0.0.1\t10.0.0.2\tCarol\n" +
		"#close\tx\n"
	testutil.AssertEqual(t, expected, out.String())
}

func TestWriterSequenceUsesSetSeparator(t *testing.T) {
	h := NewHeader("|")
	h.Set(KeySetSeparator, ";")
	h.Set(KeyFields, "uid|names")
	h.Set(KeyTypes, "string|set[string]")

	var out bytes.Buffer
	w := NewWriter(&out)
	testutil.AssertNoError(t, w.WriteHeader(h))
	testutil.AssertNoError(t, w.Write(NewRow(
		Field{Name: "uid", Type: "string", Value: String("C1")},
		Field{Name: "names", Type: "set[string]", Value: Strings("a", "b")},
	)))
	testutil.AssertNoError(t, w.Flush())

	testutil.AssertContains(t, out.String(), "\nC1|a;b\n")
}

func TestCreateCompressedReadsBack(t *testing.T) {
	dir := testutil.TempDir(t)
	for _, kind := range []compress.Kind{compress.None, compress.Gzip, compress.Zstd, compress.Snappy} {
		t.Run(kind.String(), func(t *testing.T) {
			path := filepath.Join(dir, "conn.log"+kind.Suffix())

			r, err := NewReader(strings.NewReader(connLog))
			testutil.AssertNoError(t, err)
			w, err := Create(path, kind)
			testutil.AssertNoError(t, err)
			testutil.AssertNoError(t, w.WriteHeader(r.Header()))
			for _, rec := range readAll(t, r) {
				testutil.AssertNoError(t, w.Write(rec))
			}
			testutil.AssertNoError(t, w.Close())

			back, err := Open(path)
			testutil.AssertNoError(t, err)
			defer back.Close()

			var out bytes.Buffer
			copyW := NewWriter(&out)
			testutil.AssertNoError(t, copyW.WriteHeader(back.Header()))
			for _, rec := range readAll(t, back) {
				testutil.AssertNoError(t, copyW.Write(rec))
			}
			testutil.AssertNoError(t, copyW.Close())
			testutil.AssertEqual(t, connLog, out.String())
		})
	}
}
