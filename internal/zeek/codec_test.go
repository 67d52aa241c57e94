package zeek

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/testutil"
)

func codecFor(t *testing.T, header string) *Codec {
	t.Helper()
	h, err := ParseHeader(bufio.NewReader(strings.NewReader(header)))
	if err != nil {
		t.Fatalf("parsing header: %v", err)
	}
	return NewCodec(h)
}

const scenarioHeader = "#separator \\x09\n#set_separator\t,\n#fields\tts\tid.orig_h\tid.resp_h\n#types\ttime\taddr\taddr\n"

func TestDecodeScenario(t *testing.T) {
	c := codecFor(t, scenarioHeader)
	line := "100\t10.0.0.1\t10.0.0.2"

	rec, err := c.DecodeLine(line)
	testutil.AssertNoError(t, err)
	row, ok := rec.(*Row)
	if !ok {
		t.Fatalf("expected *Row, got %T", rec)
	}

	testutil.AssertEqual(t, 3, row.Len())
	testutil.AssertEqual(t, "100", row.Value("ts"))
	testutil.AssertEqual(t, "10.0.0.1", row.Value("id.orig_h"))
	testutil.AssertEqual(t, "10.0.0.2", row.Value("id.resp_h"))
	testutil.AssertEqual(t, "ts", row.Field(0).Name)
	testutil.AssertEqual(t, "addr", row.Field(2).Type)
	testutil.AssertEqual(t, false, row.Truncated())

	out, err := c.EncodeLine(row)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, line+"\n", out)
}

func TestDecodeContainer(t *testing.T) {
	c := codecFor(t, "#separator \\x09\n#set_separator\t,\n#fields\tuid\tnames\n#types\tstring\tvector[string]\n")

	tests := []struct {
		name     string
		token    string
		expected []string
	}{
		{"three elements", "a,b,c", []string{"a", "b", "c"}},
		{"single element", "a", []string{"a"}},
		{"empty token is one empty element", "", []string{""}},
		{"unset placeholder is an ordinary string", "-", []string{"-"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := c.DecodeLine("C1\t" + tt.token)
			testutil.AssertNoError(t, err)

			field, ok := rec.(*Row).Get("names")
			testutil.AssertEqual(t, true, ok)
			testutil.AssertEqual(t, Sequence, field.Value.Kind())
			elems := field.Value.Elems()
			testutil.AssertEqual(t, len(tt.expected), len(elems))
			for i := range tt.expected {
				testutil.AssertEqual(t, tt.expected[i], elems[i])
			}

			out, err := c.EncodeLine(rec)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, "C1\t"+tt.token+"\n", out)
		})
	}
}

func TestIsContainer(t *testing.T) {
	testutil.AssertEqual(t, true, IsContainer("set[addr]"))
	testutil.AssertEqual(t, true, IsContainer("vector[interval]"))
	testutil.AssertEqual(t, false, IsContainer("string"))
	testutil.AssertEqual(t, false, IsContainer("set[addr"))
	testutil.AssertEqual(t, false, IsContainer("table[string]"))
}

func TestCommentPassthrough(t *testing.T) {
	c := codecFor(t, scenarioHeader)

	rec, err := c.DecodeLine("#close 2020-01-01")
	testutil.AssertNoError(t, err)
	comment, ok := rec.(*Comment)
	if !ok {
		t.Fatalf("expected *Comment, got %T", rec)
	}
	testutil.AssertEqual(t, "close 2020-01-01", comment.Text)

	out, err := c.EncodeLine(comment)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "#close 2020-01-01\n", out)
}

// Short rows decode permissively: only the present tokens are mapped.
func TestDecodeTruncatedRowIsPermissive(t *testing.T) {
	c := codecFor(t, scenarioHeader)

	rec, err := c.DecodeLine("100\t10.0.0.1")
	testutil.AssertNoError(t, err)
	row := rec.(*Row)
	testutil.AssertEqual(t, 2, row.Len())
	testutil.AssertEqual(t, true, row.Truncated())
	_, ok := row.Get("id.resp_h")
	testutil.AssertEqual(t, false, ok)

	out, err := c.EncodeLine(row)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "100\t10.0.0.1\n", out)
}

func TestDecodeExtraTokens(t *testing.T) {
	c := codecFor(t, scenarioHeader)
	_, err := c.DecodeLine("100\t10.0.0.1\t10.0.0.2\textra")
	if !errors.Is(err, errors.ErrExtraFields) {
		t.Errorf("expected ErrExtraFields, got %v", err)
	}
}

func TestMissingSchemaFailsOnFirstRow(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no fields", "#separator \\x09\n#types\ttime\n"},
		{"no types", "#separator \\x09\n#fields\tts\n"},
		{"length mismatch", "#separator \\x09\n#fields\tts\tuid\n#types\ttime\n"},
		{"container without set_separator", "#separator \\x09\n#fields\tts\tnames\n#types\ttime\tset[string]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := codecFor(t, tt.header)

			rec, err := c.DecodeLine("#comments still decode")
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, "comments still decode", rec.(*Comment).Text)

			_, err = c.DecodeLine("100")
			if !errors.Is(err, errors.ErrMissingSchema) {
				t.Errorf("expected ErrMissingSchema, got %v", err)
			}
		})
	}
}

func TestEncodeInvalidValue(t *testing.T) {
	c := codecFor(t, scenarioHeader)
	row := NewRow(
		Field{Name: "ts", Type: "time", Value: String("100")},
		Field{Name: "broken", Type: "string"},
	)

	var buf bytes.Buffer
	err := c.Encode(&buf, row)
	if !errors.Is(err, errors.ErrInvalidFieldValue) {
		t.Errorf("expected ErrInvalidFieldValue, got %v", err)
	}
	testutil.AssertContains(t, err.Error(), "broken")
}

func TestRowAppend(t *testing.T) {
	c := codecFor(t, scenarioHeader)
	rec, err := c.DecodeLine("100\t10.0.0.1\t10.0.0.2")
	testutil.AssertNoError(t, err)
	row := rec.(*Row)

	testutil.AssertNoError(t, row.AppendString("label", "Bob"))
	testutil.AssertEqual(t, 4, row.Len())
	testutil.AssertEqual(t, "ts", row.Field(0).Name)
	testutil.AssertEqual(t, "id.orig_h", row.Field(1).Name)
	testutil.AssertEqual(t, "id.resp_h", row.Field(2).Name)
	testutil.AssertEqual(t, "label", row.Field(3).Name)
	testutil.AssertEqual(t, "string", row.Field(3).Type)
	testutil.AssertEqual(t, false, row.Truncated())

	err = row.AppendString("ts", "again")
	if !errors.Is(err, errors.ErrDuplicateField) {
		t.Errorf("expected ErrDuplicateField, got %v", err)
	}

	out, err := c.EncodeLine(row)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "100\t10.0.0.1\t10.0.0.2\tBob\n", out)
}

func TestRowAppendRejectsTruncatedRow(t *testing.T) {
	c := codecFor(t, scenarioHeader)
	rec, err := c.DecodeLine("100\t10.0.0.1")
	testutil.AssertNoError(t, err)
	row := rec.(*Row)

	err = row.AppendString("label", "Bob")
	if !errors.Is(err, errors.ErrFieldCountMismatch) {
		t.Fatalf("expected ErrFieldCountMismatch, got %v", err)
	}
	testutil.AssertContains(t, err.Error(), "2 of 3 fields")
	testutil.AssertEqual(t, 2, row.Len())
	_, ok := row.Get("label")
	testutil.AssertEqual(t, false, ok)

	out, err := c.EncodeLine(row)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "100\t10.0.0.1\n", out)
}
