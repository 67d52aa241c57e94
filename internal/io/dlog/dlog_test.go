package dlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mimecast/zeekagent/internal/testutil"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: FormatJSON, Output: &buf})

	msg := log.Warn("conn.log", "Truncated row", 12)
	testutil.AssertEqual(t, "conn.log|Truncated row|12", msg)

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	testutil.AssertEqual(t, "warn", event["level"])
	testutil.AssertEqual(t, "conn.log|Truncated row|12", event["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: FormatJSON, Output: &buf})

	msg := log.Info("dns.log", "Mapping")
	testutil.AssertEqual(t, "dns.log|Mapping", msg)
	testutil.AssertEqual(t, 0, buf.Len())
}

func TestErrorArgument(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: FormatJSON, Output: &buf})

	msg := log.Error("ssl.log", errors.New("boom"))
	testutil.AssertEqual(t, "ssl.log", msg)

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	testutil.AssertEqual(t, "boom", event["error"])
	testutil.AssertNotContains(t, event["message"].(string), "boom")
}

func TestEmptyArgumentsDropped(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: FormatJSON, Output: &buf})

	msg := log.Warn("", "Truncated row", errors.New("line 4 has 2 of 6 fields"))
	testutil.AssertEqual(t, "Truncated row", msg)

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	testutil.AssertEqual(t, "Truncated row", event["message"])
	testutil.AssertEqual(t, "line 4 has 2 of 6 fields", event["error"])
}

func TestStartRejectsUnknownSettings(t *testing.T) {
	testutil.AssertError(t, Start(Config{Level: "loud"}), "unknown log level")
	testutil.AssertError(t, Start(Config{Level: "info", Format: "xml"}), "unknown log format")
}
