package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Mode", KeyMode, "update", Mode("update")},
		{"Document", KeyDocument, "resourcelist.xml", Document("resourcelist.xml")},
		{"Path", KeyPath, "/srv/rs", Path("/srv/rs")},
		{"Handle", KeyHandle, "123/45", Handle("123/45")},
		{"Format", KeyFormat, "oai_dc", Format("oai_dc")},
		{"Subject", KeySubject, "resourcesync.changes", Subject("resourcesync.changes")},
		{"WindowFrom", KeyWindowFrom, "2024-03-01T10:00:00Z", WindowFrom(ts)},
		{"WindowUntil", KeyWindowUntil, "2024-03-01T10:00:00Z", WindowUntil(ts)},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}
