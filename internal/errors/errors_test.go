package errors

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *SyncError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestIsCategory(t *testing.T) {
	configErr := ConfigRequired("base-url")
	archiveErr := ArchiveParse("/srv/rs/changelistarchive.xml", fmt.Errorf("EOF"))
	wrapped := fmt.Errorf("update: %w", archiveErr)
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match archive category", configErr, CategoryArchiveParse, false},
		{"wrapped archive error is found", wrapped, CategoryArchiveParse, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsCategory(test.err, test.category); got != test.expected {
				t.Errorf("IsCategory() = %v, want %v", got, test.expected)
			}
		})
	}
}

func TestGetCategory(t *testing.T) {
	assert.Equal(t, CategoryRepository, GetCategory(RepositoryAccess("items", fmt.Errorf("closed"))))
	assert.Equal(t, CategoryInternal, GetCategory(fmt.Errorf("plain")))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := SerializationFailed("resourcelist.xml", cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "resourcelist.xml", err.Context["document"])
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{fmt.Errorf("x"), 1},
		{ValidationFailed("mode", "exactly one"), 2},
		{NotADirectory("/tmp/file"), 3},
		{ArchiveParse("a.xml", fmt.Errorf("bad")), 4},
		{ConfigRequired("resourcesync.dir"), 7},
		{RepositoryAccess("changed", fmt.Errorf("locked")), 8},
		{SerializationFailed("capabilitylist.xml", fmt.Errorf("x")), 11},
		{InternalError("boom", nil), 10},
	}
	for _, c := range cases {
		assert.Equal(t, c.code, a.ExitCodeFor(c.err), "%v", c.err)
	}
}

func TestCLIErrorAdapter_FormatIncludesCause(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	msg := a.FormatError(DirectoryError("wipe", "/srv/rs", fmt.Errorf("permission denied")))
	assert.Equal(t, "directory: output directory operation failed: permission denied", msg)

	msg = a.FormatError(ConfigRequired("base-url"))
	assert.Equal(t, "required configuration missing field=base-url", msg)
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var out bytes.Buffer
	code := -1
	a := NewCLIErrorAdapter(false, nil)
	a.out = &out
	a.exit = func(c int) { code = c }

	a.HandleError(NotInitialized("/srv/rs"))

	assert.Equal(t, 3, code)
	assert.Contains(t, out.String(), "run init first")
}
