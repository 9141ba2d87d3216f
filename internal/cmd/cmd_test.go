package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/require"

	apperrors "github.com/personalens/personalens/internal/errors"
	"github.com/personalens/personalens/internal/output"
)

func TestSanitizeFilename(t *testing.T) {
	require.Equal(t, "jack", sanitizeFilename("Jack"))
	require.Equal(t, "some-user", sanitizeFilename("@Some User!"))
	require.Equal(t, "output", sanitizeFilename("///"))
}

func TestOutputExtension(t *testing.T) {
	require.Equal(t, "json", outputExtension(output.FormatJSON))
	require.Equal(t, "md", outputExtension(output.FormatMarkdown))
	require.Equal(t, "txt", outputExtension(output.FormatTable))
}

func TestOpenSinkStdout(t *testing.T) {
	sink, err := openSink("")
	require.NoError(t, err)
	require.Equal(t, "-", sink.path)
	require.Same(t, os.Stdout, sink.writer)
	require.NoError(t, sink.close())
}

func TestOpenSinkCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	sink, err := openSink(path)
	require.NoError(t, err)
	require.Equal(t, path, sink.path)
	require.NoError(t, sink.close())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"not found", apperrors.NotFound("apify", "jack", "gone"), foundry.ExitFileNotFound},
		{"empty result", apperrors.EmptyResult("gemini", "jack", "nothing"), foundry.ExitFileNotFound},
		{"rate limited", apperrors.RateLimited("apify", time.Minute, "slow down"), foundry.ExitExternalServiceUnavailable},
		{"transient", apperrors.Transient("apify", "boom", nil), foundry.ExitExternalServiceUnavailable},
		{"plain errors classify as transient", os.ErrClosed, foundry.ExitExternalServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}
