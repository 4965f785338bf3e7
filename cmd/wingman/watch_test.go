package main

import (
	"io"
	"testing"
)

func TestWatchRequiresBothDownloadScopeFlags(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	// One half of the download key can never match a valid item, so the pair
	// is all-or-nothing.
	cmd.SetArgs([]string{"watch", "--model-repo", "acme/model-GGUF"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when only --model-repo is set")
	}

	cmd = newRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"watch", "--file-path", "q4.bin"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when only --file-path is set")
	}
}
