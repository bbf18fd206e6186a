package config

import (
	"os"
	"testing"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()

	if cfg.IOEngine.MergeGapBytes != 256*1024 {
		t.Errorf("expected default merge gap 256KiB, got %d", cfg.IOEngine.MergeGapBytes)
	}
	if cfg.IOEngine.MaxMergedBytes != 2*1024*1024 {
		t.Errorf("expected default max merged 2MiB, got %d", cfg.IOEngine.MaxMergedBytes)
	}
	if cfg.IOEngine.QueueDepth != 128 {
		t.Errorf("expected default queue depth 128, got %d", cfg.IOEngine.QueueDepth)
	}
	if cfg.MaxAG != 0 {
		t.Errorf("expected no AG cap by default, got %d", cfg.MaxAG)
	}
	if cfg.Logger == nil {
		t.Errorf("expected a non-nil default logger")
	}
}

func TestFromEnvAppliesOverrides(t *testing.T) {
	for _, kv := range [][2]string{
		{"FXFSP_MERGE_GAP_KB", "512"},
		{"FXFSP_MAX_MERGED_KB", "4096"},
		{"FXFSP_MAX_AG", "3"},
	} {
		os.Setenv(kv[0], kv[1])
	}
	defer func() {
		os.Unsetenv("FXFSP_MERGE_GAP_KB")
		os.Unsetenv("FXFSP_MAX_MERGED_KB")
		os.Unsetenv("FXFSP_MAX_AG")
	}()

	cfg := FromEnv()

	if cfg.IOEngine.MergeGapBytes != 512*1024 {
		t.Errorf("expected merge gap 512KiB, got %d", cfg.IOEngine.MergeGapBytes)
	}
	if cfg.IOEngine.MaxMergedBytes != 4096*1024 {
		t.Errorf("expected max merged 4096KiB, got %d", cfg.IOEngine.MaxMergedBytes)
	}
	if cfg.MaxAG != 3 {
		t.Errorf("expected max AG 3, got %d", cfg.MaxAG)
	}
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	os.Setenv("FXFSP_MAX_AG", "not-a-number")
	defer os.Unsetenv("FXFSP_MAX_AG")

	cfg := FromEnv()

	if cfg.MaxAG != 0 {
		t.Errorf("expected malformed FXFSP_MAX_AG to be ignored, got %d", cfg.MaxAG)
	}
}
