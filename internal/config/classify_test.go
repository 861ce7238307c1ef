package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultClassifyConfig(t *testing.T) {
	cfg := DefaultClassifyConfig()

	if cfg.NumClasses == nil || *cfg.NumClasses != 3 {
		t.Errorf("Expected NumClasses 3, got %v", cfg.NumClasses)
	}
	if cfg.ExcludeNonPositive == nil || *cfg.ExcludeNonPositive != true {
		t.Errorf("Expected ExcludeNonPositive true, got %v", cfg.ExcludeNonPositive)
	}
	if cfg.Compression == nil || *cfg.Compression != "lzw" {
		t.Errorf("Expected Compression 'lzw', got %v", cfg.Compression)
	}
	if cfg.MaxSampleSize == nil || *cfg.MaxSampleSize != 3000 {
		t.Errorf("Expected MaxSampleSize 3000, got %v", cfg.MaxSampleSize)
	}

	if cfg.GetMaskNonPositive() != false {
		t.Errorf("GetMaskNonPositive() = %v, want false", cfg.GetMaskNonPositive())
	}
	if cfg.GetUpperInclusive() != false {
		t.Errorf("GetUpperInclusive() = %v, want false", cfg.GetUpperInclusive())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEmptyClassifyConfigGetters(t *testing.T) {
	cfg := EmptyClassifyConfig()

	if cfg.GetNumClasses() != 3 {
		t.Errorf("GetNumClasses() = %d, want 3", cfg.GetNumClasses())
	}
	if cfg.GetWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("GetWorkers() = %d, want GOMAXPROCS", cfg.GetWorkers())
	}
	if cfg.GetPlotDir() != "" || cfg.GetHistoryDB() != "" {
		t.Error("side outputs should be disabled by default")
	}
	if cfg.GetCompression() != "lzw" {
		t.Errorf("GetCompression() = %q, want lzw", cfg.GetCompression())
	}
}

func TestLoadClassifyConfig_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "classify.json")

	testJSON := `{
  "num_classes": 5,
  "exclude_non_positive": false,
  "compression": "DEFLATE",
  "workers": 2
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadClassifyConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetNumClasses() != 5 {
		t.Errorf("Expected NumClasses 5, got %d", cfg.GetNumClasses())
	}
	if cfg.GetExcludeNonPositive() != false {
		t.Error("Expected ExcludeNonPositive false")
	}
	if cfg.GetCompression() != "deflate" {
		t.Errorf("Expected compression deflate, got %q", cfg.GetCompression())
	}
	if cfg.GetWorkers() != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.GetWorkers())
	}
	// Omitted fields keep their defaults.
	if cfg.GetMaxSampleSize() != 3000 {
		t.Errorf("Expected default MaxSampleSize, got %d", cfg.GetMaxSampleSize())
	}
}

func TestLoadClassifyConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "classify.yaml")

	testYAML := `num_classes: 7
upper_inclusive: true
max_sample_size: 5000
plot_dir: plots
history_db: runs.db
`
	if err := os.WriteFile(configPath, []byte(testYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadClassifyConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetNumClasses() != 7 {
		t.Errorf("Expected NumClasses 7, got %d", cfg.GetNumClasses())
	}
	if !cfg.GetUpperInclusive() {
		t.Error("Expected UpperInclusive true")
	}
	if cfg.GetMaxSampleSize() != 5000 {
		t.Errorf("Expected MaxSampleSize 5000, got %d", cfg.GetMaxSampleSize())
	}
	if cfg.GetPlotDir() != "plots" || cfg.GetHistoryDB() != "runs.db" {
		t.Errorf("unexpected side outputs: %q %q", cfg.GetPlotDir(), cfg.GetHistoryDB())
	}
}

func TestLoadClassifyConfigMissing(t *testing.T) {
	_, err := LoadClassifyConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadClassifyConfigBadExtension(t *testing.T) {
	_, err := LoadClassifyConfig("classify.toml")
	if err == nil {
		t.Error("Expected error for unsupported extension, got nil")
	}
}

func TestLoadClassifyConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	cases := map[string]string{
		"broken.json":   `{"num_classes": "three"`,
		"range.json":    `{"num_classes": 300}`,
		"compress.yaml": "compression: zstd\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			if _, err := LoadClassifyConfig(path); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *ClassifyConfig
		wantErr bool
	}{
		{name: "empty", cfg: EmptyClassifyConfig()},
		{name: "one class", cfg: &ClassifyConfig{NumClasses: ptrInt(1)}},
		{name: "max classes", cfg: &ClassifyConfig{NumClasses: ptrInt(MaxClasses)}},
		{name: "zero classes", cfg: &ClassifyConfig{NumClasses: ptrInt(0)}, wantErr: true},
		{name: "too many classes", cfg: &ClassifyConfig{NumClasses: ptrInt(256)}, wantErr: true},
		{name: "tiny sample", cfg: &ClassifyConfig{MaxSampleSize: ptrInt(1)}, wantErr: true},
		{name: "extremes only sample", cfg: &ClassifyConfig{MaxSampleSize: ptrInt(2)}, wantErr: true},
		{name: "smallest sample", cfg: &ClassifyConfig{MaxSampleSize: ptrInt(3)}},
		{name: "negative workers", cfg: &ClassifyConfig{Workers: ptrInt(-1)}, wantErr: true},
		{name: "bad compression", cfg: &ClassifyConfig{Compression: ptrString("jpeg")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultClassifyConfig()
	base.Merge(&ClassifyConfig{NumClasses: ptrInt(9), HistoryDB: ptrString("h.db")})

	if base.GetNumClasses() != 9 {
		t.Errorf("GetNumClasses() = %d, want 9", base.GetNumClasses())
	}
	if base.GetHistoryDB() != "h.db" {
		t.Errorf("GetHistoryDB() = %q, want h.db", base.GetHistoryDB())
	}
	if base.GetCompression() != "lzw" {
		t.Error("unset override fields must not clear existing values")
	}

	base.Merge(nil)
	if base.GetNumClasses() != 9 {
		t.Error("Merge(nil) should be a no-op")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultClassifyConfig()

	if cfg.GetNumClasses() != want.GetNumClasses() {
		t.Errorf("defaults file num_classes = %d, want %d", cfg.GetNumClasses(), want.GetNumClasses())
	}
	if cfg.GetCompression() != want.GetCompression() {
		t.Errorf("defaults file compression = %q, want %q", cfg.GetCompression(), want.GetCompression())
	}
	if cfg.GetExcludeNonPositive() != want.GetExcludeNonPositive() {
		t.Error("defaults file exclude_non_positive disagrees with getter default")
	}
}
