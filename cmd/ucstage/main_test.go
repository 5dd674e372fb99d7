package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/clktmr/ucode/staging"
)

func writeImage(t *testing.T, size int) string {
	path := filepath.Join(t.TempDir(), "ucode.bin")
	image := make([]byte, size)
	for i := range image {
		image[i] = byte(i * 7)
	}
	if err := os.WriteFile(path, image, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStageSimulated(t *testing.T) {
	metrics := filepath.Join(t.TempDir(), "staging.prom")
	opts := options{sim: true, timeout: staging.DefaultTimeout, metrics: metrics}

	if err := stage(logr.Discard(), writeImage(t, 3*staging.DefaultChunkSize+16), opts); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	for _, expected := range []string{
		`ucode_staging_transfers_total{result="ok"} 1`,
		`ucode_staging_requests_total 4`,
	} {
		if !strings.Contains(string(data), expected) {
			t.Errorf("metrics lack %q:\n%s", expected, data)
		}
	}
}

func TestStageErrors(t *testing.T) {
	tests := map[string]struct {
		path string
		opts options
		err  error
	}{
		"missingImage": {filepath.Join(t.TempDir(), "missing"), options{sim: true}, os.ErrNotExist},
		"unaligned":    {writeImage(t, 10), options{sim: true}, staging.ErrInvalidImage},
		"noDevice":     {writeImage(t, 16), options{devmem: filepath.Join(t.TempDir(), "mem")}, staging.ErrUnavailable},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := stage(logr.Discard(), tc.path, tc.opts)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}
