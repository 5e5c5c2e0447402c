package device

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	cpuinfoQEMU = `processor	: 0
vendor_id	: GenuineIntel
cpu family	: 6
model		: 6
model name	: QEMU Virtual CPU version 2.5+
stepping	: 3
cpu MHz		: 2399.998
cache size	: 4096 KB
`

	cpuinfoMetal = `processor	: 0
vendor_id	: GenuineIntel
cpu family	: 6
model		: 85
model name	: Intel(R) Xeon(R) Gold 6148 CPU @ 2.40GHz
stepping	: 4
cpu MHz		: 2400.000
cache size	: 28160 KB
`
)

func translator(virtualized bool) *Translator {
	return &Translator{
		Virtualized: func() bool { return virtualized },
		Log:         zap.NewNop().Sugar(),
	}
}

func TestTranslateDeviceNames(t *testing.T) {
	testCases := []struct {
		name        string
		virtualized bool
		names       []string
		skip        int
		expected    []string
	}{
		{
			name:        "kvm guest",
			virtualized: true,
			names:       []string{"/dev/xvdf", "/dev/xvdg", "/dev/xvdh"},
			skip:        0,
			expected:    []string{"/dev/sdb", "/dev/sdc", "/dev/sdd"},
		},
		{
			name:        "kvm guest second volume",
			virtualized: true,
			names:       []string{"/dev/xvdi", "/dev/xvdj"},
			skip:        3,
			expected:    []string{"/dev/sde", "/dev/sdf"},
		},
		{
			name:        "bare metal",
			virtualized: false,
			names:       []string{"/dev/xvdf", "/dev/xvdg"},
			skip:        2,
			expected:    []string{"/dev/xvdf", "/dev/xvdg"},
		},
		{
			name:        "empty",
			virtualized: true,
			names:       []string{},
			expected:    []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := translator(tc.virtualized).TranslateDeviceNames(tc.names, tc.skip)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTranslateDeviceNamesRunsOut(t *testing.T) {
	_, err := translator(true).TranslateDeviceNames([]string{"/dev/xvdf", "/dev/xvdg"}, 24)
	assert.Error(t, err)

	got, err := translator(true).TranslateDeviceNames([]string{"/dev/xvdf"}, 24)
	assert.NoError(t, err)
	assert.Equal(t, []string{"/dev/sdz"}, got)
}

func TestOnKVM(t *testing.T) {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		t.Skip("cpuinfo fixtures are x86 formatted")
	}

	for content, expected := range map[string]bool{cpuinfoQEMU: true, cpuinfoMetal: false} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cpuinfo"), []byte(content), 0644))
		fs, err := procfs.NewFS(dir)
		require.NoError(t, err)
		assert.Equal(t, expected, OnKVM(fs))
	}

	fs, err := procfs.NewFS(t.TempDir())
	require.NoError(t, err)
	assert.False(t, OnKVM(fs))
}

func TestStatChecker(t *testing.T) {
	var c StatChecker

	ok, err := c.IsBlockDevice(filepath.Join(t.TempDir(), "sdz"))
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsBlockDevice(t.TempDir())
	assert.NoError(t, err)
	assert.False(t, ok)
}
