package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const mtab = `/dev/nvme0n1p1 / ext4 rw,relatime,discard 0 0
proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/mapper/lvm--raid--0-lvm0 /data xfs rw,noatime,attr2,inode64,noquota 0 0
`

type recordedMount struct {
	source, target, fstype string
	options                []string
}

type fakeFormatter struct {
	mounts []recordedMount
	err    error
}

func (f *fakeFormatter) FormatAndMount(source, target, fstype string, options []string) error {
	f.mounts = append(f.mounts, recordedMount{source, target, fstype, options})
	return f.err
}

func writeTable(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "mtab")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestListedInMountTable(t *testing.T) {
	table := writeTable(t, mtab)

	testCases := []struct {
		mountPoint string
		listed     bool
	}{
		{"/data", true},
		{"/data/", true},
		{"/", true},
		{"/dat", false},
		{"/data1", false},
	}
	for _, tc := range testCases {
		listed, err := ListedInMountTable(table, tc.mountPoint)
		assert.NoError(t, err)
		assert.Equal(t, tc.listed, listed, tc.mountPoint)
	}

	_, err := ListedInMountTable(filepath.Join(t.TempDir(), "missing"), "/data")
	assert.Error(t, err)
}

func TestEnsureMounted(t *testing.T) {
	t.Run("already mounted", func(t *testing.T) {
		f := &fakeFormatter{}
		m := &Mounter{Formatter: f, MountTable: writeTable(t, mtab), Options: []string{"noatime"}, Log: zap.NewNop().Sugar()}

		done, err := m.EnsureMounted("/dev/lvm-raid-0/lvm0", "xfs", "/data")
		assert.NoError(t, err)
		assert.False(t, done)
		assert.Empty(t, f.mounts)
	})

	t.Run("creates the mount point and mounts", func(t *testing.T) {
		f := &fakeFormatter{}
		m := &Mounter{Formatter: f, MountTable: writeTable(t, mtab), Options: []string{"noatime"}, Log: zap.NewNop().Sugar()}
		target := filepath.Join(t.TempDir(), "mnt", "raid0")

		done, err := m.EnsureMounted("/dev/lvm-raid-1/lvm1", "ext4", target)
		assert.NoError(t, err)
		assert.True(t, done)
		require.Len(t, f.mounts, 1)
		assert.Equal(t, recordedMount{"/dev/lvm-raid-1/lvm1", target, "ext4", []string{"noatime"}}, f.mounts[0])

		info, err := os.Stat(target)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("mount failure", func(t *testing.T) {
		f := &fakeFormatter{err: errors.New("mount failed: exit status 32")}
		m := &Mounter{Formatter: f, MountTable: writeTable(t, mtab), Options: []string{"noatime"}, Log: zap.NewNop().Sugar()}

		_, err := m.EnsureMounted("/dev/lvm-raid-1/lvm1", "ext4", filepath.Join(t.TempDir(), "raid1"))
		assert.Error(t, err)
	})
}

func TestUsage(t *testing.T) {
	total, free, err := Usage(t.TempDir())
	require.NoError(t, err)
	assert.NotZero(t, total)
	assert.LessOrEqual(t, free, total)
}
