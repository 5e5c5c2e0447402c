package devicemanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/carina-io/mdlvm/pkg/devicemanager/device"
	"github.com/carina-io/mdlvm/pkg/devicemanager/lvmd"
	"github.com/carina-io/mdlvm/pkg/devicemanager/raid"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/pkg/devicemanager/volume"
	"github.com/carina-io/mdlvm/pkg/devicemanager/wait"
	"github.com/carina-io/mdlvm/pkg/filesystem"
	"github.com/carina-io/mdlvm/utils/exec"
	"github.com/carina-io/mdlvm/utils/exec/mocks"
)

const (
	mdstatNone = `Personalities :
unused devices: <none>
`
	mdstatRenamed = `Personalities : [raid0]
md127 : active raid0 sdc[1] sdb[0]
      2147221504 blocks super 1.2 256k chunks

unused devices: <none>
`
	examineSuperblock = `/dev/sdb:
          Magic : a92b4efc
        Version : 1.2
     Array UUID : 3aaa0122:29827cfa:5331ad66:ca767371
     Raid Level : raid0`
	examineBare = `mdadm: No md superblock detected on /dev/sdb.`

	detailRenamed = `ARRAY /dev/md127 metadata=1.2 name=ip-10-0-0-1:0 UUID=3aaa0122:29827cfa:5331ad66:ca767371`

	pvscanMD127 = `  PV /dev/md127   VG lvm-raid-0      lvm2 [<2.00 TiB / 0    free]
  Total: 1 [<2.00 TiB] / in use: 1 [<2.00 TiB] / in no VG: 0 [0   ]`
	vgscanRaid0   = `  Found volume group "lvm-raid-0" using metadata type lvm2`
	lvscanRaid0   = `  ACTIVE            '/dev/lvm-raid-0/lvm0' [<2.00 TiB] inherit`
	vgdisplayFree = `  --- Volume group ---
  VG Name               lvm-raid-0
  Total PE              524256
  Alloc PE / Size       0 / 0
  Free  PE / Size       524256 / <2.00 TiB`

	mtabData = `/dev/nvme0n1p1 / ext4 rw,relatime 0 0
/dev/mapper/lvm--raid--0-lvm0 /data ext4 rw,noatime 0 0
`
)

type alwaysPresent struct {
	seen []string
}

func (a *alwaysPresent) IsBlockDevice(path string) (bool, error) {
	a.seen = append(a.seen, path)
	return true, nil
}

type nopFormatter struct {
	targets []string
}

func (n *nopFormatter) FormatAndMount(source, target, fstype string, options []string) error {
	n.targets = append(n.targets, target)
	return nil
}

var _ = Describe("DeviceManager", func() {
	var (
		m         *mocks.Executor
		dm        *DeviceManager
		checker   *alwaysPresent
		formatter *nopFormatter
		procDir   string
		tmpDir    string
		ctx       context.Context
		spec      types.VolumeSpec
	)

	writeMDStat := func(content string) {
		Expect(os.WriteFile(filepath.Join(procDir, "mdstat"), []byte(content), 0644)).To(Succeed())
	}

	expectDiskTuning := func(disks ...string) {
		for _, d := range disks {
			m.Expect("", nil, "blockdev", "--setra", "65536", d)
		}
	}

	// everything already built, running as /dev/md127
	expectProvisionedRun := func() {
		expectDiskTuning("/dev/sdb", "/dev/sdc")
		m.Expect(examineSuperblock, nil, "mdadm", "--examine", "/dev/sdb")
		m.Expect(detailRenamed, nil, "mdadm", "--detail", "--scan")
		m.Expect(detailRenamed, nil, "mdadm", "--detail", "--scan")
		expectDiskTuning("/dev/md127")
		m.Expect(pvscanMD127, nil, "pvscan")
		m.Expect(vgscanRaid0, nil, "vgscan")
		m.Expect(lvscanRaid0, nil, "lvscan")
		m.Expect(lvscanRaid0, nil, "lvscan")
		expectDiskTuning("/dev/lvm-raid-0/lvm0")
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		tmpDir, err = os.MkdirTemp("", "devicemanager")
		Expect(err).NotTo(HaveOccurred())
		procDir = filepath.Join(tmpDir, "proc")
		Expect(os.Mkdir(procDir, 0755)).To(Succeed())
		writeMDStat(mdstatNone)
		mtab := filepath.Join(tmpDir, "mtab")
		Expect(os.WriteFile(mtab, []byte(mtabData), 0644)).To(Succeed())

		m = &mocks.Executor{}
		logger := zap.NewNop().Sugar()
		runner := exec.NewRunner(m, logger)
		lvm := lvmd.NewLvm2(runner)
		mdstat, err := raid.NewProcMDStat(procDir)
		Expect(err).NotTo(HaveOccurred())

		checker = &alwaysPresent{}
		poller := wait.NewPoller(wait.RetryPolicy{Interval: time.Second}, checker, lvm, logger)
		poller.Sleep = func(context.Context, time.Duration) error { return nil }
		formatter = &nopFormatter{}

		dm = &DeviceManager{
			Runner:        runner,
			Raid:          raid.NewRaid(runner, mdstat, lvm),
			VolumeManager: volume.NewLocalVolume(lvm, poller, logger),
			Poller:        poller,
			Translator:    &device.Translator{Virtualized: func() bool { return false }, Log: logger},
			Mounter: &filesystem.Mounter{
				Formatter:  formatter,
				MountTable: mtab,
				Options:    []string{"noatime"},
				Log:        logger,
			},
			ReadAhead: 65536,
			ChunkSize: 256,
			Log:       logger,
			statuses:  map[string]types.VolumeStatus{},
		}

		spec = types.VolumeSpec{
			Device:     "/dev/md0",
			Disks:      []string{"/dev/sdb", "/dev/sdc"},
			RaidLevel:  0,
			FSType:     "ext4",
			MountPoint: "/data",
		}
	})

	AfterEach(func() {
		m.AssertExpectations(GinkgoT())
		Expect(os.RemoveAll(tmpDir)).To(Succeed())
	})

	Context("blank disks", func() {
		It("creates the array and the whole lvm stack", func() {
			expectDiskTuning("/dev/sdb", "/dev/sdc")
			m.Expect(examineBare, errors.New("exit status 1"), "mdadm", "--examine", "/dev/sdb")
			m.ExpectInput("mdadm: array /dev/md0 started.", nil, "mdadm", "--create", "--chunk=256", "--metadata=1.2",
				"--verbose", "/dev/md0", "--level=0", "--raid-devices=2", "/dev/sdb", "/dev/sdc")
			expectDiskTuning("/dev/md0")
			m.Expect("  No matching physical volumes found", nil, "pvscan")
			m.Expect("", nil, "pvcreate", "/dev/md0")
			m.Expect("", nil, "vgscan")
			m.Expect("", nil, "vgcreate", "lvm-raid-0", "/dev/md0")
			m.Expect("", nil, "lvscan")
			m.Expect("", nil, "lvscan")
			m.Expect(vgdisplayFree, nil, "vgdisplay", "lvm-raid-0")
			m.Expect("", nil, "lvcreate", "-l", "524256", "lvm-raid-0", "-n", "lvm0")
			expectDiskTuning("/dev/lvm-raid-0/lvm0")

			actual, err := dm.EnsureVolumeReady(ctx, spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(actual).To(Equal("/dev/md0"))
			Expect(checker.seen).To(Equal([]string{"/dev/sdb", "/dev/sdc", "/dev/lvm-raid-0/lvm0"}))
		})

		It("stops at a failed create", func() {
			expectDiskTuning("/dev/sdb", "/dev/sdc")
			m.Expect(examineBare, errors.New("exit status 1"), "mdadm", "--examine", "/dev/sdb")
			m.ExpectInput("mdadm: /dev/sdb appears to contain an ext2fs file system", errors.New("exit status 1"),
				"mdadm", "--create", "--chunk=256", "--metadata=1.2", "--verbose", "/dev/md0",
				"--level=0", "--raid-devices=2", "/dev/sdb", "/dev/sdc")

			_, err := dm.EnsureVolumeReady(ctx, spec)
			Expect(err).To(HaveOccurred())
			var cmdErr *exec.CommandError
			Expect(errors.As(err, &cmdErr)).To(BeTrue())
			Expect(cmdErr.Output).To(ContainSubstring("ext2fs"))
			m.AssertNotCalled(GinkgoT(), "ExecuteCommandWithCombinedOutput", "pvcreate", []string{"/dev/md0"})
		})
	})

	Context("array renamed by autoassembly", func() {
		BeforeEach(func() {
			writeMDStat(mdstatRenamed)
		})

		It("follows the disks to the kernel assigned name", func() {
			expectProvisionedRun()

			actual, err := dm.EnsureVolumeReady(ctx, spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(actual).To(Equal("/dev/md127"))
		})

		It("finds the same array whatever the disk order", func() {
			spec.Disks = []string{"/dev/sdc", "/dev/sdb"}
			// first disk examined is now sdc
			expectDiskTuning("/dev/sdc", "/dev/sdb")
			m.Expect(examineSuperblock, nil, "mdadm", "--examine", "/dev/sdc")
			m.Expect(detailRenamed, nil, "mdadm", "--detail", "--scan")
			m.Expect(detailRenamed, nil, "mdadm", "--detail", "--scan")
			expectDiskTuning("/dev/md127")
			m.Expect(pvscanMD127, nil, "pvscan")
			m.Expect(vgscanRaid0, nil, "vgscan")
			m.Expect(lvscanRaid0, nil, "lvscan")
			m.Expect(lvscanRaid0, nil, "lvscan")
			expectDiskTuning("/dev/lvm-raid-0/lvm0")

			actual, err := dm.EnsureVolumeReady(ctx, spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(actual).To(Equal("/dev/md127"))
		})

		It("only inspects and tunes when run again", func() {
			expectProvisionedRun()
			expectProvisionedRun()

			for i := 0; i < 2; i++ {
				actual, err := dm.EnsureVolumeReady(ctx, spec)
				Expect(err).NotTo(HaveOccurred())
				Expect(actual).To(Equal("/dev/md127"))
			}

			for _, call := range m.Calls {
				command := call.Arguments.String(0)
				Expect(command).To(BeElementOf("mdadm", "pvscan", "vgscan", "lvscan", "blockdev"))
				if command == "mdadm" {
					args := call.Arguments.Get(1).([]string)
					Expect(args[0]).To(BeElementOf("--examine", "--detail"))
				}
			}
		})
	})

	Context("array on disk but not running", func() {
		It("assembles it under the declared name", func() {
			expectDiskTuning("/dev/sdb", "/dev/sdc")
			m.Expect(examineSuperblock, nil, "mdadm", "--examine", "/dev/sdb")
			m.Expect("", nil, "mdadm", "--detail", "--scan")
			m.Expect("mdadm: /dev/md0 has been started with 2 drives.", nil,
				"mdadm", "--assemble", "--verbose", "/dev/md0", "/dev/sdb", "/dev/sdc")
			expectDiskTuning("/dev/md0")
			m.Expect("  PV /dev/md0   VG lvm-raid-0      lvm2 [<2.00 TiB / 0    free]", nil, "pvscan")
			m.Expect(vgscanRaid0, nil, "vgscan")
			m.Expect(lvscanRaid0, nil, "lvscan")
			m.Expect(lvscanRaid0, nil, "lvscan")
			expectDiskTuning("/dev/lvm-raid-0/lvm0")

			actual, err := dm.EnsureVolumeReady(ctx, spec)
			Expect(err).NotTo(HaveOccurred())
			Expect(actual).To(Equal("/dev/md0"))
		})
	})

	Context("ProvisionAll", func() {
		BeforeEach(func() {
			writeMDStat(mdstatRenamed)
		})

		It("translates disk names, skips a mounted volume and records the outcome", func() {
			dm.TranslateDeviceNames = true
			dm.Translator.Virtualized = func() bool { return true }
			spec.Disks = []string{"/dev/xvdf", "/dev/xvdg"}

			m.Expect("modprobe: FATAL: Module dm-mod not found", errors.New("exit status 1"), "modprobe", "dm-mod")
			expectProvisionedRun()

			statuses, err := dm.ProvisionAll(ctx, []types.VolumeSpec{spec})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses).To(HaveLen(1))
			Expect(statuses[0].ActualDevice).To(Equal("/dev/md127"))
			Expect(statuses[0].Disks).To(Equal([]string{"/dev/sdb", "/dev/sdc"}))
			Expect(statuses[0].Action).To(Equal(types.RaidActionNone))
			Expect(statuses[0].Mounted).To(BeTrue())
			Expect(formatter.targets).To(BeEmpty())
			Expect(dm.Statuses()).To(HaveLen(1))
		})

		It("mounts a volume that is not in the mount table yet", func() {
			spec.MountPoint = filepath.Join(tmpDir, "mnt", "raid0")

			m.Expect("", nil, "modprobe", "dm-mod")
			expectProvisionedRun()

			statuses, err := dm.ProvisionAll(ctx, []types.VolumeSpec{spec})
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses[0].Mounted).To(BeTrue())
			Expect(formatter.targets).To(Equal([]string{spec.MountPoint}))
		})

		It("records the failure and stops", func() {
			second := spec
			second.Device = "/dev/md1"
			second.Disks = []string{"/dev/sdd", "/dev/sde"}

			m.Expect("", nil, "modprobe", "dm-mod")
			expectDiskTuning("/dev/sdb")
			m.Expect("blockdev: cannot open /dev/sdc", errors.New("exit status 1"), "blockdev", "--setra", "65536", "/dev/sdc")

			statuses, err := dm.ProvisionAll(ctx, []types.VolumeSpec{spec, second})
			Expect(err).To(HaveOccurred())
			Expect(statuses).To(HaveLen(1))
			Expect(statuses[0].Error).To(ContainSubstring("/dev/sdc"))
		})
	})
})
