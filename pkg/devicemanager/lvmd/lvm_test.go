package lvmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils/exec"
	"github.com/carina-io/mdlvm/utils/exec/mocks"
)

var (
	lvscanResult = `  WARNING: Not using lvmetad because config setting use_lvmetad=0.
  ACTIVE            '/dev/lvm-raid-0/lvm0' [<2.00 TiB] inherit
  inactive          '/dev/lvm-raid-1/lvm1' [1.00 TiB] inherit`

	vgdisplayResult = `  --- Volume group ---
  VG Name               lvm-raid-0
  System ID
  Format                lvm2
  Metadata Areas        1
  VG Access             read/write
  VG Status             resizable
  VG Size               <2.00 TiB
  PE Size               4.00 MiB
  Total PE              524256
  Alloc PE / Size       0 / 0
  Free  PE / Size       524256 / <2.00 TiB
  VG UUID               TJg2Kd-SYse-5ufS-Qj3r-wmLd-JlXd-r8JSyT`

	pvdisplayResult = `  /dev/md127:lvm-raid-0:4294705152:-1:8:8:-1:4096:524256:0:524256:OiNoxD-Y1sw-FSzi-mqPN-07EW-C77P-TNdtc6`

	vgsResult = `  LVM2_VG_NAME='lvm-raid-0',LVM2_PV_COUNT='1',LVM2_LV_COUNT='1',LVM2_VG_ATTR='wz--n-',LVM2_VG_SIZE='2198956621824',LVM2_VG_FREE='0'
  LVM2_VG_NAME='vg00',LVM2_PV_COUNT='2',LVM2_LV_COUNT='1',LVM2_VG_ATTR='wz--n-',LVM2_VG_SIZE='8001566015488',LVM2_VG_FREE='5802542759936'`

	pvscanResult = `  PV /dev/md10   VG lvm-raid-10     lvm2 [<2.00 TiB / 0    free]
  Total: 1 [<2.00 TiB] / in use: 1 [<2.00 TiB] / in no VG: 0 [0   ]`

	vgscanResult = `  Reading all physical volumes.  This may take a while...
  Found volume group "lvm-raid-10" using metadata type lvm2`
)

func newLvm(t *testing.T) (*Lvm2Implement, *mocks.Executor) {
	m := &mocks.Executor{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return NewLvm2(exec.NewRunner(m, zap.NewNop().Sugar())), m
}

func TestParseLVScan(t *testing.T) {
	entries := parseLVScan(lvscanResult)
	assert.Equal(t, []types.LVScanEntry{
		{Path: "/dev/lvm-raid-0/lvm0", Active: true},
		{Path: "/dev/lvm-raid-1/lvm1", Active: false},
	}, entries)
	assert.Empty(t, parseLVScan(""))

	entries = parseLVScan(`  ACTIVE   Original '/dev/lvm-raid-0/lvm0' [<2.00 TiB] inherit
  inactive Snapshot '/dev/lvm-raid-0/snap0' [10.00 GiB] inherit
  WARNING: Not using lvmetad because config setting use_lvmetad=0.`)
	assert.Equal(t, []types.LVScanEntry{
		{Path: "/dev/lvm-raid-0/lvm0", Active: true},
		{Path: "/dev/lvm-raid-0/snap0", Active: false},
	}, entries)
}

func TestParseVGDisplay(t *testing.T) {
	report, err := parseVGDisplay(vgdisplayResult)
	assert.NoError(t, err)
	assert.Equal(t, "lvm-raid-0", report.Name)
	assert.Equal(t, uint64(524256), report.TotalPE)
	assert.Equal(t, uint64(0), report.AllocPE)
	assert.Equal(t, uint64(524256), report.FreePE)

	_, err = parseVGDisplay(`  Volume group "lvm-raid-9" not found`)
	assert.Error(t, err)
}

func TestParsePVDisplayColon(t *testing.T) {
	assert.Equal(t, &types.PVReport{PVName: "/dev/md127", VGName: "lvm-raid-0"}, parsePVDisplayColon(pvdisplayResult))
	assert.Nil(t, parsePVDisplayColon(`  WARNING: Device /dev/md127: not found`))
}

func TestParseVgs(t *testing.T) {
	vgs := parseVgs(vgsResult)
	assert.Len(t, vgs, 2)
	assert.Equal(t, "lvm-raid-0", vgs[0].VGName)
	assert.Equal(t, uint64(2198956621824), vgs[0].VGSize)
	assert.Equal(t, uint64(5802542759936), vgs[1].VGFree)
	assert.Equal(t, uint64(2), vgs[1].PVCount)
}

func TestContainsToken(t *testing.T) {
	assert.True(t, ContainsToken(pvscanResult, "/dev/md10"))
	assert.False(t, ContainsToken(pvscanResult, "/dev/md1"))
	assert.True(t, ContainsToken(vgscanResult, "lvm-raid-10"))
	assert.False(t, ContainsToken(vgscanResult, "lvm-raid-1"))
}

func TestLvmCommands(t *testing.T) {
	lvm, m := newLvm(t)

	m.Expect(lvscanResult, nil, "lvscan")
	out, entries := lvm.LVScan()
	assert.Equal(t, lvscanResult, out)
	assert.Len(t, entries, 2)

	m.Expect(vgdisplayResult, nil, "vgdisplay", "lvm-raid-0")
	report, err := lvm.VGDisplay("lvm-raid-0")
	assert.NoError(t, err)
	assert.Equal(t, uint64(524256), report.FreePE)

	m.Expect("", nil, "lvcreate", "-l", "524256", "lvm-raid-0", "-n", "lvm0")
	assert.NoError(t, lvm.LVCreateExtents("lvm0", "lvm-raid-0", report.FreePE))
	assert.Error(t, lvm.LVCreateExtents("lvm0", "lvm-raid-0", 0))

	m.ExpectOutput(pvdisplayResult, nil, "pvdisplay", "-c", "/dev/md127")
	assert.Equal(t, "lvm-raid-0", lvm.PVDisplay("/dev/md127").VGName)

	m.ExpectOutput(`  Failed to find physical volume "/dev/md0".`, errors.New("exit status 5"), "pvdisplay", "-c", "/dev/md0")
	assert.Nil(t, lvm.PVDisplay("/dev/md0"))

	m.Expect("", nil, "vgchange", "--available", "n", "lvm-raid-0")
	assert.NoError(t, lvm.VGChange("lvm-raid-0", false))
	m.Expect("", nil, "vgchange", "--available", "y", "lvm-raid-0")
	assert.NoError(t, lvm.VGChange("lvm-raid-0", true))
	m.Expect("", nil, "vgchange", "-ay")
	assert.NoError(t, lvm.VGActivateAll())

	m.Expect("", errors.New("exit status 5"), "pvcreate", "/dev/md0")
	assert.Error(t, lvm.PVCreate("/dev/md0"))
	m.Expect("", nil, "vgcreate", "lvm-raid-0", "/dev/md0")
	assert.NoError(t, lvm.VGCreate("lvm-raid-0", "/dev/md0"))

	m.ExpectOutput(vgsResult, nil, "vgs", "-o", "VG_NAME,PV_COUNT,LV_COUNT,VG_ATTR,VG_SIZE,VG_FREE",
		"--noheadings", "--separator=,", "--units=b", "--nosuffix", "--unbuffered", "--nameprefixes")
	vgs, err := lvm.VGS()
	assert.NoError(t, err)
	assert.Len(t, vgs, 2)
}
