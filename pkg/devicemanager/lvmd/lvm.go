/*
   Copyright @ 2021 bocloud <fushaosong@beyondcent.com>.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package lvmd

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils/exec"
)

type Lvm2Implement struct {
	Runner *exec.Runner
}

func NewLvm2(runner *exec.Runner) *Lvm2Implement {
	return &Lvm2Implement{Runner: runner}
}

// PVScan 示例输出
//
//	PV /dev/md0   VG lvm-raid-0      lvm2 [<2.00 TiB / 0    free]
//	Total: 1 [<2.00 TiB] / in use: 1 [<2.00 TiB] / in no VG: 0 [0   ]
func (lv2 *Lvm2Implement) PVScan() string {
	return lv2.Runner.Inspect("pvscan")
}

// PVDisplay
// # pvdisplay -c /dev/md0
//
//	/dev/md0:lvm-raid-0:4294705152:-1:8:8:-1:4096:524256:0:524256:OiNoxD-Y1sw-FSzi-mqPN-07EW-C77P-TNdtc6
//
// Only stdout is parsed, the warnings lvm prints on stderr also contain colons.
func (lv2 *Lvm2Implement) PVDisplay(dev string) *types.PVReport {
	out, err := lv2.Runner.InspectStdout("pvdisplay", "-c", dev)
	if err != nil {
		lv2.Runner.Log.Debugf("no physical volume on %s: %s", dev, out)
		return nil
	}
	return parsePVDisplayColon(out)
}

func (lv2 *Lvm2Implement) PVCreate(dev string) error {
	return lv2.Runner.Run("pvcreate", dev).Error()
}

// VGScan 示例输出
//
//	Reading all physical volumes.  This may take a while...
//	Found volume group "lvm-raid-0" using metadata type lvm2
func (lv2 *Lvm2Implement) VGScan() string {
	return lv2.Runner.Inspect("vgscan")
}

// VGDisplay
/*
# vgdisplay lvm-raid-0
  --- Volume group ---
  VG Name               lvm-raid-0
  System ID
  Format                lvm2
  VG Size               <2.00 TiB
  PE Size               4.00 MiB
  Total PE              524256
  Alloc PE / Size       0 / 0
  Free  PE / Size       524256 / <2.00 TiB
  VG UUID               TJg2Kd-SYse-5ufS-Qj3r-wmLd-JlXd-r8JSyT
*/
func (lv2 *Lvm2Implement) VGDisplay(vg string) (*types.VGReport, error) {
	res := lv2.Runner.Run("vgdisplay", vg)
	if err := res.Error(); err != nil {
		return nil, err
	}
	report, err := parseVGDisplay(res.Output)
	if err != nil {
		return nil, errors.Wrapf(err, "parse vgdisplay %s", vg)
	}
	return report, nil
}

// VGS 示例
// vgs --noheadings --separator=, --units=b --nosuffix --unbuffered --nameprefixes
// LVM2_VG_NAME='lvm-raid-0',LVM2_PV_COUNT='1',LVM2_LV_COUNT='1',LVM2_VG_ATTR='wz--n-',LVM2_VG_SIZE='2198956621824',LVM2_VG_FREE='0'
func (lv2 *Lvm2Implement) VGS() ([]types.VgGroup, error) {
	fields := []string{"-o", "VG_NAME,PV_COUNT,LV_COUNT,VG_ATTR,VG_SIZE,VG_FREE"}
	args := []string{"--noheadings", "--separator=,", "--units=b", "--nosuffix", "--unbuffered", "--nameprefixes"}

	vgsInfo, err := lv2.Runner.InspectStdout("vgs", append(fields, args...)...)
	if err != nil {
		return nil, errors.Wrap(err, vgsInfo)
	}
	return parseVgs(vgsInfo), nil
}

// VGCreate vgcreate lvm-raid-0 /dev/md0
func (lv2 *Lvm2Implement) VGCreate(vg string, pvs ...string) error {
	args := append([]string{vg}, pvs...)
	return lv2.Runner.Run("vgcreate", args...).Error()
}

func (lv2 *Lvm2Implement) VGChange(vg string, available bool) error {
	flag := "n"
	if available {
		flag = "y"
	}
	return lv2.Runner.Run("vgchange", "--available", flag, vg).Error()
}

func (lv2 *Lvm2Implement) VGActivateAll() error {
	return lv2.Runner.Run("vgchange", "-ay").Error()
}

// LVScan 示例输出
//
//	ACTIVE            '/dev/lvm-raid-0/lvm0' [<2.00 TiB] inherit
//	inactive          '/dev/lvm-raid-1/lvm1' [1.00 TiB] inherit
func (lv2 *Lvm2Implement) LVScan() (string, []types.LVScanEntry) {
	out := lv2.Runner.Inspect("lvscan")
	return out, parseLVScan(out)
}

// LVCreateExtents lvcreate -l 524256 lvm-raid-0 -n lvm0
func (lv2 *Lvm2Implement) LVCreateExtents(lv, vg string, extents uint64) error {
	if extents == 0 {
		return fmt.Errorf("volume group %s has no free extents for %s", vg, lv)
	}
	return lv2.Runner.Run("lvcreate", "-l", strconv.FormatUint(extents, 10), vg, "-n", lv).Error()
}
