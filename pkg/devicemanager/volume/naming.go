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

package volume

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/carina-io/mdlvm"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
)

var numberRe = regexp.MustCompile(`[0-9]+`)

// RaidNumber /dev/md3 -> 3
func RaidNumber(raidDevice string) (int, error) {
	s := numberRe.FindString(raidDevice)
	if s == "" {
		return 0, fmt.Errorf("no array number in device name %q", raidDevice)
	}
	return strconv.Atoi(s)
}

// LvmVolumeGroup /dev/md3 -> lvm-raid-3
func LvmVolumeGroup(raidDevice string) (string, error) {
	n, err := RaidNumber(raidDevice)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", mdlvm.VolumeGroupPrefix, n), nil
}

// LvmVolume /dev/md3 -> lvm3
func LvmVolume(raidDevice string) (string, error) {
	n, err := RaidNumber(raidDevice)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", mdlvm.LogicalVolumePrefix, n), nil
}

// LvmDevice /dev/md3 -> /dev/lvm-raid-3/lvm3
func LvmDevice(raidDevice string) (string, error) {
	t, err := TopologyFor(raidDevice, raidDevice)
	if err != nil {
		return "", err
	}
	return t.LogicalVolumeDevice, nil
}

// TopologyFor names come from the declared raidDevice, the physical
// volume is the device the array is actually running as.
func TopologyFor(raidDevice, actualDevice string) (*types.LvmTopology, error) {
	vg, err := LvmVolumeGroup(raidDevice)
	if err != nil {
		return nil, err
	}
	lv, err := LvmVolume(raidDevice)
	if err != nil {
		return nil, err
	}
	return &types.LvmTopology{
		PhysicalVolume:      actualDevice,
		VolumeGroup:         vg,
		LogicalVolume:       lv,
		LogicalVolumeDevice: fmt.Sprintf("/dev/%s/%s", vg, lv),
	}, nil
}
