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
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/carina-io/mdlvm"
	"github.com/carina-io/mdlvm/pkg/devicemanager/lvmd"
	"github.com/carina-io/mdlvm/pkg/devicemanager/raid"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/pkg/devicemanager/wait"
)

type LocalVolumeImplement struct {
	Lv     lvmd.Lvm2
	Poller *wait.Poller
	Log    *zap.SugaredLogger
}

func NewLocalVolume(lv lvmd.Lvm2, poller *wait.Poller, logger *zap.SugaredLogger) *LocalVolumeImplement {
	return &LocalVolumeImplement{Lv: lv, Poller: poller, Log: logger}
}

// PhysicalVolumeExists device is listed by pvscan, under either md alias.
func (v *LocalVolumeImplement) PhysicalVolumeExists(device string) bool {
	out := v.Lv.PVScan()
	exists := false
	for _, alias := range raid.DeviceAliases(device) {
		if lvmd.ContainsToken(out, alias) {
			exists = true
			break
		}
	}
	v.Log.Debugf("Checking for existing LVM physical disk for %s: %s", device, out)
	v.Log.Infof("Checking for existing LVM physical disk for %s: %t", device, exists)
	return exists
}

func (v *LocalVolumeImplement) VolumeGroupExists(raidDevice string) (bool, error) {
	vg, err := LvmVolumeGroup(raidDevice)
	if err != nil {
		return false, err
	}
	out := v.Lv.VGScan()
	exists := lvmd.ContainsToken(out, vg)
	v.Log.Debugf("Checking for existing LVM volume group %s: %s", vg, out)
	v.Log.Infof("Checking for existing LVM volume group %s: %t", vg, exists)
	return exists, nil
}

// LogicalVolumeExists waits for every logical volume to be active first,
// an inactive volume would otherwise look missing and get created twice.
func (v *LocalVolumeImplement) LogicalVolumeExists(ctx context.Context, raidDevice string) (bool, error) {
	device, err := LvmDevice(raidDevice)
	if err != nil {
		return false, err
	}
	if err := v.Poller.WaitForLogicalVolumesActive(ctx); err != nil {
		return false, errors.Wrap(err, "wait for logical volumes")
	}

	out, entries := v.Lv.LVScan()
	exists := false
	for _, e := range entries {
		if e.Path == device {
			exists = true
			break
		}
	}
	v.Log.Debugf("Checking for existing LVM logical volume %s: %s", device, out)
	v.Log.Infof("Checking for existing LVM logical volume %s: %t", device, exists)
	return exists, nil
}

// CreateLvm builds whatever part of the pv -> vg -> lv stack is missing.
// The logical volume takes every free extent of the group.
func (v *LocalVolumeImplement) CreateLvm(ctx context.Context, raidDevice, actualDevice string) (*types.LvmTopology, error) {
	t, err := TopologyFor(raidDevice, actualDevice)
	if err != nil {
		return nil, err
	}

	if !v.PhysicalVolumeExists(t.PhysicalVolume) {
		v.Log.Infof("Creating LVM physical disk %s", t.PhysicalVolume)
		if err := v.Lv.PVCreate(t.PhysicalVolume); err != nil {
			return nil, errors.Wrapf(err, "failed to create LVM physical disk for %s", t.PhysicalVolume)
		}
	}

	vgExists, err := v.VolumeGroupExists(raidDevice)
	if err != nil {
		return nil, err
	}
	if !vgExists {
		v.Log.Infof("Creating LVM volume group %s using %s", t.VolumeGroup, t.PhysicalVolume)
		if err := v.Lv.VGCreate(t.VolumeGroup, t.PhysicalVolume); err != nil {
			return nil, errors.Wrapf(err, "failed to create LVM volume group %s for %s", t.VolumeGroup, t.PhysicalVolume)
		}
	}

	lvExists, err := v.LogicalVolumeExists(ctx, raidDevice)
	if err != nil {
		return nil, err
	}
	if !lvExists {
		report, err := v.Lv.VGDisplay(t.VolumeGroup)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read free extents of %s", t.VolumeGroup)
		}
		if report.FreePE == 0 {
			return nil, fmt.Errorf("volume group %s has no free extents left for %s", t.VolumeGroup, t.LogicalVolume)
		}
		v.Log.Infof("Creating LVM logical volume %s using %d extents", t.LogicalVolumeDevice, report.FreePE)
		if err := v.Lv.LVCreateExtents(t.LogicalVolume, t.VolumeGroup, report.FreePE); err != nil {
			return nil, errors.Wrapf(err, "failed to create LVM logical volume %s", t.LogicalVolumeDevice)
		}
	}
	return t, nil
}

// VolumeGroups managed volume groups only, see mdlvm.VolumeGroupPrefix.
func (v *LocalVolumeImplement) VolumeGroups() ([]types.VgGroup, error) {
	vgs, err := v.Lv.VGS()
	if err != nil {
		return nil, err
	}
	var managed []types.VgGroup
	for _, vg := range vgs {
		if strings.HasPrefix(vg.VGName, mdlvm.VolumeGroupPrefix) {
			managed = append(managed, vg)
		}
	}
	return managed, nil
}
