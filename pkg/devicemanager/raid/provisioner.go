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

package raid

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils/exec"
)

// Assemble brings an existing array up. When the first attempt fails,
// usually because the disks are bound into a stale array, every array
// holding a member disk is stopped (after deactivating the volume group
// on top of it) and assembly is retried once. Volume groups deactivated
// on the way are reactivated only if the retry succeeds.
func (r *Raid) Assemble(device string, spec types.VolumeSpec) error {
	r.Log.Infof("Resuming existing RAID array %s with %d disks, RAID level %d at %s",
		device, len(spec.Disks), spec.RaidLevel, spec.MountPoint)

	args := append([]string{"--assemble", "--verbose", device}, spec.Disks...)
	if r.Runner.Run(mdadmCmd, args...).Success {
		return nil
	}

	holding, err := r.ArraysHolding(spec.Disks)
	if err != nil {
		return errors.Wrapf(err, "failed to read RAID status while recovering %s", device)
	}

	var deactivated []string
	for _, a := range holding {
		if pv := r.Lvm.PVDisplay(a.Device); pv != nil && pv.VGName != "" {
			r.Log.Infof("Deactivating volume group %s", pv.VGName)
			if err := r.Lvm.VGChange(pv.VGName, false); err != nil {
				r.Log.Warnf("deactivate volume group %s: %v", pv.VGName, err)
			}
			deactivated = append(deactivated, pv.VGName)
		}
		r.Log.Infof("Stopping %s", a.Device)
		r.Runner.Run(mdadmCmd, "--stop", "--verbose", a.Device)
	}

	res := r.Runner.Run(mdadmCmd, args...)
	if !res.Success {
		return errors.Wrapf(res.Error(), "failed to assemble the RAID array at %s", device)
	}

	for _, vg := range deactivated {
		r.Log.Infof("(Re-)activating volume group %s", vg)
		if err := r.Lvm.VGChange(vg, true); err != nil {
			r.Log.Warnf("activate volume group %s: %v", vg, err)
		}
	}
	return nil
}

// Create initialises a new array. Interactive prompts are answered "n",
// so mdadm refuses instead of overwriting disks that look used. A failed
// create is never retried.
func (r *Raid) Create(device string, spec types.VolumeSpec) error {
	r.Log.Infof("creating RAID array %s with %d disks, RAID level %d at %s",
		device, len(spec.Disks), spec.RaidLevel, spec.MountPoint)

	args := []string{
		"--create",
		fmt.Sprintf("--chunk=%d", spec.ChunkSize),
		"--metadata=1.2",
		"--verbose",
		device,
		fmt.Sprintf("--level=%d", spec.RaidLevel),
		fmt.Sprintf("--raid-devices=%d", len(spec.Disks)),
	}
	args = append(args, spec.Disks...)

	res := r.Runner.RunWithInput(exec.Answer("n"), mdadmCmd, args...)
	if !res.Success {
		return errors.Wrapf(res.Error(), "failed to create the RAID array at %s", device)
	}
	return nil
}

// SetReadAhead sets the read ahead of a block device in 512-byte sectors.
func (r *Raid) SetReadAhead(device string, value int) error {
	r.Log.Infof("Setting read ahead options for %s to %d", device, value)
	res := r.Runner.Run("blockdev", "--setra", strconv.Itoa(value), device)
	if !res.Success {
		return errors.Wrapf(res.Error(), "failed to set read ahead options for device at %s to %d", device, value)
	}
	return nil
}
