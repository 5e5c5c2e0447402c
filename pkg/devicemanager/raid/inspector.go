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
	"go.uber.org/zap"

	"github.com/carina-io/mdlvm/pkg/devicemanager/lvmd"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils"
	"github.com/carina-io/mdlvm/utils/exec"
)

const mdadmCmd = "mdadm"

// Raid inspects and provisions md arrays through mdadm. It holds no state
// between calls.
type Raid struct {
	Runner *exec.Runner
	MDStat MDStatReader
	Lvm    lvmd.Lvm2
	Log    *zap.SugaredLogger
}

func NewRaid(runner *exec.Runner, mdstat MDStatReader, lvm lvmd.Lvm2) *Raid {
	return &Raid{
		Runner: runner,
		MDStat: mdstat,
		Lvm:    lvm,
		Log:    runner.Log,
	}
}

// ExistingRaidAt reports whether RAID metadata exists for device. With
// member disks the first disk's superblock decides, whether or not the
// array is running. Without disks every known array is scanned for the
// device name.
func (r *Raid) ExistingRaidAt(device string, disks []string) bool {
	if len(disks) > 0 {
		out := r.Runner.Inspect(mdadmCmd, "--examine", disks[0])
		uuid := parseArrayUUID(out)
		r.Log.Infof("Checking for existing RAID array using device %s: Array UUID %q", disks[0], uuid)
		return uuid != ""
	}

	out := r.Runner.Inspect(mdadmCmd, "--examine", "--scan")
	exists := scanListsDevice(parseScan(out), device)
	r.Log.Debugf("Checking for existing RAID array at %s: %s", device, out)
	r.Log.Infof("Checking for existing RAID array at %s: %t", device, exists)
	return exists
}

// ActualRaidDeviceFor returns the kernel assigned name of the running
// array whose member set equals disks, "" when none does. After a reboot
// autoassembly may have renamed md0 to md127.
func (r *Raid) ActualRaidDeviceFor(disks []string) (string, error) {
	arrays, err := r.MDStat.Arrays()
	if err != nil {
		return "", err
	}
	target := utils.SortedCopy(disks)
	for _, a := range arrays {
		if utils.SameMembers(a.Devices, target) {
			r.Log.Infof("Disks %v are assembled as %s", disks, a.Device)
			return a.Device, nil
		}
	}
	return "", nil
}

// AssembledRaidAt reports whether device is already a running array.
func (r *Raid) AssembledRaidAt(device string) bool {
	out := r.Runner.Inspect(mdadmCmd, "--detail", "--scan")
	assembled := scanListsDevice(parseScan(out), device)
	r.Log.Debugf("Checking for running RAID arrays at %s: %s", device, out)
	r.Log.Infof("Checking for running RAID arrays at %s: %t", device, assembled)
	return assembled
}

// ArraysHolding returns every running array that holds any of disks, read
// from a fresh copy of the status table.
func (r *Raid) ArraysHolding(disks []string) ([]types.MDArray, error) {
	arrays, err := r.MDStat.Arrays()
	if err != nil {
		return nil, err
	}
	var holding []types.MDArray
	for _, a := range arrays {
		if utils.ContainsAny(a.Devices, disks) {
			holding = append(holding, a)
		}
	}
	return holding, nil
}
