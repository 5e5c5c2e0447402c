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

package types

import "time"

// VolumeSpec configuration of one RAID backed logical volume
type VolumeSpec struct {
	// Device declared md device, e.g. /dev/md0
	Device string `json:"device"`
	// Disks ordered member disks
	Disks      []string `json:"disks"`
	RaidLevel  int      `json:"raidLevel"`
	ChunkSize  int      `json:"chunkSize"`
	FSType     string   `json:"fstype"`
	MountPoint string   `json:"mountPoint"`
	ReadAhead  int      `json:"readAhead"`
}

// RaidArray md device backed by a set of member disks. Declared is the
// configured name, Resolved the name the kernel actually assigned, which
// differs after an automatic reassembly renamed the array.
type RaidArray struct {
	Declared string   `json:"declared"`
	Resolved string   `json:"resolved"`
	Disks    []string `json:"disks"`
}

// Actual device to act on
func (r *RaidArray) Actual() string {
	if r.Resolved != "" {
		return r.Resolved
	}
	return r.Declared
}

// LvmTopology pv -> vg -> lv stack on top of one array
type LvmTopology struct {
	PhysicalVolume string `json:"physicalVolume"`
	VolumeGroup    string `json:"volumeGroup"`
	LogicalVolume  string `json:"logicalVolume"`
	// LogicalVolumeDevice /dev/<vg>/<lv>
	LogicalVolumeDevice string `json:"logicalVolumeDevice"`
}

// vg卷组信息
type VgGroup struct {
	VGName  string `json:"vgName"`
	PVCount uint64 `json:"pvCount"`
	LVCount uint64 `json:"lvCount"`
	VGAttr  string `json:"vgAttr"`
	VGSize  uint64 `json:"vgSize"`
	VGFree  uint64 `json:"vgFree"`
}

// VGReport extent accounting from vgdisplay
type VGReport struct {
	Name    string `json:"name"`
	TotalPE uint64 `json:"totalPE"`
	AllocPE uint64 `json:"allocPE"`
	FreePE  uint64 `json:"freePE"`
}

// PVReport one line of pvdisplay -c
type PVReport struct {
	PVName string `json:"pvName"`
	VGName string `json:"vgName"`
}

// LVScanEntry one line of lvscan
type LVScanEntry struct {
	Path   string `json:"path"`
	Active bool   `json:"active"`
}

// VolumeStatus outcome of the last reconciliation of one volume
type VolumeStatus struct {
	Device        string     `json:"device"`
	ActualDevice  string     `json:"actualDevice"`
	Disks         []string   `json:"disks"`
	Action        RaidAction `json:"action"`
	LogicalVolume string     `json:"logicalVolume,omitempty"`
	MountPoint    string     `json:"mountPoint,omitempty"`
	Mounted       bool       `json:"mounted"`
	Error         string     `json:"error,omitempty"`
	Reconciled    time.Time  `json:"reconciled"`
}
