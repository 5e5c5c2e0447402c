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

package mdlvm

import "time"

const (
	// Version project
	Version = "beta"

	// DefaultConfigPath directory searched for config.json
	DefaultConfigPath = "/etc/mdlvm/"
	// DefaultLogFile rotating log file used when no --log-file is given
	DefaultLogFile = "/var/log/mdlvm/mdlvm.log"

	// VolumeGroupPrefix volume group name is VolumeGroupPrefix + <md number>
	VolumeGroupPrefix = "lvm-raid-"
	// LogicalVolumePrefix logical volume name is LogicalVolumePrefix + <md number>
	LogicalVolumePrefix = "lvm"

	// DefaultReadAhead read ahead in 512-byte sectors applied to disks, arrays and volumes
	DefaultReadAhead = 65536
	// DefaultChunkSize mdadm chunk size in KiB
	DefaultChunkSize = 256
	// DefaultPollInterval fixed backoff for every readiness loop
	DefaultPollInterval = 10 * time.Second

	// DefaultProcPath procfs mount point
	DefaultProcPath = "/proc"
	// DefaultMountTable mount table consulted before mounting
	DefaultMountTable = "/etc/mtab"
	// DefaultMountOption option applied to every mount
	DefaultMountOption = "noatime"

	// MetricsNamespace prometheus namespace
	MetricsNamespace = "mdlvm"
)
