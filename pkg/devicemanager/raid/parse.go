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
	"regexp"
	"strings"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
)

var (
	reArray     = regexp.MustCompile(`^ARRAY\s+(\S+)`)
	reUUID      = regexp.MustCompile(`UUID=([0-9a-fA-F:]+)`)
	reName      = regexp.MustCompile(`name=(\S+)`)
	reArrayUUID = regexp.MustCompile(`(?m)^\s*Array UUID\s*:\s*([0-9a-fA-F:]+)\s*$`)
	reMDNumber  = regexp.MustCompile(`^/dev/md/?([0-9]+)$`)
)

// parseScan parses output like:
// ARRAY /dev/md/0  metadata=1.2 UUID=3aaa0122:29827cfa:5331ad66:ca767371 name=ip-10-0-0-1:0
func parseScan(out string) []types.ScanEntry {
	var entries []types.ScanEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		m := reArray.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entry := types.ScanEntry{Device: m[1]}
		if u := reUUID.FindStringSubmatch(line); u != nil {
			entry.UUID = u[1]
		}
		if n := reName.FindStringSubmatch(line); n != nil {
			entry.Name = n[1]
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseArrayUUID extracts the Array UUID of an `mdadm --examine <disk>`
// report, empty when the disk carries no v1.x superblock.
func parseArrayUUID(out string) string {
	m := reArrayUUID.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return m[1]
}

// DeviceAliases /dev/md0 and /dev/md/0 name the same array.
func DeviceAliases(device string) []string {
	m := reMDNumber.FindStringSubmatch(device)
	if m == nil {
		return []string{device}
	}
	return []string{"/dev/md" + m[1], "/dev/md/" + m[1]}
}

func scanListsDevice(entries []types.ScanEntry, device string) bool {
	for _, alias := range DeviceAliases(device) {
		for _, e := range entries {
			if e.Device == alias {
				return true
			}
		}
	}
	return false
}
