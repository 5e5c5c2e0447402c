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

// MDArray a running array as listed in /proc/mdstat
type MDArray struct {
	// Device /dev/mdN
	Device string `json:"device"`
	State  string `json:"state"`
	// Devices member devices as /dev/<name>
	Devices     []string `json:"devices"`
	DisksActive int64    `json:"disksActive"`
	DisksTotal  int64    `json:"disksTotal"`
}

// ScanEntry one ARRAY line of mdadm --examine --scan / --detail --scan
type ScanEntry struct {
	Device string `json:"device"`
	UUID   string `json:"uuid"`
	Name   string `json:"name"`
}

// RaidAction what a reconciliation had to do to the array
type RaidAction string

const (
	RaidActionNone     RaidAction = "none"
	RaidActionAssemble RaidAction = "assemble"
	RaidActionCreate   RaidAction = "create"
)
