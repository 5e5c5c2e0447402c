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
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/prometheus/procfs"
	utilio "k8s.io/utils/io"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils"
)

// MDStatReader live RAID status table. Every call reads the kernel table
// again, callers rely on that freshness.
type MDStatReader interface {
	Arrays() ([]types.MDArray, error)
}

// memberRe one component device of an md line, sdb[0] or sdb[0](S)
var memberRe = regexp.MustCompile(`^([^\s\[\]]+)\[\d+\](\([A-Z]\))*$`)

type ProcMDStat struct {
	fs   procfs.FS
	path string
}

// NewProcMDStat reads <procPath>/mdstat.
func NewProcMDStat(procPath string) (*ProcMDStat, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, err
	}
	return &ProcMDStat{fs: fs, path: filepath.Join(procPath, "mdstat")}, nil
}

// Arrays parses the status table, for example
//
//	Personalities : [raid0] [raid10]
//	md127 : active raid10 sde[3] sdd[2] sdc[1] sdb[0]
//	      2147221504 blocks super 1.2 256K chunks 2 near-copies [4/4] [UUUU]
//
// procfs supplies state and counts. Members come from the raw md line since
// procfs drops the first member of an inactive array, where no personality
// field precedes the devices:
//
//	md127 : inactive sdb[0](S)
func (p *ProcMDStat) Arrays() ([]types.MDArray, error) {
	content, err := utilio.ConsistentRead(p.path, 3)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.MDArray{}, nil
		}
		return nil, err
	}
	members := parseMembers(string(content))

	stats, err := p.fs.MDStat()
	if err != nil {
		// md_mod not loaded yet, no array can exist
		if errors.Is(err, os.ErrNotExist) {
			return []types.MDArray{}, nil
		}
		return nil, err
	}

	arrays := make([]types.MDArray, 0, len(stats))
	for _, s := range stats {
		names, ok := members[s.Name]
		if !ok {
			names = s.Devices
		}
		devices := make([]string, 0, len(names))
		for _, d := range names {
			devices = append(devices, utils.DevicePath(d))
		}
		arrays = append(arrays, types.MDArray{
			Device:      utils.DevicePath(s.Name),
			State:       s.ActivityState,
			Devices:     devices,
			DisksActive: s.DisksActive,
			DisksTotal:  s.DisksTotal,
		})
	}
	return arrays, nil
}

// parseMembers md name -> component devices, spare and faulty ones included.
func parseMembers(mdstat string) map[string][]string {
	members := make(map[string][]string)
	for _, line := range strings.Split(mdstat, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != ":" || !strings.HasPrefix(fields[0], "md") {
			continue
		}
		devices := []string{}
		for _, f := range fields[2:] {
			if m := memberRe.FindStringSubmatch(f); m != nil {
				devices = append(devices, m[1])
			}
		}
		members[fields[0]] = devices
	}
	return members
}
