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
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils/log"
)

var (
	// ACTIVE            '/dev/vg/lv' ...
	// inactive          Snapshot '/dev/vg/snap' ...
	lvscanLineRe = regexp.MustCompile(`^\s*(\S+)\s+(?:[A-Za-z]+\s+)?'([^']+)'`)
	numberRe     = regexp.MustCompile(`\d+`)
)

func parseVgs(vgsString string) []types.VgGroup {
	// LVM2_VG_NAME='lvmvg',LVM2_PV_COUNT='1',LVM2_LV_COUNT='0',LVM2_VG_ATTR='wz--n-',LVM2_VG_SIZE='16101933056',LVM2_VG_FREE='16101933056'
	resp := []types.VgGroup{}

	if vgsString == "" {
		return resp
	}

	vgsString = strings.ReplaceAll(vgsString, "'", "")
	vgsString = strings.ReplaceAll(vgsString, " ", "")

	vgsList := strings.Split(vgsString, "\n")
	for _, vgs := range vgsList {
		if vgs == "" {
			continue
		}
		tmp := types.VgGroup{}
		vg := strings.Split(vgs, ",")
		for _, v := range vg {
			k := strings.SplitN(v, "=", 2)
			if len(k) != 2 {
				continue
			}

			switch k[0] {
			case "LVM2_VG_NAME":
				tmp.VGName = k[1]
			case "LVM2_PV_COUNT":
				tmp.PVCount, _ = strconv.ParseUint(k[1], 10, 64)
			case "LVM2_LV_COUNT":
				tmp.LVCount, _ = strconv.ParseUint(k[1], 10, 64)
			case "LVM2_VG_ATTR":
				tmp.VGAttr = k[1]
			case "LVM2_VG_SIZE":
				tmp.VGSize, _ = strconv.ParseUint(k[1], 10, 64)
			case "LVM2_VG_FREE":
				tmp.VGFree, _ = strconv.ParseUint(k[1], 10, 64)
			default:
				log.Warnf("undefined filed %s-%s", k[0], k[1])
			}
		}
		resp = append(resp, tmp)
	}
	return resp
}

// parseLVScan keeps only volume lines, warnings and headers are skipped.
func parseLVScan(out string) []types.LVScanEntry {
	resp := []types.LVScanEntry{}
	for _, line := range strings.Split(out, "\n") {
		m := lvscanLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		resp = append(resp, types.LVScanEntry{
			Path:   m[2],
			Active: m[1] == "ACTIVE",
		})
	}
	return resp
}

func parseVGDisplay(out string) (*types.VGReport, error) {
	report := &types.VGReport{}
	freeSeen := false
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "VG Name"):
			report.Name = strings.TrimSpace(strings.TrimPrefix(line, "VG Name"))
		case strings.HasPrefix(line, "Total PE"):
			report.TotalPE = firstNumber(line)
		case strings.HasPrefix(line, "Alloc PE"):
			report.AllocPE = firstNumber(strings.TrimPrefix(line, "Alloc PE / Size"))
		case strings.HasPrefix(line, "Free"):
			report.FreePE = firstNumber(strings.TrimPrefix(line, "Free  PE / Size"))
			freeSeen = true
		}
	}
	if !freeSeen {
		return nil, errors.New("no Free PE line in vgdisplay output")
	}
	return report, nil
}

// parsePVDisplayColon returns the first colon separated record naming a device.
func parsePVDisplayColon(out string) *types.PVReport {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(strings.TrimSpace(line), ":")
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		return &types.PVReport{PVName: fields[0], VGName: fields[1]}
	}
	return nil
}

func firstNumber(s string) uint64 {
	n, _ := strconv.ParseUint(numberRe.FindString(s), 10, 64)
	return n
}

// ContainsToken reports whether any whitespace separated field of out,
// with surrounding quotes stripped, equals token. Substring matching
// would let /dev/md1 match /dev/md10.
func ContainsToken(out, token string) bool {
	for _, field := range strings.Fields(out) {
		if strings.Trim(field, `"'`) == token {
			return true
		}
	}
	return false
}
