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

package device

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/procfs"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/carina-io/mdlvm/pkg/filesystem"
)

// Checker answers whether a path is a block device node.
type Checker interface {
	IsBlockDevice(path string) (bool, error)
}

type StatChecker struct{}

func (StatChecker) IsBlockDevice(path string) (bool, error) {
	var st unix.Stat_t
	if err := filesystem.Stat(path, &st); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat failed for %s: %v", path, err)
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK, nil
}

// Translator maps configured disk names onto the names a KVM guest sees.
// Under QEMU the root disk is /dev/sda and attached volumes show up as
// /dev/sdb, /dev/sdc ... in attachment order, whatever the host called them.
type Translator struct {
	Virtualized func() bool
	Log         *zap.SugaredLogger
}

func NewTranslator(procPath string, logger *zap.SugaredLogger) (*Translator, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, err
	}
	return &Translator{
		Virtualized: func() bool { return OnKVM(fs) },
		Log:         logger,
	}, nil
}

// OnKVM reports whether the CPU is a QEMU virtual one.
func OnKVM(fs procfs.FS) bool {
	cpus, err := fs.CPUInfo()
	if err != nil {
		return false
	}
	for _, c := range cpus {
		if strings.Contains(c.VendorID, "QEMU") || strings.Contains(c.ModelName, "QEMU") {
			return true
		}
	}
	return false
}

// TranslateDeviceNames renames names to /dev/sd<x> starting skip letters
// after "b". Outside a KVM guest names are returned unchanged.
func (t *Translator) TranslateDeviceNames(names []string, skip int) ([]string, error) {
	if len(names) == 0 || !t.Virtualized() {
		return names, nil
	}
	if skip < 0 {
		return nil, fmt.Errorf("negative skip %d", skip)
	}

	translated := make([]string, 0, len(names))
	for i := range names {
		letter := 'b' + rune(skip+i)
		if letter > 'z' {
			return nil, fmt.Errorf("cannot translate %s: no device name left after /dev/sdz", names[i])
		}
		translated = append(translated, fmt.Sprintf("/dev/sd%c", letter))
	}
	t.Log.Infof("Running on QEMU, translated %v to %v", names, translated)
	return translated, nil
}
