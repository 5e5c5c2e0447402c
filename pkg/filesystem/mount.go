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

package filesystem

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	mountutils "k8s.io/mount-utils"
	utilexec "k8s.io/utils/exec"
)

// FormatMounter formats a device when it carries no filesystem yet and
// mounts it. mount-utils SafeFormatAndMount satisfies it.
type FormatMounter interface {
	FormatAndMount(source string, target string, fstype string, options []string) error
}

type Mounter struct {
	Formatter  FormatMounter
	MountTable string
	Options    []string
	Log        *zap.SugaredLogger
}

func NewMounter(mountTable string, options []string, logger *zap.SugaredLogger) *Mounter {
	return &Mounter{
		Formatter: &mountutils.SafeFormatAndMount{
			Interface: mountutils.New(""),
			Exec:      utilexec.New(),
		},
		MountTable: mountTable,
		Options:    options,
		Log:        logger,
	}
}

// EnsureMounted mounts device at mountPoint, creating a filesystem of
// fstype first if the device is blank. A mount point already listed in
// the mount table is left untouched, whatever is mounted there.
func (m *Mounter) EnsureMounted(device, fstype, mountPoint string) (bool, error) {
	mounted, err := ListedInMountTable(m.MountTable, mountPoint)
	if err != nil {
		return false, err
	}
	if mounted {
		m.Log.Infof("%s is already mounted", mountPoint)
		return false, nil
	}

	if err := os.MkdirAll(mountPoint, 0755); err != nil {
		return false, errors.Wrapf(err, "create mount point %s", mountPoint)
	}

	m.Log.Infof("Mounting %s (%s) at %s with options %v", device, fstype, mountPoint, m.Options)
	if err := m.Formatter.FormatAndMount(device, mountPoint, fstype, m.Options); err != nil {
		return false, errors.Wrapf(err, "failed to format and mount %s at %s", device, mountPoint)
	}
	return true, nil
}
