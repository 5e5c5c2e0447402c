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

package volume

import (
	"context"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
)

// LocalVolume pv -> vg -> lv stack on top of one md array
type LocalVolume interface {
	PhysicalVolumeExists(device string) bool
	VolumeGroupExists(raidDevice string) (bool, error)
	LogicalVolumeExists(ctx context.Context, raidDevice string) (bool, error)
	// CreateLvm names everything after raidDevice and builds on actualDevice.
	CreateLvm(ctx context.Context, raidDevice, actualDevice string) (*types.LvmTopology, error)
	// VolumeGroups capacity of the volume groups this tool manages
	VolumeGroups() ([]types.VgGroup, error)
}
