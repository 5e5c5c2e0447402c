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

package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carina-io/mdlvm/pkg/devicemanager/volume"
)

func newNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names <raid-device>",
		Short: "Print the volume group and logical volume device derived from a RAID device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			topology, err := volume.TopologyFor(args[0], args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "volume group: %s\nlogical volume: %s\n",
				topology.VolumeGroup, topology.LogicalVolumeDevice)
			return err
		},
	}
}
