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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carina-io/mdlvm/pkg/configuration"
	deviceManager "github.com/carina-io/mdlvm/pkg/devicemanager"
	"github.com/carina-io/mdlvm/pkg/devicemanager/wait"
	"github.com/carina-io/mdlvm/utils/log"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Reconcile every configured volume once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signalContext()
			defer stop()
			return runOnce(ctx)
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOnce(ctx context.Context) error {
	if err := configuration.Load(config.configPath); err != nil {
		return err
	}
	c := configuration.Current()

	dm, err := deviceManager.NewDeviceManager(managerOptions(c), log.Logger())
	if err != nil {
		return err
	}

	statuses, err := dm.ProvisionAll(ctx, c.Raids)
	for _, st := range statuses {
		log.Infof("volume %s on %s: %s, logical volume %s", st.Device, st.ActualDevice, st.Action, st.LogicalVolume)
	}
	return err
}

func managerOptions(c configuration.Config) deviceManager.Options {
	return deviceManager.Options{
		ProcPath:     c.ProcPath,
		MountTable:   c.MountTable,
		MountOptions: c.MountOptions,
		Policy: wait.RetryPolicy{
			Interval:    c.PollInterval,
			MaxAttempts: c.MaxPollAttempts,
		},
		ReadAhead:            c.MdReadAhead,
		ChunkSize:            c.MdadmChunkSize,
		TranslateDeviceNames: c.TranslateDeviceNames,
	}
}

// applyConfig carries tunables of a reloaded configuration into dm. The
// proc path and mount table are fixed for the life of the process.
func applyConfig(dm *deviceManager.DeviceManager, c configuration.Config) {
	dm.ReadAhead = c.MdReadAhead
	dm.ChunkSize = c.MdadmChunkSize
	dm.TranslateDeviceNames = c.TranslateDeviceNames
	dm.Poller.Policy = wait.RetryPolicy{Interval: c.PollInterval, MaxAttempts: c.MaxPollAttempts}
	dm.Mounter.Options = c.MountOptions
}
