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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/carina-io/mdlvm/pkg/configuration"
	deviceManager "github.com/carina-io/mdlvm/pkg/devicemanager"
	"github.com/carina-io/mdlvm/pkg/metrics"
	"github.com/carina-io/mdlvm/utils/log"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reconcile on start and on every config change, serving status and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signalContext()
			defer stop()
			return serve(ctx)
		},
	}
	cmd.Flags().StringVar(&config.listen, "listen", "", "listen address, overrides the configured one")
	return cmd
}

func serve(ctx context.Context) error {
	if err := configuration.Load(config.configPath); err != nil {
		return err
	}
	c := configuration.Current()

	dm, err := deviceManager.NewDeviceManager(managerOptions(c), log.Logger())
	if err != nil {
		return err
	}

	collector, err := metrics.NewMdlvmCollector(c.ProcPath, dm.VolumeManager, dm, dm.Raid.MDStat)
	if err != nil {
		return err
	}
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry, collector); err != nil {
		return err
	}

	addr := config.listen
	if addr == "" {
		addr = c.Listen
	}
	server := newHttpServer(addr, dm, dm.VolumeManager, registry)

	changed := make(chan struct{}, 1)
	configuration.RegisterListenerChan(changed)
	configuration.Watch()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.start(ctx)
		cancel()
	}()

	reconcileLoop(ctx, dm, changed)
	return <-serverErr
}

// reconcileLoop provisions every volume now and again after each
// configuration change. Runs never overlap.
func reconcileLoop(ctx context.Context, dm *deviceManager.DeviceManager, changed <-chan struct{}) {
	for {
		if _, err := dm.ProvisionAll(ctx, configuration.Raids()); err != nil {
			log.Errorf("reconcile failed: %s", err.Error())
		}

		select {
		case <-ctx.Done():
			return
		case <-changed:
			log.Info("configuration changed, reconcile again")
			applyConfig(dm, configuration.Current())
		}
	}
}
