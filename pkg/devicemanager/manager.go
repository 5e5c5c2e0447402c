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

package devicemanager

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/carina-io/mdlvm"
	"github.com/carina-io/mdlvm/pkg/devicemanager/device"
	"github.com/carina-io/mdlvm/pkg/devicemanager/lvmd"
	"github.com/carina-io/mdlvm/pkg/devicemanager/raid"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/pkg/devicemanager/volume"
	"github.com/carina-io/mdlvm/pkg/devicemanager/wait"
	"github.com/carina-io/mdlvm/pkg/filesystem"
	"github.com/carina-io/mdlvm/pkg/metrics"
	"github.com/carina-io/mdlvm/utils/exec"
)

// Options everything NewDeviceManager needs from configuration.
type Options struct {
	ProcPath             string
	MountTable           string
	MountOptions         []string
	Policy               wait.RetryPolicy
	ReadAhead            int
	ChunkSize            int
	TranslateDeviceNames bool
}

type DeviceManager struct {
	Runner *exec.Runner
	// mdadm 操作
	Raid *raid.Raid
	// Volume 操作
	VolumeManager volume.LocalVolume
	Poller        *wait.Poller
	Translator    *device.Translator
	Mounter       *filesystem.Mounter

	ReadAhead            int
	ChunkSize            int
	TranslateDeviceNames bool

	Log *zap.SugaredLogger

	mutex    sync.RWMutex
	statuses map[string]types.VolumeStatus
	dmLoaded bool
}

func NewDeviceManager(opts Options, logger *zap.SugaredLogger) (*DeviceManager, error) {
	executor := &exec.CommandExecutor{}
	runner := exec.NewRunner(executor, logger)
	lvm := lvmd.NewLvm2(runner)

	mdstat, err := raid.NewProcMDStat(opts.ProcPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open procfs at %s", opts.ProcPath)
	}
	translator, err := device.NewTranslator(opts.ProcPath, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "open procfs at %s", opts.ProcPath)
	}
	poller := wait.NewPoller(opts.Policy, device.StatChecker{}, lvm, logger)

	return &DeviceManager{
		Runner:               runner,
		Raid:                 raid.NewRaid(runner, mdstat, lvm),
		VolumeManager:        volume.NewLocalVolume(lvm, poller, logger),
		Poller:               poller,
		Translator:           translator,
		Mounter:              filesystem.NewMounter(opts.MountTable, opts.MountOptions, logger),
		ReadAhead:            opts.ReadAhead,
		ChunkSize:            opts.ChunkSize,
		TranslateDeviceNames: opts.TranslateDeviceNames,
		Log:                  logger,
		statuses:             map[string]types.VolumeStatus{},
	}, nil
}

// EnsureVolumeReady brings the array and the logical volume on top of it
// up, creating only what inspection proved missing. It returns the device
// the array actually runs as, which differs from spec.Device when the
// kernel renamed the array on autoassembly. The logical volume device node
// exists on return, it is neither formatted nor mounted.
func (dm *DeviceManager) EnsureVolumeReady(ctx context.Context, spec types.VolumeSpec) (string, error) {
	st, err := dm.ensureVolumeReady(ctx, spec)
	return st.ActualDevice, err
}

func (dm *DeviceManager) ensureVolumeReady(ctx context.Context, spec types.VolumeSpec) (types.VolumeStatus, error) {
	st := types.VolumeStatus{
		Device:       spec.Device,
		ActualDevice: spec.Device,
		Disks:        spec.Disks,
		Action:       types.RaidActionNone,
		MountPoint:   spec.MountPoint,
	}
	readAhead := dm.readAheadFor(spec)

	for _, disk := range spec.Disks {
		if err := dm.Poller.WaitForBlockDevice(ctx, disk); err != nil {
			return st, errors.Wrapf(err, "wait for disk %s", disk)
		}
		if err := dm.Raid.SetReadAhead(disk, readAhead); err != nil {
			return st, err
		}
	}

	array := types.RaidArray{Declared: spec.Device, Disks: spec.Disks}
	resolved, err := dm.Raid.ActualRaidDeviceFor(spec.Disks)
	if err != nil {
		return st, errors.Wrap(err, "resolve running array")
	}
	array.Resolved = resolved

	existing := dm.Raid.ExistingRaidAt(array.Declared, spec.Disks) ||
		(array.Resolved != "" && dm.Raid.ExistingRaidAt(array.Resolved, nil))

	switch {
	case existing && dm.Raid.AssembledRaidAt(array.Declared):
		dm.Log.Infof("Skipping RAID array at %s - already assembled and probably mounted at %s", array.Declared, spec.MountPoint)
	case existing && array.Resolved != "" && dm.Raid.AssembledRaidAt(array.Resolved):
		dm.Log.Infof("Skipping RAID array at %s - already assembled as %s and probably mounted at %s",
			array.Declared, array.Resolved, spec.MountPoint)
	case existing:
		array.Resolved = ""
		st.Action = types.RaidActionAssemble
		if err := dm.Raid.Assemble(array.Declared, spec); err != nil {
			return st, err
		}
	default:
		array.Resolved = ""
		st.Action = types.RaidActionCreate
		spec.ChunkSize = dm.chunkSizeFor(spec)
		if err := dm.Raid.Create(array.Declared, spec); err != nil {
			return st, err
		}
	}
	st.ActualDevice = array.Actual()

	if err := dm.Raid.SetReadAhead(st.ActualDevice, readAhead); err != nil {
		return st, err
	}

	topology, err := dm.VolumeManager.CreateLvm(ctx, array.Declared, st.ActualDevice)
	if err != nil {
		return st, err
	}
	st.LogicalVolume = topology.LogicalVolumeDevice

	if err := dm.Poller.WaitForBlockDevice(ctx, topology.LogicalVolumeDevice); err != nil {
		return st, errors.Wrapf(err, "wait for logical volume %s", topology.LogicalVolumeDevice)
	}
	if err := dm.Raid.SetReadAhead(topology.LogicalVolumeDevice, readAhead); err != nil {
		return st, err
	}
	return st, nil
}

// Provision EnsureVolumeReady followed by format-if-blank and mount.
func (dm *DeviceManager) Provision(ctx context.Context, spec types.VolumeSpec) (types.VolumeStatus, error) {
	begin := time.Now()
	st, err := dm.ensureVolumeReady(ctx, spec)
	if err == nil && spec.MountPoint != "" {
		_, err = dm.Mounter.EnsureMounted(st.LogicalVolume, spec.FSType, spec.MountPoint)
		st.Mounted = err == nil
	}

	st.Reconciled = time.Now()
	if err != nil {
		st.Error = err.Error()
		dm.Log.Errorf("volume %s: %v", spec.Device, err)
	}
	metrics.ObserveReconcile(spec.Device, st.Action, err, time.Since(begin))
	dm.setStatus(st)
	return st, err
}

// ProvisionAll provisions specs in order and stops at the first failure.
// Under QEMU the disks are renamed first, every volume continues at the
// device letter the previous one stopped at.
func (dm *DeviceManager) ProvisionAll(ctx context.Context, specs []types.VolumeSpec) ([]types.VolumeStatus, error) {
	dm.loadDeviceMapper()

	var statuses []types.VolumeStatus
	skip := 0
	for _, spec := range specs {
		if dm.TranslateDeviceNames {
			disks, err := dm.Translator.TranslateDeviceNames(spec.Disks, skip)
			if err != nil {
				return statuses, err
			}
			skip += len(spec.Disks)
			spec.Disks = disks
		}

		st, err := dm.Provision(ctx, spec)
		statuses = append(statuses, st)
		if err != nil {
			return statuses, errors.Wrapf(err, "provision %s", spec.Device)
		}
	}
	return statuses, nil
}

// Statuses outcome of the last reconciliation of every volume seen so far.
func (dm *DeviceManager) Statuses() []types.VolumeStatus {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()
	res := make([]types.VolumeStatus, 0, len(dm.statuses))
	for _, st := range dm.statuses {
		res = append(res, st)
	}
	return res
}

func (dm *DeviceManager) setStatus(st types.VolumeStatus) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	dm.statuses[st.Device] = st
}

// loadDeviceMapper lvm needs dm-mod, which is built in on most kernels.
func (dm *DeviceManager) loadDeviceMapper() {
	if dm.dmLoaded {
		return
	}
	if res := dm.Runner.Run("modprobe", "dm-mod"); !res.Success {
		dm.Log.Warnf("load dm-mod: %v", res.Err)
		return
	}
	dm.dmLoaded = true
}

func (dm *DeviceManager) readAheadFor(spec types.VolumeSpec) int {
	if spec.ReadAhead > 0 {
		return spec.ReadAhead
	}
	if dm.ReadAhead > 0 {
		return dm.ReadAhead
	}
	return mdlvm.DefaultReadAhead
}

func (dm *DeviceManager) chunkSizeFor(spec types.VolumeSpec) int {
	if spec.ChunkSize > 0 {
		return spec.ChunkSize
	}
	if dm.ChunkSize > 0 {
		return dm.ChunkSize
	}
	return mdlvm.DefaultChunkSize
}
