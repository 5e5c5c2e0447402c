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

package wait

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/carina-io/mdlvm/pkg/devicemanager/device"
	"github.com/carina-io/mdlvm/pkg/devicemanager/lvmd"
)

// ErrRetryExhausted a bounded RetryPolicy ran out of attempts.
var ErrRetryExhausted = errors.New("retry attempts exhausted")

// RetryPolicy MaxAttempts 0 polls forever.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

type Poller struct {
	Policy  RetryPolicy
	Checker device.Checker
	Lvm     lvmd.Lvm2
	Log     *zap.SugaredLogger
	// Sleep blocks for one interval, returning early with the context error.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(policy RetryPolicy, checker device.Checker, lvm lvmd.Lvm2, logger *zap.SugaredLogger) *Poller {
	return &Poller{
		Policy:  policy,
		Checker: checker,
		Lvm:     lvm,
		Log:     logger,
		Sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// until calls ready until it returns true. Between failed attempts it
// logs notReady, sleeps one interval and runs between, if any.
func (p *Poller) until(ctx context.Context, ready func() bool, notReady func(), between func()) error {
	for attempt := 1; ; attempt++ {
		if ready() {
			return nil
		}
		notReady()
		if p.Policy.MaxAttempts > 0 && attempt >= p.Policy.MaxAttempts {
			return ErrRetryExhausted
		}
		if err := p.Sleep(ctx, p.Policy.Interval); err != nil {
			return err
		}
		if between != nil {
			between()
		}
	}
}

// WaitForBlockDevice blocks until path is a block device node.
func (p *Poller) WaitForBlockDevice(ctx context.Context, path string) error {
	ready := func() bool {
		ok, err := p.Checker.IsBlockDevice(path)
		if err != nil {
			p.Log.Warnf("check block device %s: %v", path, err)
		}
		return ok
	}
	notReady := func() {
		p.Log.Infof("device %s not ready - waiting", path)
	}

	if err := p.until(ctx, ready, notReady, nil); err != nil {
		return err
	}
	p.Log.Infof("device %s ready", path)
	return nil
}

// WaitForLogicalVolumesActive blocks until lvscan lists no inactive
// volume. Each retry first asks lvm to activate every volume group.
func (p *Poller) WaitForLogicalVolumesActive(ctx context.Context) error {
	ready := func() bool {
		out, entries := p.Lvm.LVScan()
		p.Log.Debugf("lvscan: %s", out)
		for _, e := range entries {
			if !e.Active {
				return false
			}
		}
		return true
	}
	notReady := func() {
		p.Log.Debug("Logical volumes not active - waiting")
	}
	activate := func() {
		if err := p.Lvm.VGActivateAll(); err != nil {
			p.Log.Debugf("vgchange -ay: %v", err)
		}
	}

	if err := p.until(ctx, ready, notReady, activate); err != nil {
		return err
	}
	p.Log.Info("Logical volumes active")
	return nil
}
