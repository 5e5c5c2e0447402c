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

package configuration

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/carina-io/mdlvm"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils"
	"github.com/carina-io/mdlvm/utils/log"
)

const defaultFSType = "ext4"

var (
	mutex              sync.RWMutex
	configModifyNotice []chan<- struct{}
	GlobalConfig       *viper.Viper
	volumeConfig       Config
)

var opt = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

var (
	raidDeviceRegexp = regexp.MustCompile(`^/dev/md/?[0-9]+$`)
	raidLevels       = map[int]bool{0: true, 1: true, 4: true, 5: true, 6: true, 10: true}
)

type Config struct {
	// MdReadAhead read ahead in sectors for disks, arrays and volumes
	MdReadAhead int `json:"mdReadAhead"`
	// MdadmChunkSize KiB, used when a volume sets none
	MdadmChunkSize       int                `json:"mdadmChunkSize"`
	PollInterval         time.Duration      `json:"pollInterval"`
	MaxPollAttempts      int                `json:"maxPollAttempts"`
	TranslateDeviceNames bool               `json:"translateDeviceNames"`
	ProcPath             string             `json:"procPath"`
	MountTable           string             `json:"mountTable"`
	MountOptions         []string           `json:"mountOptions"`
	Listen               string             `json:"listen"`
	Raids                []types.VolumeSpec `json:"raids"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("mdReadAhead", mdlvm.DefaultReadAhead)
	v.SetDefault("mdadmChunkSize", mdlvm.DefaultChunkSize)
	v.SetDefault("pollInterval", mdlvm.DefaultPollInterval.String())
	v.SetDefault("maxPollAttempts", 0)
	v.SetDefault("translateDeviceNames", false)
	v.SetDefault("procPath", mdlvm.DefaultProcPath)
	v.SetDefault("mountTable", mdlvm.DefaultMountTable)
	v.SetDefault("mountOptions", []string{mdlvm.DefaultMountOption})
	v.SetDefault("listen", ":8080")
	return v
}

// Load reads path, either a config file or a directory holding
// config.json, and makes it the current configuration.
func Load(path string) error {
	v := newViper()
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to get the configuration: %w", err)
	}

	c, err := decode(v)
	if err != nil {
		return err
	}

	mutex.Lock()
	defer mutex.Unlock()
	GlobalConfig = v
	volumeConfig = c
	return nil
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c, opt); err != nil {
		return c, fmt.Errorf("failed to unmarshal the configuration: %w", err)
	}
	if err := validate(&c); err != nil {
		return c, fmt.Errorf("failed to validate the configuration: %w", err)
	}
	return c, nil
}

// Watch reloads the configuration whenever its file changes and notifies
// every registered listener. A change that fails validation is ignored.
func Watch() {
	mutex.RLock()
	v := GlobalConfig
	mutex.RUnlock()
	if v == nil {
		log.Warn("configuration not loaded, nothing to watch")
		return
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		log.Infof("Detect config change: %s", event.String())
		c, err := decode(v)
		if err != nil {
			log.Errorf("%s, ignore this change", err)
			return
		}
		mutex.Lock()
		volumeConfig = c
		listeners := append([]chan<- struct{}{}, configModifyNotice...)
		mutex.Unlock()

		for _, l := range listeners {
			log.Info("Generates the configuration change event")
			select {
			case l <- struct{}{}:
			default:
				// a change is already pending, it will read the latest config
			}
		}
	})
	v.WatchConfig()
}

func RegisterListenerChan(c chan<- struct{}) {
	mutex.Lock()
	defer mutex.Unlock()
	configModifyNotice = append(configModifyNotice, c)
}

// Current a copy of the configuration in effect.
func Current() Config {
	mutex.RLock()
	defer mutex.RUnlock()
	c := volumeConfig
	c.Raids = append([]types.VolumeSpec(nil), volumeConfig.Raids...)
	c.MountOptions = append([]string(nil), volumeConfig.MountOptions...)
	return c
}

// Raids configured volumes in configuration order, which is also the
// order device names are translated in.
func Raids() []types.VolumeSpec {
	return Current().Raids
}

func validate(c *Config) error {
	if c.MdReadAhead <= 0 {
		return fmt.Errorf("mdReadAhead must be positive: %d", c.MdReadAhead)
	}
	if c.MdadmChunkSize <= 0 {
		return fmt.Errorf("mdadmChunkSize must be positive: %d", c.MdadmChunkSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("pollInterval must be positive: %s", c.PollInterval)
	}
	if c.MaxPollAttempts < 0 {
		return fmt.Errorf("maxPollAttempts must not be negative: %d", c.MaxPollAttempts)
	}

	devices := make(map[string]bool)
	disks := make(map[string]string)
	mountPoints := make(map[string]string)
	for i := range c.Raids {
		r := &c.Raids[i]
		if !raidDeviceRegexp.MatchString(r.Device) {
			return fmt.Errorf("raid device should look like /dev/mdN or /dev/md/N: %q", r.Device)
		}
		if devices[r.Device] {
			return fmt.Errorf("duplicate raid device: %s", r.Device)
		}
		devices[r.Device] = true

		if len(r.Disks) == 0 {
			return fmt.Errorf("raid %s has no disks", r.Device)
		}
		for j, d := range r.Disks {
			d = utils.DevicePath(d)
			r.Disks[j] = d
			if owner, ok := disks[d]; ok {
				return fmt.Errorf("disk %s used by both %s and %s", d, owner, r.Device)
			}
			disks[d] = r.Device
		}

		if !raidLevels[r.RaidLevel] {
			return fmt.Errorf("raid %s: unsupported raid level %d", r.Device, r.RaidLevel)
		}
		if r.ChunkSize < 0 || r.ReadAhead < 0 {
			return errors.New("chunkSize and readAhead must not be negative")
		}
		if r.FSType == "" {
			r.FSType = defaultFSType
		}
		if r.MountPoint != "" {
			if owner, ok := mountPoints[r.MountPoint]; ok {
				return fmt.Errorf("mount point %s used by both %s and %s", r.MountPoint, owner, r.Device)
			}
			mountPoints[r.MountPoint] = r.Device
		}
	}
	return nil
}
