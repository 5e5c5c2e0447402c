package lvmd

import "github.com/carina-io/mdlvm/pkg/devicemanager/types"

// Lvm2 lvm2 userland as seen by the reconciler. Listing methods return
// raw tool output as well as parsed entries, existence checks match on
// the parsed form. Nothing is cached, every call rescans live state.
type Lvm2 interface {
	// pvscan 原始输出
	PVScan() string
	// pvdisplay -c <dev>, nil when dev carries no physical volume
	PVDisplay(dev string) *types.PVReport
	PVCreate(dev string) error

	// vgscan 原始输出
	VGScan() string
	VGDisplay(vg string) (*types.VGReport, error)
	VGS() ([]types.VgGroup, error)
	VGCreate(vg string, pvs ...string) error
	// vgchange --available y|n <vg>
	VGChange(vg string, available bool) error
	// vgchange -ay, activates every local volume group
	VGActivateAll() error

	// lvscan 原始输出及解析结果
	LVScan() (string, []types.LVScanEntry)
	// 使用vg中全部空闲extent创建lv
	LVCreateExtents(lv, vg string, extents uint64) error
}
