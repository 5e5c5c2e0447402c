package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	vgSubSystem string = "volume_group_stats"
)

var (
	vgStatLabels     = []string{"volume_group"}
	vgTotalBytesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, vgSubSystem, "capacity_bytes_total"),
		"The number of lvm vg total bytes.",
		vgStatLabels,
		constLabels,
	)
	vgUsedBytesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, vgSubSystem, "capacity_bytes_used"),
		"The number of lvm vg used bytes.",
		vgStatLabels,
		constLabels,
	)
	lvTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, vgSubSystem, "lv_total"),
		"The number of lv total.",
		vgStatLabels,
		constLabels,
	)
	pvTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, vgSubSystem, "pv_total"),
		"The number of pv total.",
		vgStatLabels,
		constLabels,
	)
)

type vgStatsCollector struct {
	descs []typedFactorDesc
	vgs   VolumeGroupLister
}

func newVolumeGroupStatsCollector(vgs VolumeGroupLister) Collector {
	return &vgStatsCollector{
		descs: []typedFactorDesc{
			{desc: vgTotalBytesDesc, valueType: prometheus.GaugeValue},
			{desc: vgUsedBytesDesc, valueType: prometheus.GaugeValue},
			{desc: lvTotalDesc, valueType: prometheus.GaugeValue},
			{desc: pvTotalDesc, valueType: prometheus.GaugeValue},
		},
		vgs: vgs,
	}
}

func (v *vgStatsCollector) Name() string {
	return "vg_stats"
}

func (v *vgStatsCollector) Update(ch chan<- prometheus.Metric) error {
	vgList, err := v.vgs.VolumeGroups()
	if err != nil {
		return errors.New("couldn't get volume group:" + err.Error())
	}
	if len(vgList) == 0 {
		return ErrNoData
	}
	for _, vg := range vgList {
		// need keep order with desc
		for i, val := range []float64{
			float64(vg.VGSize),
			float64(vg.VGSize - vg.VGFree),
			float64(vg.LVCount),
			float64(vg.PVCount),
		} {
			if i >= len(v.descs) {
				break
			}
			ch <- v.descs[i].mustNewConstMetric(val, vg.VGName)
		}
	}
	return nil
}
