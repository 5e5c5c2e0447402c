package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carina-io/mdlvm/pkg/devicemanager/raid"
)

const (
	raidSubSystem string = "raid_stats"
)

var (
	raidStatLabels = []string{"device"}

	raidDisksActiveDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, raidSubSystem, "disks_active"),
		"The number of active member disks of the md array.",
		raidStatLabels,
		constLabels,
	)
	raidDisksTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, raidSubSystem, "disks_total"),
		"The number of member disks of the md array.",
		raidStatLabels,
		constLabels,
	)
	raidStateDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, raidSubSystem, "state"),
		"Activity state of the md array, 1 for the current state.",
		[]string{"device", "state"},
		constLabels,
	)
)

type raidStatsCollector struct {
	mdstat raid.MDStatReader
}

func newRaidStatsCollector(mdstat raid.MDStatReader) Collector {
	return &raidStatsCollector{mdstat: mdstat}
}

func (r *raidStatsCollector) Name() string {
	return "raid_stats"
}

func (r *raidStatsCollector) Update(ch chan<- prometheus.Metric) error {
	arrays, err := r.mdstat.Arrays()
	if err != nil {
		return errors.New("couldn't get mdstat:" + err.Error())
	}
	if len(arrays) == 0 {
		return ErrNoData
	}
	for _, a := range arrays {
		ch <- prometheus.MustNewConstMetric(raidDisksActiveDesc, prometheus.GaugeValue, float64(a.DisksActive), a.Device)
		ch <- prometheus.MustNewConstMetric(raidDisksTotalDesc, prometheus.GaugeValue, float64(a.DisksTotal), a.Device)
		ch <- prometheus.MustNewConstMetric(raidStateDesc, prometheus.GaugeValue, 1, a.Device, a.State)
	}
	return nil
}
