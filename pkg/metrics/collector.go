package metrics

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carina-io/mdlvm"
	"github.com/carina-io/mdlvm/pkg/devicemanager/raid"
	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
	"github.com/carina-io/mdlvm/utils/log"
)

const (
	namespace       string = mdlvm.MetricsNamespace
	scrapeSubSystem string = "scrape"
)

var (
	// ErrNoData indicates the collector found no data to collect, but had no other error.
	ErrNoData   = errors.New("collector returned no data")
	hostname, _ = os.Hostname()
	constLabels = prometheus.Labels{"hostname": hostname}

	scrapeDurationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, scrapeSubSystem, "collector_duration_seconds"),
		"mdlvm: Duration of a collector scrape.",
		[]string{"collector"},
		nil,
	)
	scrapeSuccessDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, scrapeSubSystem, "collector_success"),
		"mdlvm: Whether a collector succeeded.",
		[]string{"collector"},
		nil,
	)
)

type typedFactorDesc struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
}

func (d *typedFactorDesc) mustNewConstMetric(value float64, labels ...string) prometheus.Metric {
	return prometheus.MustNewConstMetric(d.desc, d.valueType, value, labels...)
}

// Collector is the interface a collector has to implement.
type Collector interface {
	Update(ch chan<- prometheus.Metric) error
	Name() string
}

// VolumeGroupLister volume groups managed by this host
type VolumeGroupLister interface {
	VolumeGroups() ([]types.VgGroup, error)
}

// VolumeSource outcome of the last reconciliation of every volume
type VolumeSource interface {
	Statuses() []types.VolumeStatus
}

// MdlvmCollector implements the prometheus.Collector interface.
type MdlvmCollector struct {
	collectors map[string]Collector
}

func NewMdlvmCollector(procPath string, vgs VolumeGroupLister, volumes VolumeSource, mdstat raid.MDStatReader) (*MdlvmCollector, error) {
	collectors := make(map[string]Collector)

	vgStatsCollector := newVolumeGroupStatsCollector(vgs)
	mdStatsCollector := newRaidStatsCollector(mdstat)
	volumeStatsCollector, err := newVolumeStatsCollector(procPath, volumes)
	if err != nil {
		return nil, err
	}
	collectors[vgStatsCollector.Name()] = vgStatsCollector
	collectors[mdStatsCollector.Name()] = mdStatsCollector
	collectors[volumeStatsCollector.Name()] = volumeStatsCollector

	return &MdlvmCollector{collectors: collectors}, nil
}

// Describe implements the prometheus.Collector interface.
func (c MdlvmCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements the prometheus.Collector interface.
func (c MdlvmCollector) Collect(ch chan<- prometheus.Metric) {
	wg := sync.WaitGroup{}
	wg.Add(len(c.collectors))
	for name, c := range c.collectors {
		go func(name string, c Collector) {
			execute(name, c, ch)
			wg.Done()
		}(name, c)
	}
	wg.Wait()
}

func execute(name string, c Collector, ch chan<- prometheus.Metric) {
	begin := time.Now()
	err := c.Update(ch)
	duration := time.Since(begin)
	var success float64

	if err != nil {
		if IsNoDataError(err) {
			log.Debugf("collector %s returned no data after %.3fs: %v", name, duration.Seconds(), err)
		} else {
			log.Warnf("collector %s failed after %.3fs: %v", name, duration.Seconds(), err)
		}
		success = 0
	} else {
		log.Debugf("collector %s succeeded after %.3fs", name, duration.Seconds())
		success = 1
	}
	ch <- prometheus.MustNewConstMetric(scrapeDurationDesc, prometheus.GaugeValue, duration.Seconds(), name)
	ch <- prometheus.MustNewConstMetric(scrapeSuccessDesc, prometheus.GaugeValue, success, name)
}

func IsNoDataError(err error) bool {
	return err == ErrNoData
}
