package parser

import "github.com/prometheus/client_golang/prometheus"

// Keys for change journal metrics.
const (
	IoctlTotalKey           = "usn_ioctl_total"
	RecordsDecodedTotalKey  = "usn_records_decoded_total"
	PathResolutionsTotalKey = "usn_path_resolutions_total"

	Fail = "fail"
	Ok   = "ok"
	EOF  = "eof"
)

// Collectors for change journal metrics.
var (
	IoctlTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: IoctlTotalKey,
		Help: "Cumulative number of change journal control requests.",
	}, []string{"op", "status"})
	RecordsDecodedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: RecordsDecodedTotalKey,
		Help: "Cumulative number of USN records delivered to consumers.",
	}, []string{"source"})
	PathResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: PathResolutionsTotalKey,
		Help: "Cumulative number of file reference to path resolutions.",
	}, []string{"status"})
)

// RegisterMetrics registers the collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		IoctlTotal, RecordsDecodedTotal, PathResolutionsTotal} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func countIoctl(op string, err error) {
	STATS.Inc_Ioctls(err != nil && !isHandleEOF(err))

	status := Ok
	if isHandleEOF(err) {
		status = EOF
	} else if err != nil {
		status = Fail
	}
	IoctlTotal.WithLabelValues(op, status).Inc()
}
