package transfer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	objectsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "git_lfs_client",
		Subsystem: "transfer",
		Name:      "objects_total",
		Help:      "The total number of batch objects that reached a terminal state",
	}, []string{"operation", "state"})

	retriesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "git_lfs_client",
		Subsystem: "transfer",
		Name:      "retries_total",
		Help:      "The total number of transfer attempts after the first one",
	}, []string{"operation"})

	bytesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "git_lfs_client",
		Subsystem: "transfer",
		Name:      "bytes_total",
		Help:      "The total number of object bytes successfully transferred",
	}, []string{"operation"})
)
