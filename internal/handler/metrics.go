package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/oa-lab/hrdesk/dao/model"
	"github.com/oa-lab/hrdesk/internal/resputil"
	"github.com/oa-lab/hrdesk/pkg/changefeed"
)

type MetricsMgr struct {
	name string
	db   *gorm.DB
	feed *changefeed.Feed
}

func NewMetricsMgr(conf *RegisterConfig) Manager {
	return &MetricsMgr{
		name: "metrics",
		db:   conf.DB,
		feed: conf.Feed,
	}
}

func (mgr *MetricsMgr) GetName() string { return mgr.name }

func (mgr *MetricsMgr) RegisterPublic(metrics *gin.RouterGroup) {
	metrics.GET("", mgr.GetMetrics)
}

func (mgr *MetricsMgr) RegisterProtected(_ *gin.RouterGroup) {}

func (mgr *MetricsMgr) RegisterAdmin(_ *gin.RouterGroup) {}

// Custom registry so the endpoint only exposes our own gauges.
var registry *prometheus.Registry

var promHTTPHandler http.Handler

var openRequestsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hrdesk_open_requests",
		Help: "Number of requests per non-terminal status",
	},
	[]string{"status"},
)

var openConsultationsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hrdesk_open_consultations",
		Help: "Number of consultations per non-terminal status",
	},
	[]string{"status"},
)

// The ledger is append-only, so a scrape-time gauge over it never decreases.
var transitionsGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "hrdesk_workflow_transitions_total",
		Help: "Ledger entries per item type and action",
	},
	[]string{"item_type", "action"},
)

var feedSubscribersGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "hrdesk_changefeed_subscribers",
		Help: "Currently connected changefeed subscribers",
	},
)

//nolint:gochecknoinits // This is the standard way to register a gin handler.
func init() {
	Registers = append(Registers, NewMetricsMgr)
	registry = prometheus.NewRegistry()
	promHTTPHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	registry.MustRegister(openRequestsGauge)
	registry.MustRegister(openConsultationsGauge)
	registry.MustRegister(transitionsGauge)
	registry.MustRegister(feedSubscribersGauge)
}

type statusCount struct {
	Status string
	Count  int
}

// GetMetrics godoc
// @Summary Expose workload gauges
// @Description Prometheus-formatted counts of open requests and consultations
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "metrics payload"
// @Router /metrics [get]
func (mgr *MetricsMgr) GetMetrics(c *gin.Context) {
	var requests []statusCount
	err := mgr.db.WithContext(c).
		Model(&model.ServiceRequest{}).
		Select("status", "count(*) as count").
		Where("status NOT IN ?", []model.RequestStatus{
			model.RequestStatusApprovedFinal, model.RequestStatusRejected,
		}).
		Group("status").
		Scan(&requests).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	var consultations []statusCount
	err = mgr.db.WithContext(c).
		Model(&model.Consultation{}).
		Select("status", "count(*) as count").
		Where("status NOT IN ?", []model.ConsultationStatus{
			model.ConsultationResolved, model.ConsultationClosed,
		}).
		Group("status").
		Scan(&consultations).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	var transitions []struct {
		ItemType string
		Action   string
		Count    int
	}
	err = mgr.db.WithContext(c).
		Model(&model.HistoryEntry{}).
		Select("item_type", "action", "count(*) as count").
		Group("item_type").Group("action").
		Scan(&transitions).Error
	if err != nil {
		resputil.Error(c, err.Error(), resputil.NotSpecified)
		return
	}

	openRequestsGauge.Reset()
	for _, row := range requests {
		openRequestsGauge.WithLabelValues(row.Status).Set(float64(row.Count))
	}
	openConsultationsGauge.Reset()
	for _, row := range consultations {
		openConsultationsGauge.WithLabelValues(row.Status).Set(float64(row.Count))
	}
	for _, row := range transitions {
		transitionsGauge.WithLabelValues(row.ItemType, row.Action).Set(float64(row.Count))
	}
	feedSubscribersGauge.Set(float64(mgr.feed.SubscriberCount()))

	promHTTPHandler.ServeHTTP(c.Writer, c.Request)
}
