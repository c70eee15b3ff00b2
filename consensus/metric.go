package consensus

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	gometrics "github.com/rcrowley/go-metrics"

	"dualbft/libs/metric"
	"dualbft/types"
)

// roundMetric is a per-round snapshot of the state machine, generalizing
// the teacher repository's consensusMetric from a single logical slot to the
// (height, view, role) triple this engine actually tracks.
type roundMetric struct {
	Height types.Height `json:"height"`
	View   uint8        `json:"view"`

	RoundStartTime time.Time `json:"round_start_time"`

	Role         string `json:"role"`
	RequestSent  bool   `json:"request_sent_or_received"`
	ResponseSent bool   `json:"response_sent"`
	CommitSent   bool   `json:"commit_sent"`
	BlockSent    bool   `json:"block_sent"`
	ViewChanging bool   `json:"view_changing"`
}

func newRoundMetric() *roundMetric {
	return &roundMetric{}
}

func (rm *roundMetric) JSONString() string {
	s, _ := jsoniter.MarshalToString(rm)
	return s
}

func (rm *roundMetric) mark(c *Context, startedAt time.Time) {
	rm.Height = c.Height
	rm.View = uint8(c.View)
	rm.RoundStartTime = startedAt
	rm.Role = c.Role.String()
	rm.RequestSent = c.RequestSentOrReceived
	rm.ResponseSent = c.ResponseSent
	rm.CommitSent = c.CommitSent
	rm.BlockSent = c.BlockSent
	rm.ViewChanging = c.ViewChanging
}

// Counters registered with go-metrics' default registry, one per Service
// instance would collide on the name, so each Service makes its own
// registry instead of sharing gometrics.DefaultRegistry.
type counters struct {
	registry         gometrics.Registry
	commitsSent      gometrics.Counter
	blocksCommitted  gometrics.Counter
	viewChangesSent  gometrics.Counter
	recoveryMsgsSent gometrics.Counter
	roundDuration    gometrics.Timer
}

func newCounters() *counters {
	r := gometrics.NewRegistry()
	return &counters{
		registry:         r,
		commitsSent:      gometrics.NewRegisteredCounter("commits_sent_total", r),
		blocksCommitted:  gometrics.NewRegisteredCounter("blocks_committed_total", r),
		viewChangesSent:  gometrics.NewRegisteredCounter("view_changes_total", r),
		recoveryMsgsSent: gometrics.NewRegisteredCounter("recovery_messages_total", r),
		roundDuration:    gometrics.NewRegisteredTimer("round_duration", r),
	}
}

// Metric renders the service's current round snapshot, exposed by the
// status RPC.
func (s *Service) Metric() string {
	s.roundMetric.mark(s.ctx, s.roundStartedAt)
	return s.roundMetric.JSONString()
}

// Counters exposes the go-metrics registry for the status RPC's metrics
// endpoint.
func (s *Service) Counters() gometrics.Registry {
	return s.counters.registry
}

// RoundSummary is a read-only view of the current round for the status
// RPC's /round endpoint.
type RoundSummary struct {
	Height         types.Height `json:"height"`
	View           types.View   `json:"view"`
	Role           string       `json:"role"`
	N              int          `json:"n"`
	M              int          `json:"m"`
	F              int          `json:"f"`
	Commits        int          `json:"commits"`
	ChangeViews    int          `json:"change_views"`
	CommitSent     bool         `json:"commit_sent"`
	BlockSent      bool         `json:"block_sent"`
	CountCommitted int          `json:"count_committed"`
	CountFailed    int          `json:"count_failed"`
}

// serviceMetricItem adapts Service.Metric to libs/metric.MetricItem so it
// can be registered into a metric.MetricSet alongside other subsystems'
// snapshots.
type serviceMetricItem struct{ s *Service }

func (a serviceMetricItem) JSONString() string { return a.s.Metric() }

func (s *Service) AsMetricItem() metric.MetricItem { return serviceMetricItem{s} }

func (s *Service) RoundSummary() RoundSummary {
	return RoundSummary{
		Height:         s.ctx.Height,
		View:           s.ctx.View,
		Role:           s.ctx.Role.String(),
		N:              s.ctx.N(),
		M:              s.ctx.M(),
		F:              s.ctx.F(),
		Commits:        len(s.ctx.Commits),
		ChangeViews:    len(s.ctx.ChangeViews),
		CommitSent:     s.ctx.CommitSent,
		BlockSent:      s.ctx.BlockSent,
		CountCommitted: s.ctx.CountCommitted,
		CountFailed:    s.ctx.CountFailed,
	}
}
