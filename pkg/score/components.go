package score

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mchmarny/relscore/pkg/data"
	"github.com/shopspring/decimal"
)

const (
	// transfersPerDayCeiling is the rate treated as fully frequent.
	transfersPerDayCeiling = 10.0
	defaultRelativeVolume  = 15.0
	newAccountDays         = 7
	unusualHourFrom        = 2
	unusualHourTo          = 5
)

// roundUnit is one display unit (10^12 smallest units). Multiples of 10^13
// and 10^14 are multiples of it as well.
var roundUnit = decimal.New(1, 12)

func (s *Scorer) volume(ctx context.Context, p *pair) (float64, *VolumeDetails, error) {
	if p.rel == nil {
		return 0, nil, nil
	}

	total := p.rel.TotalVolume.InexactFloat64()
	avg := total / float64(max(p.rel.TransferCount, 1))

	volPct, err := s.ranker.PercentileRank(ctx, data.PopulationVolume, total)
	if err != nil {
		return 0, nil, err
	}
	avgPct, err := s.ranker.PercentileRank(ctx, data.PopulationAvgTransferSize, avg)
	if err != nil {
		return 0, nil, err
	}

	d := &VolumeDetails{
		TotalVolume:             total,
		AvgTransferSize:         avg,
		VolumePercentile:        volPct,
		AvgSizePercentile:       avgPct,
		VolumeComponent:         math.Min(40, volPct*40),
		AvgSizeComponent:        math.Min(30, avgPct*30),
		RelativeVolumeComponent: defaultRelativeVolume,
	}
	if p.rel.SenderBalance.IsPositive() {
		d.RelativeVolumeComponent = math.Min(30, total/p.rel.SenderBalance.InexactFloat64()*100)
	}

	return math.Min(100, d.VolumeComponent+d.AvgSizeComponent+d.RelativeVolumeComponent), d, nil
}

// span returns the first and last transfer times.
func span(list []*data.Transfer) (first, last time.Time) {
	for i, t := range list {
		if i == 0 || t.Timestamp.Before(first) {
			first = t.Timestamp
		}
		if i == 0 || t.Timestamp.After(last) {
			last = t.Timestamp
		}
	}
	return first, last
}

func (s *Scorer) frequency(ctx context.Context, p *pair) (float64, *FrequencyDetails, error) {
	if p.rel == nil || len(p.transfers) == 0 || p.rel.TransferCount == 0 {
		return 0, nil, nil
	}

	first, last := span(p.transfers)
	days := make(map[string]struct{})
	for _, t := range p.transfers {
		days[t.Timestamp.UTC().Format(time.DateOnly)] = struct{}{}
	}

	count := p.rel.TransferCount
	d := &FrequencyDetails{
		TransferCount: count,
		DaysActive:    max(floorDays(last.Sub(first))+1, 1),
		UniqueDays:    int64(len(days)),
	}
	d.TransfersPerDay = float64(count) / float64(d.DaysActive)

	pct, err := s.ranker.PercentileRank(ctx, data.PopulationTransferCount, float64(count))
	if err != nil {
		return 0, nil, err
	}
	d.CountPercentile = pct
	d.FrequencyPercentile = math.Min(1, d.TransfersPerDay/transfersPerDayCeiling)
	d.CountComponent = math.Min(40, pct*40)
	d.FrequencyComponent = math.Min(30, d.FrequencyPercentile*30)
	d.ConsistencyComponent = math.Min(30, float64(d.UniqueDays)/float64(d.DaysActive)*30)

	return math.Min(100, d.CountComponent+d.FrequencyComponent+d.ConsistencyComponent), d, nil
}

func recency(daysSinceLast int64) float64 {
	switch {
	case daysSinceLast <= 1:
		return 40
	case daysSinceLast <= 7:
		return 35
	case daysSinceLast <= 30:
		return 25
	case daysSinceLast <= 90:
		return 15
	case daysSinceLast <= 365:
		return 5
	default:
		return 0
	}
}

func (s *Scorer) temporal(p *pair, now time.Time) (float64, *TemporalDetails) {
	if p.rel == nil || len(p.transfers) == 0 {
		return 0, nil
	}

	first, last := span(p.transfers)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	d := &TemporalDetails{
		DaysSinceLast:    floorDays(now.Sub(last)),
		RelationshipDays: floorDays(last.Sub(first)) + 1,
	}
	for _, t := range p.transfers {
		if !t.Timestamp.Before(weekAgo) {
			d.TransfersLastWeek++
		}
		if !t.Timestamp.Before(monthAgo) {
			d.TransfersLastMonth++
		}
	}

	d.RecencyComponent = recency(d.DaysSinceLast)
	d.DurationComponent = math.Min(30, float64(d.RelationshipDays)/365*30)
	if count := p.rel.TransferCount; count > 0 {
		week := float64(d.TransfersLastWeek) / float64(count)
		month := float64(d.TransfersLastMonth) / float64(count)
		d.ActivityComponent = math.Min(30, week*15+month*15)
	}

	return d.RecencyComponent + d.DurationComponent + d.ActivityComponent, d
}

func (s *Scorer) metrics(ctx context.Context, address string) (*data.NetworkMetrics, error) {
	m, err := s.src.GetNetworkMetrics(ctx, address)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return &data.NetworkMetrics{Address: address}, nil
		}
		return nil, err
	}
	return m, nil
}

func (s *Scorer) network(ctx context.Context, p *pair) (float64, *NetworkDetails, error) {
	if p.rel == nil {
		return 0, nil, nil
	}

	common, err := s.src.CountCommonConnections(ctx, p.from, p.to)
	if err != nil {
		return 0, nil, err
	}
	fm, err := s.metrics(ctx, p.from)
	if err != nil {
		return 0, nil, fmt.Errorf("metrics for %s: %w", p.from, err)
	}
	tm, err := s.metrics(ctx, p.to)
	if err != nil {
		return 0, nil, fmt.Errorf("metrics for %s: %w", p.to, err)
	}

	d := &NetworkDetails{
		CommonConnections:   common,
		AvgDegreeCentrality: (fm.DegreeCentrality + tm.DegreeCentrality) / 2,
		AvgPagerank:         (fm.PageRank + tm.PageRank) / 2,
	}
	d.CommonConnectionsComponent = math.Min(40, float64(common)*5)
	d.CentralityComponent = math.Min(30, d.AvgDegreeCentrality*100)
	d.ImportanceComponent = math.Min(30, d.AvgPagerank*1000)

	return math.Min(100, d.CommonConnectionsComponent+d.CentralityComponent+d.ImportanceComponent), d, nil
}

func (s *Scorer) risk(ctx context.Context, p *pair) (float64, *RiskDetails, error) {
	if p.rel == nil {
		return 0, nil, nil
	}

	rapid, err := s.src.CountRapidRelays(ctx, p.from, p.to)
	if err != nil {
		return 0, nil, err
	}

	d := &RiskDetails{RapidTransfers: rapid}
	for _, t := range p.transfers {
		if t.Value.Mod(roundUnit).IsZero() {
			d.RoundNumbers++
		}
		if h := t.Timestamp.UTC().Hour(); h >= unusualHourFrom && h <= unusualHourTo {
			d.UnusualTimeTransfers++
		}
	}
	if p.rel.CreatedAt != nil && p.rel.ReceiverCreatedAt != nil {
		d.NewAccountInteraction = floorDays(p.rel.CreatedAt.Sub(*p.rel.ReceiverCreatedAt)) < newAccountDays
	}

	count := p.rel.TransferCount
	d.RapidTransferRisk = math.Min(30, ratio(d.RapidTransfers, count)*100)
	d.RoundNumberRisk = math.Min(25, ratio(d.RoundNumbers, count)*50)
	d.TimeAnomalyRisk = math.Min(25, ratio(d.UnusualTimeTransfers, count)*50)
	if d.NewAccountInteraction {
		d.NewAccountRisk = 20
	}

	total := d.RapidTransferRisk + d.RoundNumberRisk + d.TimeAnomalyRisk + d.NewAccountRisk
	return math.Min(100, total), d, nil
}
