package score

import "encoding/json"

// VolumeDetails explains a volume score.
type VolumeDetails struct {
	TotalVolume             float64 `json:"total_volume" yaml:"totalVolume"`
	AvgTransferSize         float64 `json:"avg_transfer_size" yaml:"avgTransferSize"`
	VolumePercentile        float64 `json:"volume_percentile" yaml:"volumePercentile"`
	AvgSizePercentile       float64 `json:"avg_size_percentile" yaml:"avgSizePercentile"`
	VolumeComponent         float64 `json:"volume_component" yaml:"volumeComponent"`
	AvgSizeComponent        float64 `json:"avg_size_component" yaml:"avgSizeComponent"`
	RelativeVolumeComponent float64 `json:"relative_volume_component" yaml:"relativeVolumeComponent"`
}

// FrequencyDetails explains a frequency score.
type FrequencyDetails struct {
	TransferCount        int64   `json:"transfer_count" yaml:"transferCount"`
	DaysActive           int64   `json:"days_active" yaml:"daysActive"`
	TransfersPerDay      float64 `json:"transfers_per_day" yaml:"transfersPerDay"`
	UniqueDays           int64   `json:"unique_days" yaml:"uniqueDays"`
	CountPercentile      float64 `json:"count_percentile" yaml:"countPercentile"`
	FrequencyPercentile  float64 `json:"frequency_percentile" yaml:"frequencyPercentile"`
	CountComponent       float64 `json:"count_component" yaml:"countComponent"`
	FrequencyComponent   float64 `json:"frequency_component" yaml:"frequencyComponent"`
	ConsistencyComponent float64 `json:"consistency_component" yaml:"consistencyComponent"`
}

// TemporalDetails explains a temporal score.
type TemporalDetails struct {
	DaysSinceLast      int64   `json:"days_since_last" yaml:"daysSinceLast"`
	RelationshipDays   int64   `json:"relationship_days" yaml:"relationshipDays"`
	TransfersLastWeek  int64   `json:"transfers_last_week" yaml:"transfersLastWeek"`
	TransfersLastMonth int64   `json:"transfers_last_month" yaml:"transfersLastMonth"`
	RecencyComponent   float64 `json:"recency_component" yaml:"recencyComponent"`
	DurationComponent  float64 `json:"duration_component" yaml:"durationComponent"`
	ActivityComponent  float64 `json:"activity_component" yaml:"activityComponent"`
}

// NetworkDetails explains a network score.
type NetworkDetails struct {
	CommonConnections          int64   `json:"common_connections" yaml:"commonConnections"`
	AvgDegreeCentrality        float64 `json:"avg_degree_centrality" yaml:"avgDegreeCentrality"`
	AvgPagerank                float64 `json:"avg_pagerank" yaml:"avgPagerank"`
	CommonConnectionsComponent float64 `json:"common_connections_component" yaml:"commonConnectionsComponent"`
	CentralityComponent        float64 `json:"centrality_component" yaml:"centralityComponent"`
	ImportanceComponent        float64 `json:"importance_component" yaml:"importanceComponent"`
}

// RiskDetails explains a risk score.
type RiskDetails struct {
	RapidTransfers        int64   `json:"rapid_transfers" yaml:"rapidTransfers"`
	RoundNumbers          int64   `json:"round_numbers" yaml:"roundNumbers"`
	UnusualTimeTransfers  int64   `json:"unusual_time_transfers" yaml:"unusualTimeTransfers"`
	NewAccountInteraction bool    `json:"new_account_interaction" yaml:"newAccountInteraction"`
	RapidTransferRisk     float64 `json:"rapid_transfer_risk" yaml:"rapidTransferRisk"`
	RoundNumberRisk       float64 `json:"round_number_risk" yaml:"roundNumberRisk"`
	TimeAnomalyRisk       float64 `json:"time_anomaly_risk" yaml:"timeAnomalyRisk"`
	NewAccountRisk        float64 `json:"new_account_risk" yaml:"newAccountRisk"`
}

// Weights are the composite weights of the four positive components.
type Weights struct {
	Volume    float64 `json:"volume" yaml:"volume"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Temporal  float64 `json:"temporal" yaml:"temporal"`
	Network   float64 `json:"network" yaml:"network"`
}

// DefaultWeights sum to 1.
var DefaultWeights = Weights{
	Volume:    0.25,
	Frequency: 0.25,
	Temporal:  0.20,
	Network:   0.30,
}

// Base is the weighted sum of the component scores.
func (w Weights) Base(volume, frequency, temporal, network float64) float64 {
	return volume*w.Volume + frequency*w.Frequency + temporal*w.Temporal + network*w.Network
}

// RiskMultiplier maps a risk score in [0,100] onto [0.5,1].
func RiskMultiplier(risk float64) float64 {
	return 1 - risk/200
}

// Details is the per-component breakdown of a RelationshipScore. A component
// that did not apply is nil and is rendered as an empty object.
type Details struct {
	Volume         *VolumeDetails    `json:"volume" yaml:"volume"`
	Frequency      *FrequencyDetails `json:"frequency" yaml:"frequency"`
	Temporal       *TemporalDetails  `json:"temporal" yaml:"temporal"`
	Network        *NetworkDetails   `json:"network" yaml:"network"`
	Risk           *RiskDetails      `json:"risk" yaml:"risk"`
	Weights        Weights           `json:"weights" yaml:"weights"`
	BaseScore      float64           `json:"base_score" yaml:"baseScore"`
	RiskMultiplier float64           `json:"risk_multiplier" yaml:"riskMultiplier"`
}

func (d Details) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Volume         any     `json:"volume"`
		Frequency      any     `json:"frequency"`
		Temporal       any     `json:"temporal"`
		Network        any     `json:"network"`
		Risk           any     `json:"risk"`
		Weights        Weights `json:"weights"`
		BaseScore      float64 `json:"base_score"`
		RiskMultiplier float64 `json:"risk_multiplier"`
	}{
		Volume:         orEmpty(d.Volume),
		Frequency:      orEmpty(d.Frequency),
		Temporal:       orEmpty(d.Temporal),
		Network:        orEmpty(d.Network),
		Risk:           orEmpty(d.Risk),
		Weights:        d.Weights,
		BaseScore:      d.BaseScore,
		RiskMultiplier: d.RiskMultiplier,
	})
}

// MarshalYAML renders nil components as empty mappings, matching MarshalJSON.
func (d Details) MarshalYAML() (any, error) {
	return struct {
		Volume         any     `yaml:"volume"`
		Frequency      any     `yaml:"frequency"`
		Temporal       any     `yaml:"temporal"`
		Network        any     `yaml:"network"`
		Risk           any     `yaml:"risk"`
		Weights        Weights `yaml:"weights"`
		BaseScore      float64 `yaml:"baseScore"`
		RiskMultiplier float64 `yaml:"riskMultiplier"`
	}{
		Volume:         orEmpty(d.Volume),
		Frequency:      orEmpty(d.Frequency),
		Temporal:       orEmpty(d.Temporal),
		Network:        orEmpty(d.Network),
		Risk:           orEmpty(d.Risk),
		Weights:        d.Weights,
		BaseScore:      d.BaseScore,
		RiskMultiplier: d.RiskMultiplier,
	}, nil
}

func orEmpty[T any](v *T) any {
	if v == nil {
		return struct{}{}
	}
	return v
}

// RelationshipScore is the computed strength of one ordered pair.
type RelationshipScore struct {
	From      string  `json:"from_address" yaml:"fromAddress"`
	To        string  `json:"to_address" yaml:"toAddress"`
	Volume    float64 `json:"volume_score" yaml:"volumeScore"`
	Frequency float64 `json:"frequency_score" yaml:"frequencyScore"`
	Temporal  float64 `json:"temporal_score" yaml:"temporalScore"`
	Network   float64 `json:"network_score" yaml:"networkScore"`
	Risk      float64 `json:"risk_score" yaml:"riskScore"`
	Total     float64 `json:"total_score" yaml:"totalScore"`
	Details   Details `json:"details" yaml:"details"`
}

// Band is the categorical strength of a total score.
type Band string

const (
	BandVeryWeak   Band = "very_weak"
	BandWeak       Band = "weak"
	BandModerate   Band = "moderate"
	BandStrong     Band = "strong"
	BandVeryStrong Band = "very_strong"
)

var bandDescriptions = map[Band]string{
	BandVeryWeak:   "Very weak relationship (minimal interaction)",
	BandWeak:       "Weak relationship (occasional interaction)",
	BandModerate:   "Moderate relationship (regular interaction)",
	BandStrong:     "Strong relationship (frequent, consistent interaction)",
	BandVeryStrong: "Very strong relationship (high volume, frequent, well-connected)",
}

// BandOf returns the band total falls into. Upper bounds are inclusive.
func BandOf(total float64) Band {
	switch {
	case total <= 20:
		return BandVeryWeak
	case total <= 40:
		return BandWeak
	case total <= 60:
		return BandModerate
	case total <= 80:
		return BandStrong
	default:
		return BandVeryStrong
	}
}

// Description is the human readable form of the band.
func (b Band) Description() string {
	return bandDescriptions[b]
}

// Interpret describes a total score in words.
func Interpret(total float64) string {
	return BandOf(total).Description()
}
