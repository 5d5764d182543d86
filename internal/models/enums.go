package models

import "strings"

// Unknown is the sentinel shared by every closed enum.
const Unknown = "unknown"

// PathogenType classifies the causative agent.
type PathogenType string

const (
	PathogenViral     PathogenType = "viral"
	PathogenBacterial PathogenType = "bacterial"
	PathogenParasitic PathogenType = "parasitic"
	PathogenFungal    PathogenType = "fungal"
	PathogenUnknown   PathogenType = Unknown
)

// PathogenTypes lists the closed set in prompt order.
var PathogenTypes = []PathogenType{PathogenViral, PathogenBacterial, PathogenParasitic, PathogenFungal, PathogenUnknown}

// Valid reports whether p belongs to the closed set.
func (p PathogenType) Valid() bool { return contains(PathogenTypes, p) }

// ParsePathogenType maps free text onto the closed set.
func ParsePathogenType(raw string) PathogenType { return parse(raw, PathogenTypes, PathogenUnknown) }

// OutbreakStatus is the lifecycle stage reported for an outbreak.
type OutbreakStatus string

const (
	StatusEmerging   OutbreakStatus = "emerging"
	StatusOngoing    OutbreakStatus = "ongoing"
	StatusControlled OutbreakStatus = "controlled"
	StatusResolved   OutbreakStatus = "resolved"
	StatusActive     OutbreakStatus = "active"
	StatusUnknown    OutbreakStatus = Unknown
)

var OutbreakStatuses = []OutbreakStatus{StatusEmerging, StatusOngoing, StatusControlled, StatusResolved, StatusActive, StatusUnknown}

func (s OutbreakStatus) Valid() bool { return contains(OutbreakStatuses, s) }

func ParseOutbreakStatus(raw string) OutbreakStatus {
	return parse(raw, OutbreakStatuses, StatusUnknown)
}

// SeverityLevel doubles as the global threat level scale.
type SeverityLevel string

const (
	SeverityLow      SeverityLevel = "low"
	SeverityModerate SeverityLevel = "moderate"
	SeverityHigh     SeverityLevel = "high"
	SeverityCritical SeverityLevel = "critical"
	SeverityUnknown  SeverityLevel = Unknown
)

var SeverityLevels = []SeverityLevel{SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical, SeverityUnknown}

func (s SeverityLevel) Valid() bool { return contains(SeverityLevels, s) }

func ParseSeverityLevel(raw string) SeverityLevel {
	return parse(raw, SeverityLevels, SeverityUnknown)
}

// TransmissionRisk estimates person-to-person spread.
type TransmissionRisk string

const (
	TransmissionLow      TransmissionRisk = "low"
	TransmissionModerate TransmissionRisk = "moderate"
	TransmissionHigh     TransmissionRisk = "high"
	TransmissionUnknown  TransmissionRisk = Unknown
)

var TransmissionRisks = []TransmissionRisk{TransmissionLow, TransmissionModerate, TransmissionHigh, TransmissionUnknown}

func (t TransmissionRisk) Valid() bool { return contains(TransmissionRisks, t) }

func ParseTransmissionRisk(raw string) TransmissionRisk {
	return parse(raw, TransmissionRisks, TransmissionUnknown)
}

// SpreadPotential is the geographic reach the outbreak may attain.
type SpreadPotential string

const (
	SpreadLocal         SpreadPotential = "local"
	SpreadRegional      SpreadPotential = "regional"
	SpreadNational      SpreadPotential = "national"
	SpreadInternational SpreadPotential = "international"
	SpreadUnknown       SpreadPotential = Unknown
)

var SpreadPotentials = []SpreadPotential{SpreadLocal, SpreadRegional, SpreadNational, SpreadInternational, SpreadUnknown}

func (s SpreadPotential) Valid() bool { return contains(SpreadPotentials, s) }

func ParseSpreadPotential(raw string) SpreadPotential {
	return parse(raw, SpreadPotentials, SpreadUnknown)
}

// ResponseLevel is the highest public-health response observed.
type ResponseLevel string

const (
	ResponseNone          ResponseLevel = "none"
	ResponseMonitoring    ResponseLevel = "monitoring"
	ResponseLocal         ResponseLevel = "local"
	ResponseNational      ResponseLevel = "national"
	ResponseInternational ResponseLevel = "international"
	ResponseUnknown       ResponseLevel = Unknown
)

var ResponseLevels = []ResponseLevel{ResponseNone, ResponseMonitoring, ResponseLocal, ResponseNational, ResponseInternational, ResponseUnknown}

func (r ResponseLevel) Valid() bool { return contains(ResponseLevels, r) }

func ParseResponseLevel(raw string) ResponseLevel {
	return parse(raw, ResponseLevels, ResponseUnknown)
}

// DataReliability grades the source quality.
type DataReliability string

const (
	ReliabilityLow     DataReliability = "low"
	ReliabilityMedium  DataReliability = "medium"
	ReliabilityHigh    DataReliability = "high"
	ReliabilityUnknown DataReliability = Unknown
)

var DataReliabilities = []DataReliability{ReliabilityLow, ReliabilityMedium, ReliabilityHigh, ReliabilityUnknown}

func (d DataReliability) Valid() bool { return contains(DataReliabilities, d) }

func ParseDataReliability(raw string) DataReliability {
	return parse(raw, DataReliabilities, ReliabilityUnknown)
}

// JoinValues renders a closed set as "a|b|c" for prompt schemas.
func JoinValues[T ~string](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, "|")
}

func contains[T ~string](set []T, v T) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}

func parse[T ~string](raw string, set []T, fallback T) T {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if contains(set, v) {
		return v
	}
	return fallback
}
