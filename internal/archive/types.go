// Package archive stores a finished tonal art map in a single SQLite file:
// every (tone, mip) canvas and every packed image as a gzip-compressed PNG.
package archive

import (
	"strconv"
)

// Metadata describes the map stored in an archive.
type Metadata struct {
	Name        string
	Description string
	Version     string
	RunID       string
	Resolution  int
	MipLevels   int
	ToneLevels  int
	MinTone     float64
	MaxTone     float64
	Seed        int64

	BaseCandidates    int
	CandidateFalloff  int
	MaxIterations     int
	LowAlphaThreshold float64
	SkewDisabled      bool
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Version != "" {
		result["version"] = m.Version
	}
	if m.RunID != "" {
		result["run_id"] = m.RunID
	}
	if m.Resolution > 0 {
		result["resolution"] = strconv.Itoa(m.Resolution)
	}
	if m.MipLevels > 0 {
		result["mip_levels"] = strconv.Itoa(m.MipLevels)
	}
	if m.ToneLevels > 0 {
		result["tone_levels"] = strconv.Itoa(m.ToneLevels)
	}
	result["min_tone"] = strconv.FormatFloat(m.MinTone, 'g', -1, 64)
	result["max_tone"] = strconv.FormatFloat(m.MaxTone, 'g', -1, 64)
	result["seed"] = strconv.FormatInt(m.Seed, 10)
	if m.BaseCandidates > 0 {
		result["candidates"] = strconv.Itoa(m.BaseCandidates)
	}
	if m.CandidateFalloff > 0 {
		result["candidate_falloff"] = strconv.Itoa(m.CandidateFalloff)
	}
	if m.MaxIterations > 0 {
		result["max_iterations"] = strconv.Itoa(m.MaxIterations)
	}
	result["low_alpha_threshold"] = strconv.FormatFloat(m.LowAlphaThreshold, 'g', -1, 64)
	result["skew_disabled"] = strconv.FormatBool(m.SkewDisabled)

	return result
}

func metadataFromMap(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Description: values["description"],
		Version:     values["version"],
		RunID:       values["run_id"],
	}

	if v, err := strconv.Atoi(values["resolution"]); err == nil {
		meta.Resolution = v
	}
	if v, err := strconv.Atoi(values["mip_levels"]); err == nil {
		meta.MipLevels = v
	}
	if v, err := strconv.Atoi(values["tone_levels"]); err == nil {
		meta.ToneLevels = v
	}
	if v, err := strconv.ParseFloat(values["min_tone"], 64); err == nil {
		meta.MinTone = v
	}
	if v, err := strconv.ParseFloat(values["max_tone"], 64); err == nil {
		meta.MaxTone = v
	}
	if v, err := strconv.ParseInt(values["seed"], 10, 64); err == nil {
		meta.Seed = v
	}
	if v, err := strconv.Atoi(values["candidates"]); err == nil {
		meta.BaseCandidates = v
	}
	if v, err := strconv.Atoi(values["candidate_falloff"]); err == nil {
		meta.CandidateFalloff = v
	}
	if v, err := strconv.Atoi(values["max_iterations"]); err == nil {
		meta.MaxIterations = v
	}
	if v, err := strconv.ParseFloat(values["low_alpha_threshold"], 64); err == nil {
		meta.LowAlphaThreshold = v
	}
	if v, err := strconv.ParseBool(values["skew_disabled"]); err == nil {
		meta.SkewDisabled = v
	}

	return meta
}
