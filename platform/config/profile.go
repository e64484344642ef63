package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the watch profile file: which subject to monitor, where to look,
// and how wide each stage's window is. Environment values (SUBJECT) take
// precedence over the file so one deployment can track different subjects.
type Profile struct {
	Subject string `yaml:"subject"`

	Observe struct {
		Feeds    []string `yaml:"feeds"`
		Keywords []string `yaml:"keywords"`
		DaysBack int      `yaml:"days_back"`
	} `yaml:"observe"`

	Orient struct {
		BatchSize int `yaml:"batch_size"`
		Workers   int `yaml:"workers"`
	} `yaml:"orient"`

	Decide struct {
		BatchLimit int `yaml:"batch_limit"`
		Workers    int `yaml:"workers"`
	} `yaml:"decide"`

	Act struct {
		WindowDays int `yaml:"window_days"`
		ItemLimit  int `yaml:"item_limit"`
		SampleCap  int `yaml:"sample_cap"`
	} `yaml:"act"`
}

// LoadProfile reads and validates the watch profile file, applying defaults
// for every optional field.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse watch profile: %w", err)
	}
	p.applyDefaults()
	return &p, nil
}

func (p *Profile) applyDefaults() {
	if p.Observe.DaysBack <= 0 {
		p.Observe.DaysBack = 10
	}
	if p.Orient.BatchSize <= 0 {
		p.Orient.BatchSize = 5
	}
	if p.Orient.Workers <= 0 {
		p.Orient.Workers = 6
	}
	if p.Decide.BatchLimit <= 0 {
		p.Decide.BatchLimit = 30
	}
	if p.Decide.Workers <= 0 {
		p.Decide.Workers = 20
	}
	if p.Act.WindowDays <= 0 {
		p.Act.WindowDays = 7
	}
	if p.Act.ItemLimit <= 0 {
		p.Act.ItemLimit = 50
	}
	if p.Act.SampleCap <= 0 {
		p.Act.SampleCap = 12
	}
}

// ResolveSubject returns the subject to monitor: the SUBJECT environment
// value when set, otherwise the profile's subject.
func (p *Profile) ResolveSubject(cfg SubjectConfig) (string, error) {
	if s := strings.TrimSpace(cfg.GetSubject()); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(p.Subject); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("no subject configured: set SUBJECT or profile subject")
}

// ObserveCutoff returns the oldest publication time accepted by the ingest
// filter, relative to now.
func (p *Profile) ObserveCutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(p.Observe.DaysBack) * 24 * time.Hour)
}

// RecencyWindow returns the start of the decide/act recency window, relative
// to now.
func (p *Profile) RecencyWindow(now time.Time) time.Time {
	return now.Add(-time.Duration(p.Act.WindowDays) * 24 * time.Hour)
}
