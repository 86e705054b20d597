// Package config decodes a process's flat baseplate.yaml-shaped
// configuration into the typed settings the tracing, recorder, and
// publisher packages take as construction parameters, grounded on the
// teacher's own use of github.com/mitchellh/mapstructure for decoding
// loosely-typed maps (env vars, YAML, flags) into strongly-typed structs
// without a bespoke parser per source (spec §6.4).
package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Tracing is the decoded shape of the tracing.* configuration block.
type Tracing struct {
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	QueueName   string  `mapstructure:"queue_name"`
}

// Publisher is the decoded shape of the publisher.* configuration block
// consumed by the span-publisher sidecar (C8).
type Publisher struct {
	CollectorURL   string        `mapstructure:"collector_url"`
	MaxBatchSize   int           `mapstructure:"max_batch_size"`
	MaxBatchAge    time.Duration `mapstructure:"max_batch_age"`
	MaxMessages    int           `mapstructure:"queue_max_messages"`
	MaxMessageSize int           `mapstructure:"queue_max_message_size"`
}

// Decode populates out (a pointer to Tracing, Publisher, or any other
// mapstructure-tagged struct) from a loosely-typed settings map, applying
// the percent/duration decode hooks this package's config values need.
// When out is a *Tracing whose SampleRate is zero and raw has no
// sample_rate key, SampleRate defaults to 0.1.
func Decode(raw map[string]interface{}, out interface{}) error {
	if t, ok := out.(*Tracing); ok {
		if _, set := raw["sample_rate"]; !set && t.SampleRate == 0 {
			t.SampleRate = 0.1
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			percentHookFunc,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// percentHookFunc decodes a trailing-percent string ("10%") into its
// fractional float64 form (0.10), the form sample_rate is conventionally
// authored in (spec §6.4 "sample_rate accepts a percent string").
func percentHookFunc(from, to reflect.Kind, data interface{}) (interface{}, error) {
	if from != reflect.String || to != reflect.Float64 {
		return data, nil
	}
	s, ok := data.(string)
	if !ok || !strings.HasSuffix(s, "%") {
		return data, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return data, nil
	}
	return v / 100, nil
}
