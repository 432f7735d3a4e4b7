// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metric

import (
	"fmt"
	"io"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// prometheusPrefix is prepended to every exported metric name.
const prometheusPrefix = "syncsc"

// PrometheusName returns the exposition name of the metric called name:
// "/sync/deadlock_denied" becomes "syncsc_sync_deadlock_denied".
func PrometheusName(name string) string {
	return prometheusPrefix + strings.ReplaceAll(name, "/", "_")
}

// family converts m to its Prometheus counter family, with one sample per
// field value combination.
func (m *Uint64Metric) family() *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(PrometheusName(m.name)),
		Help: proto.String(m.description),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for key := range m.values {
		sample := &dto.Metric{
			Counter: &dto.Counter{Value: proto.Float64(float64(m.values[key].Load()))},
		}
		for i, v := range m.fieldMapper.keyToValues(key) {
			sample.Label = append(sample.Label, &dto.LabelPair{
				Name:  proto.String(m.fieldMapper.fields[i].name),
				Value: proto.String(v),
			})
		}
		mf.Metric = append(mf.Metric, sample)
	}
	return mf
}

// WriteText writes every registered metric to w in the Prometheus text
// exposition format.
func WriteText(w io.Writer) error {
	for _, m := range sortedMetrics() {
		if _, err := expfmt.MetricFamilyToText(w, m.family()); err != nil {
			return fmt.Errorf("writing metric %q: %w", m.name, err)
		}
	}
	return nil
}
