/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnmarshal(t *testing.T) {
	var cfg ReachabilityConfig

	require.NoError(t, json.Unmarshal([]byte(`{"interval":"5m","timeout":2000000000}`), &cfg))
	assert.Equal(t, 5*time.Minute, time.Duration(cfg.Interval))
	assert.Equal(t, 2*time.Second, time.Duration(cfg.Timeout))

	err := json.Unmarshal([]byte(`{"interval":"soon"}`), &cfg)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"interval":true}`), &cfg)
	require.ErrorIs(t, err, errInvalidDuration)
}

func TestSoftwareKeyCanonicalises(t *testing.T) {
	assert.Equal(t, "mozilla firefox|128.0", SoftwareKey("  Mozilla   Firefox ", " 128.0 "))
	assert.Equal(t, SoftwareKey("7-Zip", "23.01"), SoftwareKey("7-zip", "23.01"))
	assert.NotEqual(t, SoftwareKey("7-Zip", "23.01"), SoftwareKey("7-Zip", "24.01"))
}

func TestNotificationTypeFor(t *testing.T) {
	tests := []struct {
		severity Severity
		want     NotificationType
	}{
		{SeverityHigh, NotifyDanger},
		{SeverityMedium, NotifyWarning},
		{SeverityLow, NotifyInfo},
		{SeverityInfo, NotifyInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			assert.Equal(t, tt.want, NotificationTypeFor(tt.severity))
		})
	}
}

func TestEventParticipated(t *testing.T) {
	ev := &WorkplanEvent{Attendees: []Attendee{{PartnerID: 1}, {PartnerID: 2, Participated: true}}}
	assert.True(t, ev.Participated())

	ev.Attendees[1].Participated = false
	assert.False(t, ev.Participated())
}

func TestBacklogTypeNormalize(t *testing.T) {
	assert.Equal(t, BacklogTypeHardware, BacklogType("hardware").Normalize())
	assert.Equal(t, BacklogTypeUnknown, BacklogType("printer").Normalize())
}

func TestIDsEncodeAsStrings(t *testing.T) {
	hwID := int64(7)
	data, err := json.Marshal(BacklogEntry{ID: 42, HardwareID: &hwID})
	require.NoError(t, err)

	assert.Contains(t, string(data), `"id":"42"`)
	assert.Contains(t, string(data), `"hardware_id":"7"`)
}
