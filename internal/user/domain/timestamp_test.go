package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampAcceptsISOForms(t *testing.T) {
	cases := map[string]time.Time{
		"2025-10-21T10:00:00":        time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC),
		"2025-10-21T10:00:00Z":       time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC),
		"2025-10-21T10:00:00+07:00":  time.Date(2025, 10, 21, 3, 0, 0, 0, time.UTC),
		"2025-10-21T10:00:00.123456": time.Date(2025, 10, 21, 10, 0, 0, 123456000, time.UTC),
		"2025-10-21":                 time.Date(2025, 10, 21, 0, 0, 0, 0, time.UTC),
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			got, err := ParseTimestamp(input)
			require.NoError(t, err)
			assert.True(t, want.Equal(got.Time), "got %s", got)
		})
	}

	_, err := ParseTimestamp("21/10/2025")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestTimestampJSON(t *testing.T) {
	var payload UserPayload
	require.NoError(t, json.Unmarshal([]byte(`{"created_date":"2025-10-21T17:00:00+07:00","valid_till":null}`), &payload))
	require.NotNil(t, payload.CreatedDate)
	assert.Nil(t, payload.ValidTill)

	out, err := json.Marshal(payload.CreatedDate)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-10-21T10:00:00"`, string(out))

	frac, err := json.Marshal(NewTimestamp(time.Date(2025, 1, 2, 3, 4, 5, 500000000, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-02T03:04:05.5"`, string(frac))

	assert.Error(t, json.Unmarshal([]byte(`{"valid_till":12}`), &payload))
}

func TestTimestampScan(t *testing.T) {
	var ts Timestamp
	require.NoError(t, ts.Scan("2025-12-31 23:59:59+00:00"))
	assert.Equal(t, "2025-12-31T23:59:59", ts.String())

	require.NoError(t, ts.Scan(time.Date(2025, 12, 31, 23, 59, 59, 0, time.FixedZone("x", 3600))))
	assert.Equal(t, "2025-12-31T22:59:59", ts.String())

	assert.Error(t, ts.Scan(42))
}
