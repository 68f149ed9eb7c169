package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse(t *testing.T) {
	resp, err := Response(502, map[string]string{"action": "launch_failed"})
	require.NoError(t, err)
	assert.Equal(t, 502, resp["statusCode"])

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp["body"].(string)), &body))
	assert.Equal(t, "launch_failed", body["action"])

	_, err = Response(200, func() {})
	assert.Error(t, err)
}
