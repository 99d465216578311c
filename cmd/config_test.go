package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfigValue(t *testing.T) {
	cases := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"modules.enabled", "proxy, repeater,cli", false},
		{"modules.enabled", "proxy,spider", true},
		{"scope.restricted", "true", false},
		{"scope.restricted", "yes please", true},
		{"processing.min_message_size", "0", false},
		{"processing.min_message_size", "-1", true},
		{"processing.max_body_bytes", "0", true},
		{"proxy.upstream", "", false},
		{"proxy.upstream", "https://api.example.com", false},
		{"proxy.upstream", "localhost:3000", true},
		{"proxy.timeout", "45s", false},
		{"proxy.timeout", "45", true},
		{"proxy.metrics_path", "metrics", true},
		{"unknown.key", "anything", false},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			err := validateConfigValue(tc.key, tc.value)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateConfigKey(t *testing.T) {
	assert.NoError(t, validateConfigKey("scope.hosts"))
	assert.Error(t, validateConfigKey(""))
	assert.Error(t, validateConfigKey("scope hosts"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
