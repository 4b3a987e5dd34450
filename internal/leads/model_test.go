package leads

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardQuantity_AcceptsNumbersAndStrings(t *testing.T) {
	cases := map[string]CardQuantity{
		`{"idCards":250}`:       "250",
		`{"idCards":"100-500"}`: "100-500",
		`{"idCards":null}`:      "",
	}
	for raw, want := range cases {
		var req DemoRequest
		require.NoError(t, json.Unmarshal([]byte(raw), &req), raw)
		assert.Equal(t, want, req.IDCards, raw)
	}

	var req DemoRequest
	assert.Error(t, json.Unmarshal([]byte(`{"idCards":[1]}`), &req))
}
