package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapsales/supervision-api/internal/domain/liveupdate"
)

func TestDecodeMessage(t *testing.T) {
	id, event, err := decodeMessage("supervision:events:", "supervision:events:conv-9", `{"type":"control_change","data":{"controlled_by":"human"}}`)
	require.NoError(t, err)
	assert.Equal(t, "conv-9", id)
	assert.Equal(t, liveupdate.EventControlChange, event.Type)
	assert.JSONEq(t, `{"controlled_by":"human"}`, string(event.Data))
}

func TestDecodeMessageRejectsMalformed(t *testing.T) {
	cases := map[string][2]string{
		"foreign channel": {"other:conv-1", `{"type":"new_message","data":{}}`},
		"empty id":        {"supervision:events:", `{"type":"new_message","data":{}}`},
		"not json":        {"supervision:events:conv-1", `{"type":`},
		"unknown type":    {"supervision:events:conv-1", `{"type":"typing","data":{}}`},
		"missing data":    {"supervision:events:conv-1", `{"type":"new_message"}`},
	}

	for name, c := range cases {
		_, _, err := decodeMessage("supervision:events:", c[0], c[1])
		assert.Error(t, err, name)
	}
}
