package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInvoke(t *testing.T) {
	data, err := Encode(CmdInvoke, &InvokeRequest{
		Fields: []string{"tackd", "/libs/app.jar", "/tmp/build1", "a", "b c", ""},
		Stdin:  []byte{0x00, 0xff, '\n'},
	})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")

	env, payload, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, CmdInvoke, env.Command)

	req, err := DecodePayload[InvokeRequest](payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"tackd", "/libs/app.jar", "/tmp/build1", "a", "b c", ""}, req.Fields)
	assert.Equal(t, []byte{0x00, 0xff, '\n'}, req.Stdin)
}

func TestEncodeWithoutPayload(t *testing.T) {
	data, err := Encode(CmdStatus, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"status"}`, string(data))

	_, payload, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, payload)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "invoke please"},
		{"no command", `{"payload":{}}`},
		{"wrong type", `{"command":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	_, err := DecodePayload[InvokeRequest](nil)
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = DecodePayload[InvokeRequest]([]byte(`{"fields":"x"}`))
	assert.ErrorIs(t, err, ErrProtocol)
}
