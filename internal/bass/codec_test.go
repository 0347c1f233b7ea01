package bass

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddr = Address{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}

func TestReceiveState_RoundTrip(t *testing.T) {
	longMeta := bytes.Repeat([]byte{0xA5}, 255)

	tests := []struct {
		name  string
		state ReceiveState
	}{
		{
			name:  "no subgroups",
			state: ReceiveState{ID: 0, Addr: testAddr, SID: 1, BroadcastID: 0x123456},
		},
		{
			name: "one subgroup",
			state: ReceiveState{
				ID: 3, AddrType: AddrRandom, Addr: testAddr, SID: 0x0F, BroadcastID: 0xABCDEF,
				PASync: PASynchronized, Encryption: Decrypting,
				Subgroups: []Subgroup{{BISSync: 0x03, Metadata: Metadata{0x03, 0x02, 0x04, 0x00}}},
			},
		},
		{
			name: "bad code and several subgroups",
			state: ReceiveState{
				ID: 254, Addr: testAddr, BroadcastID: 1,
				PASync: PASyncFailed, Encryption: BadCode,
				BadCode: BroadcastCode{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
				Subgroups: []Subgroup{
					{BISSync: BIGSyncFailed},
					{BISSync: 0, Metadata: Metadata(longMeta)},
					{BISSync: 1 << 30},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.state.Encode()
			assert.Len(t, encoded, tt.state.EncodedLen(), "encoded length MUST be computed up front")

			decoded, err := DecodeReceiveState(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.state, *decoded, "decode(encode(x)) MUST equal x")
		})
	}
}

func TestReceiveState_WireLayout(t *testing.T) {
	st := ReceiveState{
		ID: 1, AddrType: AddrRandom, Addr: testAddr, SID: 2, BroadcastID: 0x030201,
		PASync: PASynchronized, Encryption: NotEncrypted,
		Subgroups: []Subgroup{{BISSync: 0x00000006, Metadata: Metadata{0xAA}}},
	}

	want := []byte{
		0x01, 0x01, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x02,
		0x01, 0x02, 0x03, // broadcast id, little endian
		0x02, 0x00, 0x01,
		0x06, 0x00, 0x00, 0x00, 0x01, 0xAA,
	}
	assert.Equal(t, want, st.Encode())
}

func TestDecodeReceiveState_Truncated(t *testing.T) {
	st := ReceiveState{
		ID: 7, Addr: testAddr, Encryption: BadCode,
		Subgroups: []Subgroup{{BISSync: 1, Metadata: Metadata{1, 2, 3}}},
	}
	full := st.Encode()

	for n := 0; n < len(full); n++ {
		got, err := DecodeReceiveState(full[:n])
		assert.Nil(t, got, "truncated value of %d bytes MUST NOT decode", n)
		assert.True(t, errors.Is(err, ErrTruncated), "error MUST be Truncated, got %v", err)
	}
}

func validCommands() map[string]Command {
	return map[string]Command{
		"add source": AddSourceCommand{
			AddrType: AddrPublic, Addr: testAddr, SID: 1, BroadcastID: 0x010203,
			PASync: PASyncPAST, PAInterval: 0xFFFF,
			Subgroups: []SubgroupParams{
				{BISSync: 0x01, Metadata: Metadata{0x02, 0x01, 0x05}},
				{BISSync: 0x02},
			},
		},
		"add source without subgroups": AddSourceCommand{Addr: testAddr},
		"modify source": ModifySourceCommand{
			SourceID: 1, PASync: PASyncNoPAST,
			Subgroups: []SubgroupParams{{BISSync: BISSyncNoPreference}},
		},
		"set broadcast code": SetBroadcastCodeCommand{SourceID: 2, Code: BroadcastCode{0xFF}},
		"remove source":      RemoveSourceCommand{SourceID: 3},
	}
}

func TestValidateCommand(t *testing.T) {
	for name, cmd := range validCommands() {
		t.Run(name, func(t *testing.T) {
			value := cmd.Encode()
			assert.True(t, ValidateCommand(value), "well formed command MUST validate")

			for n := 1; n <= len(value); n++ {
				assert.False(t, ValidateCommand(value[:len(value)-n]),
					"command truncated by %d bytes MUST NOT validate", n)
			}
			assert.False(t, ValidateCommand(append(value, 0x00)), "trailing byte MUST NOT validate")

			decoded, err := DecodeCommand(value)
			require.NoError(t, err)
			assert.Equal(t, cmd, decoded)
		})
	}
}

func TestValidateCommand_Special(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
		valid bool
	}{
		{name: "empty write", value: nil, valid: false},
		{name: "scan stopped", value: []byte{0x00}, valid: true},
		{name: "scan started", value: []byte{0x01}, valid: true},
		{name: "scan started with body", value: []byte{0x01, 0x00}, valid: false},
		{name: "unknown opcode", value: []byte{0x42, 1, 2, 3}, valid: true},
		{name: "metadata longer than buffer", value: []byte{0x03, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x05, 0xAA}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateCommand(tt.value))
		})
	}
}

func TestDecodeCommand_UnknownOpcode(t *testing.T) {
	_, err := DecodeCommand([]byte{0x06})

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "opcode", nf.Resource)
	assert.Equal(t, "Unknown (0x06)", nf.ID)
}

func TestAddress(t *testing.T) {
	a, err := ParseAddress("66:55:44:33:22:11")
	require.NoError(t, err)
	assert.Equal(t, testAddr, a, "human form MUST be reversed into wire order")
	assert.Equal(t, "66:55:44:33:22:11", a.String())

	_, err = ParseAddress("66:55:44")
	assert.Error(t, err)
	_, err = ParseAddress("66:55:44:33:22:ZZ")
	assert.Error(t, err)
}
