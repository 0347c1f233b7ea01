package bass

import (
	"fmt"

	"github.com/go-ble/ble"
)

// GATT identifiers of the Broadcast Audio Scan Service.
var (
	ServiceUUID      = ble.UUID16(0x184F)
	ControlPointUUID = ble.UUID16(0x2BC7)
	ReceiveStateUUID = ble.UUID16(0x2BC8)
)

const (
	DefaultReceiveStates = 2
	MaxReceiveStates     = 255
	BroadcastCodeSize    = 16
	MaxBISPerSource      = 31

	// bits 0..30 of a BIS mask map to BIS indices 1..31
	maxBISBitmaskIndex = 31
	maxSourceID        = 0xFF

	receiveStateHeaderLen = 15
	subgroupHeaderLen     = 5
)

// BIS sync masks with special meaning.
const (
	// BISSyncNoPreference asks the delegator to pick any BIS; it never yields indices.
	BISSyncNoPreference uint32 = 0xFFFFFFFF
	// BIGSyncFailed replaces every granted mask when BIG synchronization fails.
	BIGSyncFailed uint32 = 0xFFFFFFFF
)

// Address types as carried on the wire.
const (
	AddrPublic uint8 = 0x00
	AddrRandom uint8 = 0x01
)

// Opcode is the first byte of every control point write.
type Opcode uint8

const (
	OpRemoteScanStopped Opcode = 0x00
	OpRemoteScanStarted Opcode = 0x01
	OpAddSource         Opcode = 0x02
	OpModifySource      Opcode = 0x03
	OpSetBroadcastCode  Opcode = 0x04
	OpRemoveSource      Opcode = 0x05
)

var opcodeNames = map[Opcode]string{
	OpRemoteScanStopped: "Remote Scan Stopped",
	OpRemoteScanStarted: "Remote Scan Started",
	OpAddSource:         "Add Source",
	OpModifySource:      "Modify Source",
	OpSetBroadcastCode:  "Set Broadcast Code",
	OpRemoveSource:      "Remove Source",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02x)", uint8(o))
}

// PASyncState is the periodic advertising sync state of a source.
type PASyncState uint8

const (
	PANotSynchronized PASyncState = 0x00
	PASyncInfoRequest PASyncState = 0x01
	PASynchronized    PASyncState = 0x02
	PASyncFailed      PASyncState = 0x03
	PANoPAST          PASyncState = 0x04
)

func (s PASyncState) String() string {
	switch s {
	case PANotSynchronized:
		return "not synchronized"
	case PASyncInfoRequest:
		return "syncinfo request"
	case PASynchronized:
		return "synchronized"
	case PASyncFailed:
		return "failed to synchronize"
	case PANoPAST:
		return "no PAST"
	default:
		return fmt.Sprintf("reserved (0x%02x)", uint8(s))
	}
}

// EncryptionState is the BIG encryption state of a source.
type EncryptionState uint8

const (
	NotEncrypted EncryptionState = 0x00
	CodeRequired EncryptionState = 0x01
	Decrypting   EncryptionState = 0x02
	BadCode      EncryptionState = 0x03
)

func (e EncryptionState) String() string {
	switch e {
	case NotEncrypted:
		return "not encrypted"
	case CodeRequired:
		return "broadcast code required"
	case Decrypting:
		return "decrypting"
	case BadCode:
		return "bad code"
	default:
		return fmt.Sprintf("reserved (0x%02x)", uint8(e))
	}
}

// PASyncParam is the pa_sync byte of Add Source and Modify Source.
type PASyncParam uint8

const (
	PASyncNo     PASyncParam = 0x00
	PASyncPAST   PASyncParam = 0x01
	PASyncNoPAST PASyncParam = 0x02
)

// ATT results returned to the control point writer.
const (
	ErrOpcodeNotSupported   ble.ATTError = 0x80
	ErrInvalidSourceID      ble.ATTError = 0x81
	ErrWriteRequestRejected ble.ATTError = 0xFC
)

// ATTErrorName names the results this service produces.
func ATTErrorName(code ble.ATTError) string {
	switch code {
	case ble.ErrSuccess:
		return "Success"
	case ErrOpcodeNotSupported:
		return "Opcode Not Supported"
	case ErrInvalidSourceID:
		return "Invalid Source ID"
	case ErrWriteRequestRejected:
		return "Write Request Rejected"
	default:
		return code.Error()
	}
}
