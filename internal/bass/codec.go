package bass

// DecodeReceiveState parses a Broadcast Receive State value.
//
// The result is freshly allocated; callers replace their previous record only
// when err is nil.
func DecodeReceiveState(value []byte) (*ReceiveState, error) {
	r := NewReader(value)
	st := &ReceiveState{}

	st.ID = r.U8("source_id")
	st.AddrType = r.U8("addr_type")
	copy(st.Addr[:], r.Bytes("addr", len(st.Addr)))
	st.SID = r.U8("adv_sid")
	st.BroadcastID = r.LE24("broadcast_id")
	st.PASync = PASyncState(r.U8("pa_sync_state"))
	st.Encryption = EncryptionState(r.U8("big_encryption"))
	if st.Encryption == BadCode {
		copy(st.BadCode[:], r.Bytes("bad_code", BroadcastCodeSize))
	}

	n := int(r.U8("num_subgroups"))
	if err := r.Err(); err != nil {
		return nil, err
	}
	if n > 0 {
		st.Subgroups = make([]Subgroup, n)
	}
	for i := 0; i < n; i++ {
		st.Subgroups[i].BISSync = r.LE32("bis_sync")
		metaLen := int(r.U8("metadata_len"))
		st.Subgroups[i].Metadata = r.Bytes("metadata", metaLen)
		if err := r.Err(); err != nil {
			return nil, err
		}
	}

	return st, nil
}

// EncodedLen is the exact size of the encoded receive state.
func (s *ReceiveState) EncodedLen() int {
	n := receiveStateHeaderLen + len(s.Subgroups)*subgroupHeaderLen
	if s.Encryption == BadCode {
		n += BroadcastCodeSize
	}
	for _, sg := range s.Subgroups {
		n += len(sg.Metadata)
	}
	return n
}

// Encode serializes the receive state. It is the inverse of DecodeReceiveState.
func (s *ReceiveState) Encode() []byte {
	w := NewWriter(s.EncodedLen())
	w.PutU8(s.ID)
	w.PutU8(s.AddrType)
	w.PutBytes(s.Addr[:])
	w.PutU8(s.SID)
	w.PutLE24(s.BroadcastID)
	w.PutU8(uint8(s.PASync))
	w.PutU8(uint8(s.Encryption))
	if s.Encryption == BadCode {
		w.PutBytes(s.BadCode[:])
	}
	w.PutU8(uint8(len(s.Subgroups)))
	for _, sg := range s.Subgroups {
		w.PutLE32(sg.BISSync)
		w.PutU8(uint8(len(sg.Metadata)))
		w.PutBytes(sg.Metadata)
	}
	return w.Bytes()
}

// Command is a control point operation as written by a broadcast assistant.
type Command interface {
	Opcode() Opcode
	Encode() []byte
}

// SubgroupParams is the per-subgroup block of Add Source and Modify Source.
type SubgroupParams struct {
	BISSync  uint32   `json:"bis_sync"`
	Metadata Metadata `json:"metadata"`
}

// AddSourceCommand asks the delegator to track a new broadcast source.
type AddSourceCommand struct {
	AddrType    uint8
	Addr        Address
	SID         uint8
	BroadcastID uint32
	PASync      PASyncParam
	PAInterval  uint16 // recorded only; no sync transfer procedure consumes it
	Subgroups   []SubgroupParams
}

// ModifySourceCommand changes the sync request of a tracked source.
type ModifySourceCommand struct {
	SourceID   uint8
	PASync     PASyncParam
	PAInterval uint16
	Subgroups  []SubgroupParams
}

// SetBroadcastCodeCommand supplies the code of an encrypted BIG.
type SetBroadcastCodeCommand struct {
	SourceID uint8
	Code     BroadcastCode
}

// RemoveSourceCommand asks the delegator to stop tracking a source.
type RemoveSourceCommand struct {
	SourceID uint8
}

// RemoteScanCommand reports that the assistant started or stopped scanning on
// behalf of the delegator.
type RemoteScanCommand struct {
	Started bool
}

func (AddSourceCommand) Opcode() Opcode        { return OpAddSource }
func (ModifySourceCommand) Opcode() Opcode     { return OpModifySource }
func (SetBroadcastCodeCommand) Opcode() Opcode { return OpSetBroadcastCode }
func (RemoveSourceCommand) Opcode() Opcode     { return OpRemoveSource }

func (c RemoteScanCommand) Opcode() Opcode {
	if c.Started {
		return OpRemoteScanStarted
	}
	return OpRemoteScanStopped
}

func subgroupParamsLen(sgs []SubgroupParams) int {
	n := 0
	for _, sg := range sgs {
		n += subgroupHeaderLen + len(sg.Metadata)
	}
	return n
}

func putSubgroupParams(w *Writer, sgs []SubgroupParams) {
	w.PutU8(uint8(len(sgs)))
	for _, sg := range sgs {
		w.PutLE32(sg.BISSync)
		w.PutU8(uint8(len(sg.Metadata)))
		w.PutBytes(sg.Metadata)
	}
}

func (c AddSourceCommand) Encode() []byte {
	w := NewWriter(1 + 15 + subgroupParamsLen(c.Subgroups))
	w.PutU8(uint8(OpAddSource))
	w.PutU8(c.AddrType)
	w.PutBytes(c.Addr[:])
	w.PutU8(c.SID)
	w.PutLE24(c.BroadcastID)
	w.PutU8(uint8(c.PASync))
	w.PutLE16(c.PAInterval)
	putSubgroupParams(w, c.Subgroups)
	return w.Bytes()
}

func (c ModifySourceCommand) Encode() []byte {
	w := NewWriter(1 + 5 + subgroupParamsLen(c.Subgroups))
	w.PutU8(uint8(OpModifySource))
	w.PutU8(c.SourceID)
	w.PutU8(uint8(c.PASync))
	w.PutLE16(c.PAInterval)
	putSubgroupParams(w, c.Subgroups)
	return w.Bytes()
}

func (c SetBroadcastCodeCommand) Encode() []byte {
	w := NewWriter(1 + 1 + BroadcastCodeSize)
	w.PutU8(uint8(OpSetBroadcastCode))
	w.PutU8(c.SourceID)
	w.PutBytes(c.Code[:])
	return w.Bytes()
}

func (c RemoveSourceCommand) Encode() []byte {
	return []byte{uint8(OpRemoveSource), c.SourceID}
}

func (c RemoteScanCommand) Encode() []byte {
	return []byte{uint8(c.Opcode())}
}

func parseSubgroupParams(r *Reader) []SubgroupParams {
	n := int(r.U8("num_subgroups"))
	if r.Err() != nil || n == 0 {
		return nil
	}
	sgs := make([]SubgroupParams, n)
	for i := range sgs {
		sgs[i].BISSync = r.LE32("bis_sync")
		metaLen := int(r.U8("metadata_len"))
		sgs[i].Metadata = r.Bytes("metadata", metaLen)
		if r.Err() != nil {
			return nil
		}
	}
	return sgs
}

func parseAddSource(r *Reader) AddSourceCommand {
	var c AddSourceCommand
	c.AddrType = r.U8("addr_type")
	copy(c.Addr[:], r.Bytes("addr", len(c.Addr)))
	c.SID = r.U8("adv_sid")
	c.BroadcastID = r.LE24("broadcast_id")
	c.PASync = PASyncParam(r.U8("pa_sync"))
	c.PAInterval = r.LE16("pa_interval")
	c.Subgroups = parseSubgroupParams(r)
	return c
}

func parseModifySource(r *Reader) ModifySourceCommand {
	var c ModifySourceCommand
	c.SourceID = r.U8("source_id")
	c.PASync = PASyncParam(r.U8("pa_sync"))
	c.PAInterval = r.LE16("pa_interval")
	c.Subgroups = parseSubgroupParams(r)
	return c
}

func parseSetBroadcastCode(r *Reader) SetBroadcastCodeCommand {
	var c SetBroadcastCodeCommand
	c.SourceID = r.U8("source_id")
	copy(c.Code[:], r.Bytes("broadcast_code", BroadcastCodeSize))
	return c
}

func parseRemoveSource(r *Reader) RemoveSourceCommand {
	return RemoveSourceCommand{SourceID: r.U8("source_id")}
}

// ValidateCommand reports whether a control point write has exactly the length
// its opcode requires. Unknown opcodes validate; they are rejected later as
// unsupported.
func ValidateCommand(value []byte) bool {
	r := NewReader(value)
	op := Opcode(r.U8("opcode"))
	if r.Err() != nil {
		return false
	}

	switch op {
	case OpAddSource:
		parseAddSource(r)
	case OpModifySource:
		parseModifySource(r)
	case OpSetBroadcastCode:
		parseSetBroadcastCode(r)
	case OpRemoveSource:
		parseRemoveSource(r)
	case OpRemoteScanStopped, OpRemoteScanStarted:
	default:
		return true
	}

	return r.Done() == nil
}

// DecodeCommand parses a complete control point write.
func DecodeCommand(value []byte) (Command, error) {
	r := NewReader(value)
	op := Opcode(r.U8("opcode"))
	if err := r.Err(); err != nil {
		return nil, err
	}

	var cmd Command
	switch op {
	case OpAddSource:
		cmd = parseAddSource(r)
	case OpModifySource:
		cmd = parseModifySource(r)
	case OpSetBroadcastCode:
		cmd = parseSetBroadcastCode(r)
	case OpRemoveSource:
		cmd = parseRemoveSource(r)
	case OpRemoteScanStopped:
		cmd = RemoteScanCommand{}
	case OpRemoteScanStarted:
		cmd = RemoteScanCommand{Started: true}
	default:
		return nil, &NotFoundError{Resource: "opcode", ID: op.String()}
	}

	if err := r.Done(); err != nil {
		return nil, err
	}
	return cmd, nil
}
