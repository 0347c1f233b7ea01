package bass

import "fmt"

// SourceEventKind tells what happened to a source.
type SourceEventKind int

const (
	SourceAdded SourceEventKind = iota
	SourceUpdated
	SourceRemoved
)

func (k SourceEventKind) String() string {
	switch k {
	case SourceAdded:
		return "added"
	case SourceUpdated:
		return "updated"
	case SourceRemoved:
		return "removed"
	default:
		return fmt.Sprintf("SourceEventKind(%d)", int(k))
	}
}

// SourceEvent reports a change to a local or mirrored source.
type SourceEvent struct {
	Kind     SourceEventKind
	Database *Database
	Session  *Session // nil for local sources whose session was released
	Binding  uint16   // slot index (local) or value handle (mirror)
	State    ReceiveState
}
