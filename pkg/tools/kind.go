package tools

// Kind identifies a built-in tool by name. The set is closed: the gateway
// only dispatches names listed here.
type Kind string

const (
	KindSaveNote          Kind = "save_note"
	KindUpdateNote        Kind = "update_note"
	KindDeleteNote        Kind = "delete_note"
	KindSearchLibrary     Kind = "search_library"
	KindListDocuments     Kind = "list_documents"
	KindClearConversation Kind = "clear_conversation"
)

// destructiveKinds require an explicit confirmation token before execution
// and count against the per-turn destructive cap.
var destructiveKinds = map[Kind]bool{
	KindDeleteNote:        true,
	KindClearConversation: true,
}

// AllKinds lists every dispatchable tool in registration order.
func AllKinds() []Kind {
	return []Kind{
		KindSaveNote,
		KindUpdateNote,
		KindDeleteNote,
		KindSearchLibrary,
		KindListDocuments,
		KindClearConversation,
	}
}

// IsDestructive reports whether the tool mutates data irreversibly.
func (k Kind) IsDestructive() bool {
	return destructiveKinds[k]
}

func (k Kind) String() string {
	return string(k)
}
