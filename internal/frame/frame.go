// Package frame implements the tagged-line wire format spoken between the
// relay and its peers.
//
// A frame is one logical protocol unit. Control information travels inline
// as '#'-delimited tags:
//
//	#usern#Alice        rename the sending peer
//	#writing#Alice      Alice started typing
//	#nowriting#         typing stopped
//	#Alice#hello        chat line from Alice
//	#other#Alice: hello chat line already rendered by the relay
//
// Anything that matches none of the tags is a plain line.
package frame

// Tags recognised on the wire, in decode priority order.
const (
	TagUsername  = "#usern#"
	TagTyping    = "#writing#"
	TagNoTyping  = "#nowriting#"
	TagRelayed   = "#other#"
	tagDelimiter = "#"
)

// Kind identifies the variant held by a Frame.
type Kind int

const (
	KindPlainLine Kind = iota
	KindUsernameChanged
	KindTypingStarted
	KindTypingStopped
	KindChatMessage
	KindRelayed
)

var kindNames = map[Kind]string{
	KindPlainLine:       "PlainLine",
	KindUsernameChanged: "UsernameChanged",
	KindTypingStarted:   "TypingStarted",
	KindTypingStopped:   "TypingStopped",
	KindChatMessage:     "ChatMessage",
	KindRelayed:         "Relayed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Frame is a decoded protocol unit. Name carries the new display name
// (UsernameChanged), the typer (TypingStarted) or the sender (ChatMessage).
// Text carries the chat body, the pre-rendered relay text, or the plain line.
type Frame struct {
	Kind Kind
	Name string
	Text string
}

// UsernameChanged announces that a peer now goes by name.
func UsernameChanged(name string) Frame {
	return Frame{Kind: KindUsernameChanged, Name: name}
}

// TypingStarted announces that name is composing a message.
func TypingStarted(name string) Frame {
	return Frame{Kind: KindTypingStarted, Name: name}
}

// TypingStopped clears any typing indicator.
func TypingStopped() Frame {
	return Frame{Kind: KindTypingStopped}
}

// ChatMessage is a chat line attributed to sender.
func ChatMessage(sender, text string) Frame {
	return Frame{Kind: KindChatMessage, Name: sender, Text: text}
}

// Relayed is already-rendered text forwarded without re-tagging.
func Relayed(text string) Frame {
	return Frame{Kind: KindRelayed, Text: text}
}

// PlainLine is an untagged line.
func PlainLine(text string) Frame {
	return Frame{Kind: KindPlainLine, Text: text}
}

// Rendered returns the human-readable "sender: text" form of a chat message.
func (f Frame) Rendered() string {
	return f.Name + ": " + f.Text
}
