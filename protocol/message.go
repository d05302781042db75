package protocol

// Command tags. Server-originated commands are dispatched by the client,
// client-originated ones are only ever encoded.
const (
	CmdServerInfo    = "SERVER_INFO"
	CmdCheckPatches  = "CHECK_PATCHES"
	CmdDeleteFiles   = "DELETE_FILES"
	CmdUpdateFiles   = "UPDATE_FILES"
	CmdCheckUpdate   = "CHECK_UPDATE"
	CmdGetNotice     = "GET_NOTICE"
	CmdGetServerInfo = "GET_SERVER_INFO"
	CmdInitServer    = "INIT_SERVER_INFO"
)

// Wire tokens
const (
	FieldSeparator = "|"
	Sentinel       = "<END_OF_MESSAGE>"
	StartContent   = "<START_CONTENT>"
	EndContent     = "<END_CONTENT>"

	// NoArgument fills the argument slot of requests that carry none.
	NoArgument = "N/A"
)

// Note: the sentinel is not escaped anywhere. A file body containing
// Sentinel, StartContent or EndContent breaks framing; the server is
// expected never to send such content.

// bom is the UTF-8 byte order mark some servers prepend to a message body.
var bom = []byte{0xEF, 0xBB, 0xBF}

// Message is a decoded protocol unit.
type Message struct {
	Command string   // First field
	Fields  []string // Remaining fields, in order
	Content []byte   // Raw content span, UPDATE_FILES only
}

// Field returns the i-th field after the command, or "" if absent.
func (m *Message) Field(i int) string {
	if i < 0 || i >= len(m.Fields) {
		return ""
	}
	return m.Fields[i]
}

// ServerInfoMsg is the payload of SERVER_INFO.
type ServerInfoMsg struct {
	IP     string
	Port   string
	Name   string
	Notice string // Escapes already decoded
}

// UpdateFileMsg is the payload of UPDATE_FILES.
type UpdateFileMsg struct {
	Filename     string
	DeclaredSize int64
	Extra        []string // Fields between the size and the content marker
	Content      []byte
}
