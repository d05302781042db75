package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wire format: <field>|<field>|...<END_OF_MESSAGE>
// No length prefix; UPDATE_FILES embeds raw bytes between content markers.

// Parse errors. They drop a single message and never end the session.
var (
	ErrTooFewFields         = errors.New("too few fields")
	ErrMissingContentMarker = errors.New("missing content marker")
	ErrMalformedSize        = errors.New("malformed size field")
	ErrSizeMismatch         = errors.New("content length does not match declared size")
)

var (
	startContent = []byte(StartContent + FieldSeparator)
	endContent   = []byte(FieldSeparator + EndContent)
	updatePrefix = []byte(CmdUpdateFiles + FieldSeparator)
)

// EncodeMessage renders a command and its fields as one framed message.
func EncodeMessage(command string, fields ...string) []byte {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteString(command)
	for _, f := range fields {
		buf.WriteString(FieldSeparator)
		buf.WriteString(f)
	}
	buf.WriteString(Sentinel)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// AppendFrame appends body and the sentinel to dst.
func AppendFrame(dst, body []byte) []byte {
	dst = append(dst, body...)
	return append(dst, Sentinel...)
}

// WriteMessage encodes a message and writes it in a single call.
func WriteMessage(w io.Writer, command string, fields ...string) error {
	if _, err := w.Write(EncodeMessage(command, fields...)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// WriteInitServerInfo writes the server info request sent on launcher start.
func WriteInitServerInfo(w io.Writer) error {
	return WriteMessage(w, CmdInitServer, NoArgument)
}

// WriteGetNotice writes a notice refresh request.
func WriteGetNotice(w io.Writer) error {
	return WriteMessage(w, CmdGetNotice, NoArgument)
}

// Decode parses one message body as produced by a FrameDecoder.
// UPDATE_FILES bodies are split around the content markers so the raw
// content is never field-split.
func Decode(body []byte) (*Message, error) {
	body = stripBOM(body)

	if bytes.HasPrefix(body, updatePrefix) {
		return decodeUpdateFiles(body)
	}

	parts := strings.Split(string(body), FieldSeparator)
	return &Message{
		Command: parts[0],
		Fields:  parts[1:],
	}, nil
}

func decodeUpdateFiles(body []byte) (*Message, error) {
	start := bytes.Index(body, startContent)
	if start < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingContentMarker, StartContent)
	}
	contentStart := start + len(startContent)

	end := bytes.LastIndex(body[contentStart:], endContent)
	if end < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingContentMarker, EndContent)
	}

	header := strings.TrimSuffix(string(body[:start]), FieldSeparator)
	parts := strings.Split(header, FieldSeparator)

	content := make([]byte, end)
	copy(content, body[contentStart:contentStart+end])

	return &Message{
		Command: parts[0],
		Fields:  parts[1:],
		Content: content,
	}, nil
}

// HeaderFields returns the fields after the command, stopping at the
// content marker if there is one. It never fails, so callers can name the
// subject of a message that Decode rejected.
func HeaderFields(body []byte) []string {
	body = stripBOM(body)
	if i := bytes.Index(body, startContent); i >= 0 {
		body = body[:i]
	}
	parts := strings.Split(strings.TrimSuffix(string(body), FieldSeparator), FieldSeparator)
	return parts[1:]
}

// ParseServerInfo extracts SERVER_INFO fields. The notice is unescaped.
func ParseServerInfo(m *Message) (ServerInfoMsg, error) {
	if len(m.Fields) < 4 {
		return ServerInfoMsg{}, fmt.Errorf("%s: %w: got %d, need 4", CmdServerInfo, ErrTooFewFields, len(m.Fields))
	}
	return ServerInfoMsg{
		IP:     m.Fields[0],
		Port:   m.Fields[1],
		Name:   m.Fields[2],
		Notice: UnescapeNotice(m.Fields[3]),
	}, nil
}

// ParseDeleteFiles returns the non-empty filenames of DELETE_FILES.
func ParseDeleteFiles(m *Message) []string {
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}

// ParseUpdateFile validates an UPDATE_FILES message. The content length must
// equal the declared size exactly.
func ParseUpdateFile(m *Message) (UpdateFileMsg, error) {
	if len(m.Fields) < 2 {
		return UpdateFileMsg{}, fmt.Errorf("%s: %w: got %d, need 2", CmdUpdateFiles, ErrTooFewFields, len(m.Fields))
	}

	filename := m.Fields[0]
	if filename == "" {
		return UpdateFileMsg{}, fmt.Errorf("%s: empty filename", CmdUpdateFiles)
	}

	size, err := strconv.ParseInt(strings.TrimSpace(m.Fields[1]), 10, 64)
	if err != nil || size < 0 {
		return UpdateFileMsg{}, fmt.Errorf("%w: %q", ErrMalformedSize, m.Fields[1])
	}

	if int64(len(m.Content)) != size {
		return UpdateFileMsg{}, fmt.Errorf("%w: %s declared %d, got %d", ErrSizeMismatch, filename, size, len(m.Content))
	}

	return UpdateFileMsg{
		Filename:     filename,
		DeclaredSize: size,
		Extra:        m.Fields[2:],
		Content:      m.Content,
	}, nil
}

// UnescapeNotice turns the two-character sequence `\n` into a line break.
func UnescapeNotice(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// EscapeNotice is the inverse of UnescapeNotice for text without a literal `\n`.
func EscapeNotice(s string) string {
	return strings.ReplaceAll(s, "\n", `\n`)
}
