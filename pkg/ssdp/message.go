package ssdp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

var ErrMalformedMessage = errors.New("malformed ssdp message")

type field struct {
	name  string
	value string
}

// Header is an ordered, case insensitive set of HTTPU header fields.
// Names are written in upper case, as most UPnP stacks do.
type Header struct {
	fields []field
}

func (h *Header) index(name string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.name, name) {
			return i
		}
	}
	return -1
}

// Set replaces the value of name or appends it if it is not present yet.
func (h *Header) Set(name, value string) {
	name = strings.ToUpper(name)
	if i := h.index(name); i >= 0 {
		h.fields[i].value = value
		return
	}
	h.fields = append(h.fields, field{name: name, value: value})
}

func (h *Header) Get(name string) string {
	if i := h.index(name); i >= 0 {
		return h.fields[i].value
	}
	return ""
}

func (h *Header) Has(name string) bool {
	return h.index(name) >= 0
}

func (h *Header) Len() int {
	return len(h.fields)
}

// Message is either a request (Method is set) or a response (StatusCode is set).
type Message struct {
	Method     string
	Target     string
	Proto      string
	StatusCode int
	Reason     string
	Header     Header
}

func NewRequest(method, target string) *Message {
	return &Message{
		Method: method,
		Target: target,
		Proto:  "HTTP/1.1",
	}
}

func NewResponse(code int) *Message {
	return &Message{
		Proto:      "HTTP/1.1",
		StatusCode: code,
		Reason:     http.StatusText(code),
	}
}

func (m *Message) IsRequest() bool {
	return m.Method != ""
}

// Encode serializes m with CRLF line endings, terminated by an empty line.
func (m *Message) Encode() []byte {
	var b bytes.Buffer
	if m.IsRequest() {
		fmt.Fprintf(&b, "%s %s %s\r\n", m.Method, m.Target, m.Proto)
	} else {
		fmt.Fprintf(&b, "%s %d %s\r\n", m.Proto, m.StatusCode, m.Reason)
	}
	for _, f := range m.Header.fields {
		b.WriteString(f.name)
		b.WriteString(": ")
		b.WriteString(f.value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return b.Bytes()
}

func (m *Message) String() string {
	return string(m.Encode())
}

// ParseMessage parses a single datagram. A missing terminating empty line
// is tolerated, some control points omit it.
func ParseMessage(b []byte) (*Message, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(b)))

	line, err := tp.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read start line: %v", ErrMalformedMessage, err)
	}

	m := Message{}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: bad start line %q", ErrMalformedMessage, line)
	}
	if strings.HasPrefix(parts[0], "HTTP/") {
		m.Proto = parts[0]
		code, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad status code %q", ErrMalformedMessage, parts[1])
		}
		m.StatusCode = code
		m.Reason = parts[2]
	} else {
		m.Method, m.Target, m.Proto = parts[0], parts[1], parts[2]
		if m.Method == "" || m.Target == "" {
			return nil, fmt.Errorf("%w: bad request line %q", ErrMalformedMessage, line)
		}
	}
	if _, _, ok := http.ParseHTTPVersion(m.Proto); !ok {
		return nil, fmt.Errorf("%w: bad protocol version %q", ErrMalformedMessage, m.Proto)
	}

	mh, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	for name, values := range mh {
		if len(values) > 0 {
			m.Header.Set(name, values[0])
		}
	}

	return &m, nil
}
