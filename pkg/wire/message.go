package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// RequestMessage is a server-initiated request delivered over the session.
// The id is an opaque correlation token; a response answering this request
// must carry the same id.
type RequestMessage struct {
	ID      uint64
	Verb    string
	Path    string
	Headers []string
	Body    []byte
}

// ResponseMessage answers a RequestMessage with a matching ID.
type ResponseMessage struct {
	ID      uint64
	Status  uint32
	Message string
	Headers []string
	Body    []byte
}

// Field numbers below are fixed by proto/wire.proto and shared with the
// server; changing them breaks the session.

func (m *RequestMessage) marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.BytesType)
	buf = protowire.AppendString(buf, m.Verb)
	buf = protowire.AppendTag(buf, 2, protowire.BytesType)
	buf = protowire.AppendString(buf, m.Path)
	if len(m.Body) > 0 {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendBytes(buf, m.Body)
	}
	buf = protowire.AppendTag(buf, 4, protowire.VarintType)
	buf = protowire.AppendVarint(buf, m.ID)
	for _, h := range m.Headers {
		buf = protowire.AppendTag(buf, 5, protowire.BytesType)
		buf = protowire.AppendString(buf, h)
	}
	return buf
}

func (m *RequestMessage) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return decodeErr("request: bad field tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return decodeErr("request: verb", protowire.ParseError(n))
			}
			m.Verb = v
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return decodeErr("request: path", protowire.ParseError(n))
			}
			m.Path = v
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return decodeErr("request: body", protowire.ParseError(n))
			}
			m.Body = append([]byte(nil), v...)
			data = data[n:]
		case num == 4 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return decodeErr("request: id", protowire.ParseError(n))
			}
			m.ID = v
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return decodeErr("request: header", protowire.ParseError(n))
			}
			m.Headers = append(m.Headers, v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return decodeErr("request: unknown field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

func (m *ResponseMessage) marshal() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, m.ID)
	buf = protowire.AppendTag(buf, 2, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(m.Status))
	if m.Message != "" {
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendString(buf, m.Message)
	}
	if len(m.Body) > 0 {
		buf = protowire.AppendTag(buf, 4, protowire.BytesType)
		buf = protowire.AppendBytes(buf, m.Body)
	}
	for _, h := range m.Headers {
		buf = protowire.AppendTag(buf, 5, protowire.BytesType)
		buf = protowire.AppendString(buf, h)
	}
	return buf
}

func (m *ResponseMessage) unmarshal(data []byte) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return decodeErr("response: bad field tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return decodeErr("response: id", protowire.ParseError(n))
			}
			m.ID = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return decodeErr("response: status", protowire.ParseError(n))
			}
			m.Status = uint32(v)
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return decodeErr("response: message", protowire.ParseError(n))
			}
			m.Message = v
			data = data[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return decodeErr("response: body", protowire.ParseError(n))
			}
			m.Body = append([]byte(nil), v...)
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return decodeErr("response: header", protowire.ParseError(n))
			}
			m.Headers = append(m.Headers, v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return decodeErr("response: unknown field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}
