// Package wire implements the binary envelope format exchanged over the
// session. Every payload is an Envelope tagging its content as either a
// Request or a Response; the field layout is fixed by proto/wire.proto and
// shared with the server.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// EnvelopeType discriminates the payload carried by an Envelope.
type EnvelopeType int

const (
	EnvelopeTypeUnknown  EnvelopeType = 0
	EnvelopeTypeRequest  EnvelopeType = 1
	EnvelopeTypeResponse EnvelopeType = 2
)

// String returns the string representation of EnvelopeType.
func (t EnvelopeType) String() string {
	switch t {
	case EnvelopeTypeRequest:
		return "REQUEST"
	case EnvelopeTypeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Envelope is the outermost wire unit. Exactly one of Request or Response
// is present, selected by Type.
type Envelope struct {
	Type     EnvelopeType
	Request  *RequestMessage
	Response *ResponseMessage
}

// NewRequestEnvelope wraps a request for transmission.
func NewRequestEnvelope(req *RequestMessage) *Envelope {
	return &Envelope{Type: EnvelopeTypeRequest, Request: req}
}

// NewResponseEnvelope wraps a response for transmission.
func NewResponseEnvelope(resp *ResponseMessage) *Envelope {
	return &Envelope{Type: EnvelopeTypeResponse, Response: resp}
}

// DecodeError reports malformed envelope bytes. Decoding failures are
// confined to this type so callers can drop bad frames without tearing
// down the session.
type DecodeError struct {
	reason string
	cause  error
}

func (e *DecodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("wire: %s: %v", e.reason, e.cause)
	}
	return "wire: " + e.reason
}

func (e *DecodeError) Unwrap() error { return e.cause }

func decodeErr(reason string, cause error) error {
	return &DecodeError{reason: reason, cause: cause}
}

// Encode serializes the envelope into the binary wire format.
func (e *Envelope) Encode() ([]byte, error) {
	var buf []byte
	buf = protowire.AppendTag(buf, 1, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.Type))

	switch e.Type {
	case EnvelopeTypeRequest:
		if e.Request == nil {
			return nil, fmt.Errorf("wire: request envelope without request")
		}
		buf = protowire.AppendTag(buf, 2, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.Request.marshal())
	case EnvelopeTypeResponse:
		if e.Response == nil {
			return nil, fmt.Errorf("wire: response envelope without response")
		}
		buf = protowire.AppendTag(buf, 3, protowire.BytesType)
		buf = protowire.AppendBytes(buf, e.Response.marshal())
	default:
		return nil, fmt.Errorf("wire: cannot encode envelope type %d", e.Type)
	}
	return buf, nil
}

// Decode parses binary wire data into the envelope. A *DecodeError is
// returned for malformed input, including a recognized type tag whose
// payload is missing. Unrecognized type tags decode successfully; the
// dispatch layer decides what to do with them.
func (e *Envelope) Decode(data []byte) error {
	*e = Envelope{}

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return decodeErr("envelope: bad field tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return decodeErr("envelope: type", protowire.ParseError(n))
			}
			e.Type = EnvelopeType(v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return decodeErr("envelope: request", protowire.ParseError(n))
			}
			req := &RequestMessage{}
			if err := req.unmarshal(v); err != nil {
				return err
			}
			e.Request = req
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return decodeErr("envelope: response", protowire.ParseError(n))
			}
			resp := &ResponseMessage{}
			if err := resp.unmarshal(v); err != nil {
				return err
			}
			e.Response = resp
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return decodeErr("envelope: unknown field", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}

	if e.Type == EnvelopeTypeRequest && e.Request == nil {
		return decodeErr("envelope: request type without request payload", nil)
	}
	if e.Type == EnvelopeTypeResponse && e.Response == nil {
		return decodeErr("envelope: response type without response payload", nil)
	}
	return nil
}
