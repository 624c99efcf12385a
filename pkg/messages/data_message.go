// Package messages holds the application-level message model carried inside
// request and response bodies. The transport layer never inspects these;
// they are decoded by the layer above it.
package messages

import "time"

// GroupType describes what a group-addressed message does to the group.
type GroupType int

const (
	GroupTypeUnknown GroupType = iota
	GroupTypeUpdate
	GroupTypeDeliver
	GroupTypeQuit
)

// Group identifies the group context of a message.
type Group struct {
	ID      []byte
	Type    GroupType
	Name    string
	Members []string
}

// Attachment references an encrypted attachment blob.
type Attachment struct {
	ID          uint64
	ContentType string
	Key         []byte
}

// DataMessage is a decrypted message. It is immutable once built; construct
// one through the Builder.
type DataMessage struct {
	timestamp   time.Time
	body        string
	hasBody     bool
	attachments []Attachment
	group       *Group
	endSession  bool
}

// Timestamp returns the sent timestamp.
func (m *DataMessage) Timestamp() time.Time { return m.timestamp }

// Body returns the message body, if any.
func (m *DataMessage) Body() (string, bool) { return m.body, m.hasBody }

// Attachments returns the message attachments, if any.
func (m *DataMessage) Attachments() []Attachment { return m.attachments }

// GroupInfo returns the group context, if any.
func (m *DataMessage) GroupInfo() (*Group, bool) { return m.group, m.group != nil }

// IsEndSession reports whether this message closes the sender's session.
func (m *DataMessage) IsEndSession() bool { return m.endSession }

// IsGroupUpdate reports whether this message changes group state rather
// than delivering content.
func (m *DataMessage) IsGroupUpdate() bool {
	return m.group != nil && m.group.Type != GroupTypeDeliver
}

// Builder assembles a DataMessage.
type Builder struct {
	timestamp   time.Time
	body        string
	hasBody     bool
	attachments []Attachment
	group       *Group
	endSession  bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithTimestamp sets the sent timestamp.
func (b *Builder) WithTimestamp(t time.Time) *Builder {
	b.timestamp = t
	return b
}

// WithBody sets the message body.
func (b *Builder) WithBody(body string) *Builder {
	b.body = body
	b.hasBody = true
	return b
}

// WithAttachment appends one attachment.
func (b *Builder) WithAttachment(a Attachment) *Builder {
	b.attachments = append(b.attachments, a)
	return b
}

// WithAttachments appends several attachments.
func (b *Builder) WithAttachments(as []Attachment) *Builder {
	b.attachments = append(b.attachments, as...)
	return b
}

// AsGroupMessage sets the group context.
func (b *Builder) AsGroupMessage(g Group) *Builder {
	b.group = &g
	return b
}

// AsEndSessionMessage marks the message as ending the session.
func (b *Builder) AsEndSessionMessage() *Builder {
	b.endSession = true
	return b
}

// Build materializes the message. A zero timestamp defaults to now.
func (b *Builder) Build() *DataMessage {
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &DataMessage{
		timestamp:   ts,
		body:        b.body,
		hasBody:     b.hasBody,
		attachments: append([]Attachment(nil), b.attachments...),
		group:       b.group,
		endSession:  b.endSession,
	}
}
