package net

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"LiveAnnotate/internal/state"
)

var (
	// ErrMalformedMessage is returned when an inbound payload cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownKind is returned for a message type outside the protocol.
	ErrUnknownKind = errors.New("unknown message kind")
)

// Kind is the protocol message type.
type Kind string

const (
	KindAnnotate    Kind = "annotate"
	KindClear       Kind = "clearAnnotations"
	KindClearByType Kind = "clearAnnotationsByType"
	KindDelete      Kind = "deleteAnnotation"
	KindSync        Kind = "syncAnnotations"
)

// envelopeType wraps protocol messages on Jitsi command channels.
const envelopeType = "annotation-data"

// ClearScope selects whose actions a selective clear removes.
type ClearScope string

const (
	ScopeAll      ClearScope = "all"
	ScopeTeacher  ClearScope = "teacher"  // the reference identity's actions
	ScopeStudents ClearScope = "students" // everyone else's actions
)

// Valid reports whether s is one of the known scopes.
func (s ClearScope) Valid() bool {
	return s == ScopeAll || s == ScopeTeacher || s == ScopeStudents
}

// Message is one protocol message. Only the fields relevant to Type are set.
type Message struct {
	Type            Kind           `json:"type" cbor:"type"`
	Action          *state.Action  `json:"action,omitempty" cbor:"action,omitempty"`
	AuthorType      ClearScope     `json:"authorType,omitempty" cbor:"authorType,omitempty"`
	TeacherIdentity string         `json:"teacherIdentity,omitempty" cbor:"teacherIdentity,omitempty"`
	ID              string         `json:"id,omitempty" cbor:"id,omitempty"`
	History         []state.Action `json:"history,omitempty" cbor:"history,omitempty"`
	HistoryStep     int            `json:"historyStep,omitempty" cbor:"historyStep,omitempty"`
	Sender          string         `json:"sender,omitempty" cbor:"sender,omitempty"`
}

// Annotate announces a new or updated action.
func Annotate(a state.Action) Message {
	return Message{Type: KindAnnotate, Action: &a}
}

// Clear asks every participant to drop all annotations.
func Clear() Message {
	return Message{Type: KindClear}
}

// ClearByType asks every participant to apply a selective clear.
func ClearByType(scope ClearScope, reference string) Message {
	return Message{Type: KindClearByType, AuthorType: scope, TeacherIdentity: reference}
}

// Delete removes one action by id.
func Delete(id string) Message {
	return Message{Type: KindDelete, ID: id}
}

// Sync carries a full local history snapshot.
func Sync(history []state.Action, step int) Message {
	return Message{Type: KindSync, History: history, HistoryStep: step}
}

// Validate checks the fields required by the message type and clamps any
// carried geometry into the unit square.
func (m *Message) Validate() error {
	switch m.Type {
	case KindAnnotate:
		if m.Action == nil {
			return fmt.Errorf("%w: annotate without action", ErrMalformedMessage)
		}
		if err := m.Action.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		a := m.Action.Normalized()
		m.Action = &a
	case KindClear:
	case KindClearByType:
		if !m.AuthorType.Valid() {
			return fmt.Errorf("%w: authorType %q", ErrMalformedMessage, m.AuthorType)
		}
	case KindDelete:
		if m.ID == "" {
			return fmt.Errorf("%w: deleteAnnotation without id", ErrMalformedMessage)
		}
	case KindSync:
		for i, a := range m.History {
			if err := a.Validate(); err != nil {
				return fmt.Errorf("%w: history[%d]: %w", ErrMalformedMessage, i, err)
			}
			m.History[i] = a.Normalized()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Type)
	}
	return nil
}

// Codec turns messages into bytes and back.
type Codec interface {
	Name() string
	Encode(Message) ([]byte, error)
	Decode([]byte) (Message, error)
}

// JSONCodec is the default wire format. With Envelope set, outbound
// messages are wrapped as {"type":"annotation-data","payload":...}.
// Decoding accepts bare, enveloped and {"value":"..."} command payloads.
type JSONCodec struct {
	Envelope bool
}

func (JSONCodec) Name() string { return "json" }

func (c JSONCodec) Encode(m Message) ([]byte, error) {
	if c.Envelope {
		return json.Marshal(struct {
			Type    string  `json:"type"`
			Payload Message `json:"payload"`
		}{envelopeType, m})
	}
	return json.Marshal(m)
}

func (c JSONCodec) Decode(b []byte) (Message, error) {
	var outer struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
		Value   string          `json:"value"`
	}
	if err := json.Unmarshal(b, &outer); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	switch {
	case outer.Type == "" && outer.Value != "":
		return c.Decode([]byte(outer.Value))
	case outer.Type == envelopeType:
		if len(outer.Payload) == 0 {
			return Message{}, fmt.Errorf("%w: empty envelope", ErrMalformedMessage)
		}
		b = outer.Payload
	}

	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// CBORCodec is a compact binary format using the same field names.
type CBORCodec struct{}

func (CBORCodec) Name() string { return "cbor" }

func (CBORCodec) Encode(m Message) ([]byte, error) {
	return cbor.Marshal(m)
}

func (CBORCodec) Decode(b []byte) (Message, error) {
	var m Message
	if err := cbor.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "cbor":
		return CBORCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
