// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

package bus

import (
	"errors"
	"fmt"
)

// ErrPartialDelivery is wrapped by send errors that happen after the first
// part of a reply already reached the chat.
var ErrPartialDelivery = errors.New("reply partially delivered")

type PayloadKind string

const (
	KindText  PayloadKind = "text"
	KindPhoto PayloadKind = "photo"
	KindOther PayloadKind = "other"
)

// Payload is one of TextPayload, PhotoPayload or OtherPayload.
type Payload interface {
	Kind() PayloadKind
}

type TextPayload struct {
	RawText string `json:"raw_text"`
}

func (TextPayload) Kind() PayloadKind { return KindText }

// PhotoPayload refers to the largest size of an uploaded photo.
type PhotoPayload struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id,omitempty"`
}

func (PhotoPayload) Kind() PayloadKind { return KindPhoto }

type OtherPayload struct{}

func (OtherPayload) Kind() PayloadKind { return KindOther }

type Sender struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// InboundEvent is one update read from the transport. It is not modified
// after the transport creates it.
type InboundEvent struct {
	EventID   int64   `json:"event_id"`
	ChatID    int64   `json:"chat_id"`
	MessageID int     `json:"message_id"`
	Sender    Sender  `json:"sender"`
	Payload   Payload `json:"-"`
}

func (e InboundEvent) Kind() PayloadKind {
	if e.Payload == nil {
		return KindOther
	}
	return e.Payload.Kind()
}

func (e InboundEvent) String() string {
	return fmt.Sprintf("event %d chat %d (%s)", e.EventID, e.ChatID, e.Kind())
}

// MessageHandle identifies a message the bot itself sent.
type MessageHandle struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (h MessageHandle) IsZero() bool {
	return h.MessageID == 0
}
