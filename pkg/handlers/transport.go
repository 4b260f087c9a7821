// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package handlers turns one classified event into replies.
package handlers

import (
	"context"

	"github.com/zhaopengme/transclaw/pkg/bus"
)

// Messenger sends and manages messages in a chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (bus.MessageHandle, error)
	Edit(ctx context.Context, h bus.MessageHandle, text string) error
	Delete(ctx context.Context, h bus.MessageHandle) error
}

// FileFetcher resolves and downloads attached files.
type FileFetcher interface {
	FileLocation(ctx context.Context, fileID string) (string, error)
	Download(ctx context.Context, location string) (string, error)
}

type Transport interface {
	Messenger
	FileFetcher
}
