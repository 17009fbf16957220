// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Message is the engine-neutral message shape delivered to webhooks and API callers.
type Message struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	FromMe    bool   `json:"fromMe"`
	Body      string `json:"body"`
	HasMedia  bool   `json:"hasMedia"`
	Media     *Media `json:"media,omitempty"`
	ReplyTo   string `json:"replyTo,omitempty"`
	// Raw is the engine-specific representation, passed through untouched.
	Raw any `json:"_data,omitempty"`
}

// Media references a message attachment. URL is nil when the file was not
// persisted (filtered mimetype).
type Media struct {
	Mimetype string  `json:"mimetype"`
	Filename string  `json:"filename"`
	URL      *string `json:"url"`
}

// Chat is a conversation summary.
type Chat struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	IsGroup   bool   `json:"isGroup"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// File is an outgoing attachment given either by URL or inline base64 data.
type File struct {
	Mimetype string `json:"mimetype,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Validate requires url or data and checks that data is valid base64.
func (f File) Validate() error {
	if strings.TrimSpace(f.URL) == "" && f.Data == "" {
		return fmt.Errorf("%w: either file.url or file.data must be specified", ErrValidation)
	}
	if f.Data != "" {
		if _, err := base64.StdEncoding.DecodeString(f.Data); err != nil {
			return fmt.Errorf("%w: file.data is not valid base64", ErrValidation)
		}
	}
	return nil
}

// Bytes decodes inline data. It returns nil when the file is given by URL.
func (f File) Bytes() ([]byte, error) {
	if f.Data == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(f.Data)
}

// TextRequest sends a text, optionally as a reply.
type TextRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// Validate checks required fields.
func (r TextRequest) Validate() error {
	if strings.TrimSpace(r.ChatID) == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	if r.Text == "" {
		return fmt.Errorf("%w: text is required", ErrValidation)
	}
	return nil
}

// FileRequest sends an image, document, voice note or video.
type FileRequest struct {
	Session string `json:"session"`
	ChatID  string `json:"chatId"`
	File    File   `json:"file"`
	Caption string `json:"caption,omitempty"`
}

// Validate checks required fields and the attachment.
func (r FileRequest) Validate() error {
	if strings.TrimSpace(r.ChatID) == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	return r.File.Validate()
}

// SeenRequest marks a message as read.
type SeenRequest struct {
	Session     string `json:"session"`
	ChatID      string `json:"chatId"`
	MessageID   string `json:"messageId,omitempty"`
	Participant string `json:"participant,omitempty"`
}

// Validate checks required fields.
func (r SeenRequest) Validate() error {
	if strings.TrimSpace(r.ChatID) == "" {
		return fmt.Errorf("%w: chatId is required", ErrValidation)
	}
	return nil
}

// EditMessageRequest replaces a message text.
type EditMessageRequest struct {
	Text string `json:"text"`
}

// MessagesQuery bounds a chat history read.
type MessagesQuery struct {
	Limit         int
	DownloadMedia bool
}

// DefaultMessagesLimit applies when a history query sets no limit.
const DefaultMessagesLimit = 100
