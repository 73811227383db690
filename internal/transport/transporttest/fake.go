// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	errs "github.com/edgard/collectbot/internal/errors"
	"github.com/edgard/collectbot/internal/transport"
)

// Message is one recorded outgoing message.
type Message struct {
	ID        int
	ChatID    int64
	Text      string
	Formatted bool
	ReplyTo   int
	SentAt    time.Time
}

// Document is one recorded upload.
type Document struct {
	ID       int
	ChatID   int64
	Filename string
	Content  []byte
	Caption  string
}

// Fake records every call. Failure knobs are read under the same lock, so
// tests may flip them between calls.
type Fake struct {
	mu sync.Mutex

	nextID    int
	Messages  []Message
	Replies   []Message
	Pinned    []int
	Unpinned  []int
	Documents []Document

	// FailSends makes the next N SendMessage calls fail.
	FailSends int
	// RejectFormatted fails every formatted SendMessage.
	RejectFormatted bool
	FailPin         bool
	FailUnpin       bool
	FailReply       bool
	FailDocument    bool
}

var _ transport.Transport = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{nextID: 100}
}

func (f *Fake) id() int {
	f.nextID++
	return f.nextID
}

func (f *Fake) SendMessage(_ context.Context, chatID int64, text string, formatted bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailSends > 0 {
		f.FailSends--
		return 0, errs.NewDeliveryError("fake send", errors.New("transient failure"))
	}
	if formatted && f.RejectFormatted {
		return 0, errs.NewDeliveryError("fake send", errors.New("can't parse entities"))
	}

	m := Message{ID: f.id(), ChatID: chatID, Text: text, Formatted: formatted, SentAt: time.Now()}
	f.Messages = append(f.Messages, m)
	return m.ID, nil
}

func (f *Fake) Reply(_ context.Context, chatID int64, replyTo int, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailReply {
		return 0, errs.NewDeliveryError("fake reply", errors.New("failure"))
	}
	m := Message{ID: f.id(), ChatID: chatID, Text: text, ReplyTo: replyTo, SentAt: time.Now()}
	f.Replies = append(f.Replies, m)
	return m.ID, nil
}

func (f *Fake) PinMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailPin {
		return errs.NewPinError("fake pin", errors.New("not enough rights"))
	}
	f.Pinned = append(f.Pinned, messageID)
	return nil
}

func (f *Fake) UnpinMessage(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailUnpin {
		return errs.NewPinError("fake unpin", errors.New("message not found"))
	}
	f.Unpinned = append(f.Unpinned, messageID)
	return nil
}

func (f *Fake) SendDocument(_ context.Context, chatID int64, filename string, data io.Reader, caption string) (int, error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return 0, errs.NewDeliveryError("fake document", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailDocument {
		return 0, errs.NewDeliveryError("fake document", errors.New("failure"))
	}
	d := Document{ID: f.id(), ChatID: chatID, Filename: filename, Content: content, Caption: caption}
	f.Documents = append(f.Documents, d)
	return d.ID, nil
}

// SentMessages returns a copy of the recorded messages.
func (f *Fake) SentMessages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Messages...)
}

// SentReplies returns a copy of the recorded replies.
func (f *Fake) SentReplies() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.Replies...)
}

// PinnedIDs returns a copy of the pinned message ids.
func (f *Fake) PinnedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Pinned...)
}

// UnpinnedIDs returns a copy of the unpinned message ids.
func (f *Fake) UnpinnedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.Unpinned...)
}

// SentDocuments returns a copy of the recorded uploads.
func (f *Fake) SentDocuments() []Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Document(nil), f.Documents...)
}

// Set runs fn under the fake's lock, for flipping failure knobs.
func (f *Fake) Set(fn func(f *Fake)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}
