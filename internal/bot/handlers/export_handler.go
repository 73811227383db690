package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/collectbot/internal/publisher"
)

// exportEntry is one line of the export file. Names are stored unescaped.
type exportEntry struct {
	Ordinal     int    `json:"ordinal"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
}

// NewExportHandler returns a handler for the /export command.
func NewExportHandler(deps HandlerDeps) bot.HandlerFunc {
	return exportHandler{deps: deps, now: time.Now}.Handle
}

// exportHandler uploads the running round's submissions as a JSON document.
// Requires admin privileges (enforced by middleware).
type exportHandler struct {
	deps HandlerDeps
	now  func() time.Time
}

func (h exportHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "export")

	msg := update.Message
	if msg == nil || msg.From == nil {
		log.ErrorContext(ctx, "Export handler called with nil Message or From", "update_id", update.ID)
		return
	}

	subs := h.deps.Engine.Submissions()
	if len(subs) == 0 {
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.ExportEmpty)
		return
	}

	if err := h.export(ctx, msg.Chat.ID, subs); err != nil {
		log.ErrorContext(ctx, "Export failed", "error", err)
		h.deps.reply(ctx, log, msg, h.deps.Config.Messages.ExportFailed)
		return
	}
	log.InfoContext(ctx, "Export sent", "chat_id", msg.Chat.ID, "submissions", len(subs))
}

// export writes subs to a temp file, uploads it and removes the file.
func (h exportHandler) export(ctx context.Context, chatID int64, subs []publisher.Submission) error {
	entries := make([]exportEntry, len(subs))
	for i, s := range subs {
		entries[i] = exportEntry{
			Ordinal:     s.Ordinal,
			DisplayName: html.UnescapeString(s.DisplayName),
			Text:        s.RawText,
		}
	}

	f, err := os.CreateTemp("", "collect-export-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = f.Close()
		if err := os.Remove(f.Name()); err != nil {
			h.deps.Logger.WarnContext(ctx, "Failed to remove export file", "path", f.Name(), "error", err)
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("rewind export: %w", err)
	}

	filename := fmt.Sprintf("submissions_%s.json", h.now().Format("20060102_150405"))
	caption := fmt.Sprintf("📦 %d submissions", len(subs))
	if _, err := h.deps.Transport.SendDocument(ctx, chatID, filename, f, caption); err != nil {
		return err
	}
	return nil
}
