package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"helpdesk-relay/internal/model"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const maxFilenameLength = 100

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// storeAttachments records every attachment of a ticket message. A failing
// attachment is logged and skipped; the message itself is already stored.
func (r *Relay) storeAttachments(ctx context.Context, conversationID, messageID string, inputs []AttachmentInput) []AttachmentView {
	views := make([]AttachmentView, 0, len(inputs))
	for i, in := range inputs {
		view, err := r.storeAttachment(ctx, conversationID, messageID, in)
		if err != nil {
			attachmentFailures.Inc()
			r.log.Warn("attachment skipped",
				"conversation_id", conversationID,
				"message_id", messageID,
				"index", i,
				"error", err,
			)
			continue
		}
		views = append(views, view)
	}
	return views
}

func (r *Relay) storeAttachment(ctx context.Context, conversationID, messageID string, in AttachmentInput) (AttachmentView, error) {
	name := nonEmpty(in.Filename, in.Name, "attachment")
	mimeType := nonEmpty(in.MimeType, in.Type)
	size := in.Size
	var url string

	switch {
	case in.Data != "":
		if r.files == nil {
			return AttachmentView{}, errors.New("file storage is not configured")
		}
		data, declared, err := decodeInlineData(in.Data)
		if err != nil {
			return AttachmentView{}, err
		}
		filename := storedFilename(r.now(), name)
		url, err = r.files.Save(ctx, path.Join("tickets", conversationID), filename, data)
		if err != nil {
			return AttachmentView{}, fmt.Errorf("save %s: %w", filename, err)
		}
		if mimeType == "" {
			mimeType = declared
		}
		if mimeType == "" {
			mimeType = mimetype.Detect(data).String()
		}
		size = int64(len(data))
	case in.URL != "":
		url = in.URL
	default:
		return AttachmentView{}, errors.New("attachment has neither data nor url")
	}

	item := model.AttachmentItem{
		AttachmentID: uuid.NewString(),
		MessageID:    messageID,
		URL:          url,
		Filename:     name,
		MimeType:     mimeType,
		Size:         size,
		CreatedAt:    model.FormatTime(r.now()),
	}
	if err := r.repo.CreateAttachment(ctx, item); err != nil {
		return AttachmentView{}, fmt.Errorf("record attachment: %w", err)
	}

	return AttachmentView{
		ID:       item.AttachmentID,
		URL:      item.URL,
		Filename: item.Filename,
		MimeType: item.MimeType,
		Size:     item.Size,
	}, nil
}

// decodeInlineData accepts raw base64 or a data URL and returns the bytes with
// the mime type a data URL declares.
func decodeInlineData(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	var declared string
	if strings.HasPrefix(raw, "data:") {
		header, body, ok := strings.Cut(raw, ",")
		if !ok {
			return nil, "", errors.New("malformed data url")
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		raw = body
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, "", fmt.Errorf("decode base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", errors.New("attachment is empty")
	}
	return data, declared, nil
}

// storedFilename prefixes the sanitized original name with the upload time and
// a short random suffix so repeated uploads never overwrite each other.
func storedFilename(now time.Time, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = strings.TrimLeft(base, ".")
	if base == "" || base == "_" {
		base = "file"
	}
	if len(base) > maxFilenameLength {
		base = base[len(base)-maxFilenameLength:]
	}
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), uuid.NewString()[:8], base)
}
