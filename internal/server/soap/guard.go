package soap

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Ometra-Hela/Alize/internal/datastructures"
	"github.com/Ometra-Hela/Alize/internal/model"
)

const (
	DefaultMaxAttachments     = 10
	DefaultMaxAttachmentBytes = 4 << 20
)

var (
	fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

	executableSignatures = [][]byte{
		[]byte("MZ"),
		[]byte("\x7fELF"),
		[]byte("#!/"),
		[]byte("<?php"),
	}
)

type GuardConfig struct {
	MaxCount      int
	MaxTotalBytes int64
	AllowedMIME   []string
}

type acceptedAttachment struct {
	FileName string
	MimeType string
	Content  []byte
}

type attachmentGuard struct {
	maxCount      int
	maxTotalBytes int64
	allowed       datastructures.HashSet[string]
}

func newAttachmentGuard(cfg GuardConfig) *attachmentGuard {
	g := &attachmentGuard{
		maxCount:      cfg.MaxCount,
		maxTotalBytes: cfg.MaxTotalBytes,
		allowed:       datastructures.NewHashSet[string](),
	}

	if g.maxCount <= 0 {
		g.maxCount = DefaultMaxAttachments
	}

	if g.maxTotalBytes <= 0 {
		g.maxTotalBytes = DefaultMaxAttachmentBytes
	}

	for _, m := range cfg.AllowedMIME {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			g.allowed.AddValue(m)
		}
	}

	if g.allowed.Len() == 0 {
		g.allowed.AddValue("application/pdf")
	}

	return g
}

// check decodes and vets every attachment. The first violation rejects the whole call.
func (g *attachmentGuard) check(atts []inboundAttachment) ([]acceptedAttachment, error) {
	if len(atts) > g.maxCount {
		return nil, model.NewValidationError("%d attachments, at most %d allowed", len(atts), g.maxCount)
	}

	accepted := make([]acceptedAttachment, 0, len(atts))

	var total int64

	for i, a := range atts {
		if !fileNamePattern.MatchString(a.FileName) {
			return nil, model.NewValidationError("attachment %d: invalid file name %q", i, a.FileName)
		}

		content, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(a.Content), ""))
		if err != nil {
			return nil, model.NewValidationError("attachment %d: content is not valid base64", i)
		}

		if len(content) == 0 {
			return nil, model.NewValidationError("attachment %d: content is empty", i)
		}

		total += int64(len(content))
		if total > g.maxTotalBytes {
			return nil, model.NewValidationError("attachments exceed %d bytes", g.maxTotalBytes)
		}

		sniffed := mediaType(mimetype.Detect(content).String())
		if !g.allowed.Contains(sniffed) {
			return nil, model.NewValidationError("attachment %d: content type %s is not allowed, expected one of %s",
				i, sniffed, strings.Join(datastructures.Sorted(g.allowed, strings.Compare), ", "))
		}

		for _, sig := range executableSignatures {
			if bytes.HasPrefix(content, sig) {
				return nil, model.NewValidationError("attachment %d: executable content rejected", i)
			}
		}

		accepted = append(accepted, acceptedAttachment{FileName: a.FileName, MimeType: sniffed, Content: content})
	}

	return accepted, nil
}

func mediaType(v string) string {
	base, _, _ := strings.Cut(v, ";")

	return strings.ToLower(strings.TrimSpace(base))
}
