package domain

import (
	"bytes"
	"io"
	"strings"

	scribeErrors "github.com/reshetovitsme/discord-scribe/internal/shared/errors"
	"github.com/samber/oops"
)

const (
	// FileExtension is appended to every transcript filename
	FileExtension = ".md"
	// FallbackFilename is used when neither a custom name nor a channel name is known
	FallbackFilename = "transcript"
	// LineSeparator separates consecutive messages in the transcript
	LineSeparator = "\n\n"
)

// Request describes one transcript export
type Request struct {
	ChannelID string
	// ChannelName, when known to the caller, saves a channel lookup for the
	// default filename.
	ChannelName string
	// Filename overrides the channel name as the base of the file name.
	Filename string
	Options  FormattingOptions
}

// Validate rejects requests that can not be served
func (r Request) Validate() error {
	if strings.TrimSpace(r.ChannelID) == "" {
		return oops.With("field", "channel_id").Wrapf(scribeErrors.ErrValidation, "channel id is required")
	}
	return nil
}

// Transcript is the assembled, chronologically ordered export of a channel
type Transcript struct {
	Content      []byte
	Filename     string
	MessageCount int
}

// Text returns the transcript body
func (t *Transcript) Text() string {
	return string(t.Content)
}

// Empty reports whether the channel had no messages
func (t *Transcript) Empty() bool {
	return t.MessageCount == 0
}

// Reader returns a fresh reader over the transcript body
func (t *Transcript) Reader() io.Reader {
	return bytes.NewReader(t.Content)
}

// WriteTo implements io.WriterTo
func (t *Transcript) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(t.Content)
	return int64(n), err
}
