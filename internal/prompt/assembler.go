// Package prompt builds the multi-modal request sent to the AI backend
// from message text, attachments, media URLs, and referenced messages.
package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"

	"github.com/perchd/perch/internal/ai"
	"github.com/perchd/perch/internal/files"
	"github.com/perchd/perch/internal/model"
)

// textAttachmentBudget caps how many characters of a text attachment are
// inlined before the truncation marker.
const textAttachmentBudget = 8000

const truncationMarker = "\n[truncated]"

// maxImageBytes bounds a downloaded image payload.
const maxImageBytes = 8 << 20

// Input is everything one turn contributes to the prompt.
type Input struct {
	Text        string
	Attachments []model.Attachment
	MediaURLs   []string
	// References are the resolved referenced messages, in reference order.
	References []model.ChatMessage
}

// Assembled is the composed request material: one text block, the decoded
// image payloads, and whether the vision-capable model is required.
type Assembled struct {
	Text           string
	Images         []ai.Image
	VisionRequired bool
}

// Assembler composes prompts. Attachment content is read through the file
// store; remote images are fetched over HTTP with a bounded retry. Every
// failure degrades to an inline placeholder; assembly never aborts a turn.
type Assembler struct {
	files  files.Store
	client *http.Client
	logger *slog.Logger
}

func NewAssembler(fileStore files.Store, logger *slog.Logger) *Assembler {
	return &Assembler{
		files:  fileStore,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Assemble builds the composed text block and image payloads for a turn.
func (a *Assembler) Assemble(ctx context.Context, in Input) Assembled {
	var out Assembled
	var b strings.Builder

	if block := renderReferences(in.References); block != "" {
		b.WriteString(block)
		b.WriteString("\n")
	}

	b.WriteString(in.Text)

	for _, att := range in.Attachments {
		switch classify(att.Name, att.ContentType) {
		case kindImage:
			out.VisionRequired = true
			a.appendFileImage(ctx, &out, &b, att)
		case kindText:
			a.appendTextFile(ctx, &b, att)
		case kindVideo:
			fmt.Fprintf(&b, "\n[video attachment: %s]", att.Name)
		default:
			fmt.Fprintf(&b, "\n%s", summarize(att))
		}
	}

	for _, url := range in.MediaURLs {
		switch classify(url, "") {
		case kindImage:
			out.VisionRequired = true
			a.appendRemoteImage(ctx, &out, &b, url)
		case kindVideo:
			fmt.Fprintf(&b, "\n[video: %s]", url)
		default:
			fmt.Fprintf(&b, "\n[link: %s]", url)
		}
	}

	out.Text = b.String()
	return out
}

// renderReferences renders referenced messages as a quoted context block
// prepended to the current message.
func renderReferences(refs []model.ChatMessage) string {
	if len(refs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("In reply to:\n")
	for _, ref := range refs {
		fmt.Fprintf(&b, "> [%s] %s\n", ref.Sender, ref.Message)
		for _, att := range ref.Attachments {
			fmt.Fprintf(&b, "> %s\n", summarize(att))
		}
		for _, url := range ref.MediaURLs {
			fmt.Fprintf(&b, "> [media: %s]\n", url)
		}
	}
	return b.String()
}

func (a *Assembler) appendTextFile(ctx context.Context, b *strings.Builder, att model.Attachment) {
	data, _, err := a.files.Read(ctx, att.FileID)
	if err != nil {
		a.logger.Warn("read text attachment", "file_id", att.FileID, "error", err)
		fmt.Fprintf(b, "\n[attachment %s could not be read]", att.Name)
		return
	}

	content := string(data)
	if len(content) > textAttachmentBudget {
		// Back off to a rune boundary so the cut never splits a multibyte
		// character.
		cut := textAttachmentBudget
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + truncationMarker
	}
	fmt.Fprintf(b, "\n--- %s ---\n%s\n--- end of %s ---", att.Name, content, att.Name)
}

func (a *Assembler) appendFileImage(ctx context.Context, out *Assembled, b *strings.Builder, att model.Attachment) {
	data, contentType, err := a.files.Read(ctx, att.FileID)
	if err != nil {
		a.logger.Warn("read image attachment", "file_id", att.FileID, "error", err)
		fmt.Fprintf(b, "\n[image attachment %s could not be read]", att.Name)
		return
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = imageMIME(att.Name)
	}
	out.Images = append(out.Images, ai.Image{Data: data, MIMEType: contentType})
	fmt.Fprintf(b, "\n[attached image: %s]", att.Name)
}

func (a *Assembler) appendRemoteImage(ctx context.Context, out *Assembled, b *strings.Builder, url string) {
	data, contentType, err := a.fetchImage(ctx, url)
	if err != nil {
		a.logger.Warn("fetch remote image", "url", url, "error", err)
		fmt.Fprintf(b, "\n[image at %s could not be embedded]", url)
		return
	}
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		contentType = imageMIME(url)
	}
	out.Images = append(out.Images, ai.Image{Data: data, MIMEType: contentType})
	fmt.Fprintf(b, "\n[attached image from %s]", url)
}

// fetchImage downloads a remote image with a short bounded retry. Failures
// after the last attempt degrade to a placeholder upstream.
func (a *Assembler) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	var data []byte
	var contentType string

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
		if err != nil {
			return retry.RetryableError(err)
		}
		data = body
		contentType = resp.Header.Get("Content-Type")
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func summarize(att model.Attachment) string {
	ct := att.ContentType
	if ct == "" {
		ct = "unknown type"
	}
	return fmt.Sprintf("[attachment: %s (%s, %d bytes)]", att.Name, ct, att.Size)
}
