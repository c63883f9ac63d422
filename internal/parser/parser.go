// Package parser normalizes raw .eml bytes into the structured record used
// by every scoring module. Parsing happens entirely in memory: attachment
// payloads are measured and discarded, and the returned record keeps no
// reference to the input buffer.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	emlmail "github.com/emersion/go-message/mail"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/vams/mailrisk/internal/core"
	"github.com/vams/mailrisk/internal/utils"
)

// MaxMessageBytes bounds how much raw input Parse will accept.
const MaxMessageBytes = 50 << 20

// urlPattern matches absolute scheme://host[/path] forms in body text and
// headers.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// Parser turns raw message bytes into a core.Email.
type Parser struct {
	logger *zap.Logger
	text   *utils.TextProcessor
}

// New creates a new Parser.
func New(logger *zap.Logger, text *utils.TextProcessor) *Parser {
	return &Parser{
		logger: logger,
		text:   text,
	}
}

// Parse parses raw .eml bytes. It tolerates missing Content-Type headers,
// undecodable byte sequences and absent text parts; structurally unparseable
// input fails with core.ErrMalformedMessage.
func (p *Parser) Parse(raw []byte) (*core.Email, error) {
	if len(raw) > MaxMessageBytes {
		return nil, eris.Wrap(core.ErrInputTooLarge,
			fmt.Sprintf("message is %d bytes, limit is %d", len(raw), MaxMessageBytes))
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(core.ErrMalformedMessage, err.Error())
	}

	email := &core.Email{
		Headers: p.collapseHeaders(msg.Header),
	}
	email.From = email.Headers["From"]
	email.To = email.Headers["To"]
	email.Cc = email.Headers["Cc"]
	email.Bcc = email.Headers["Bcc"]
	email.Subject = email.Headers["Subject"]
	email.Date = email.Headers["Date"]

	p.readBody(raw, msg, email)

	if email.BodyText == "" && email.BodyHTML != "" {
		email.BodyText = htmlToText(email.BodyHTML)
	}
	email.BodyText = p.text.SanitizeUTF8(email.BodyText)
	email.BodyHTML = p.text.SanitizeUTF8(email.BodyHTML)

	email.URLs = extractURLs(email.BodyText + " " + email.BodyHTML + " " + email.From)

	return email, nil
}

// collapseHeaders folds the header map to single values, last occurrence
// winning, with RFC 2047 encoded words decoded where possible.
func (p *Parser) collapseHeaders(header mail.Header) map[string]string {
	dec := mime.WordDecoder{CharsetReader: charset.Reader}
	out := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		if decoded, err := dec.DecodeHeader(value); err == nil {
			value = decoded
		}
		out[key] = value
	}
	return out
}

// readBody walks the MIME structure, filling body parts and attachment
// metadata. Any structural trouble inside the body degrades to treating the
// remaining payload as plain text rather than failing the parse.
func (p *Parser) readBody(raw []byte, msg *mail.Message, email *core.Email) {
	mr, err := emlmail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		// Not a well-formed MIME body; keep whatever text is there.
		body, readErr := io.ReadAll(msg.Body)
		if readErr == nil {
			email.BodyText = string(body)
		}
		return
	}

	var textParts, htmlParts strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			p.logger.Debug("Stopped reading MIME parts", zap.Error(err))
			break
		}

		switch h := part.Header.(type) {
		case *emlmail.InlineHeader:
			contentType, _, ctErr := h.ContentType()
			if ctErr != nil {
				contentType = "text/plain"
			}
			content, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.EqualFold(contentType, "text/plain"):
				textParts.Write(content)
			case strings.EqualFold(contentType, "text/html"):
				htmlParts.Write(content)
			}
		case *emlmail.AttachmentHeader:
			filename, _ := h.Filename()
			if filename == "" {
				filename = "unknown"
			}
			contentType, _, _ := h.ContentType()
			// Count the payload size without retaining the bytes.
			size, _ := io.Copy(io.Discard, part.Body)
			email.Attachments = append(email.Attachments, core.Attachment{
				Filename:    filename,
				ContentType: contentType,
				SizeBytes:   int(size),
			})
		}
	}

	email.BodyText = textParts.String()
	email.BodyHTML = htmlParts.String()
}

// extractURLs returns the distinct absolute URLs in text, sorted so that
// repeated parses of the same message produce a stable ordering.
func extractURLs(text string) []string {
	seen := make(map[string]struct{})
	for _, match := range urlPattern.FindAllString(text, -1) {
		seen[match] = struct{}{}
	}
	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// htmlToText strips markup from an HTML body, skipping script and style
// contents.
func htmlToText(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	var out strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(out.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "script", "style":
				skipDepth++
			case "br", "p", "div", "tr", "li":
				out.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if skipDepth == 0 {
				out.Write(tokenizer.Text())
			}
		}
	}
}
