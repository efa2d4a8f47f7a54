// ABOUTME: Markdown rendering for board post notification emails
// ABOUTME: Converts member-authored markdown to the HTML body of the email

package mail

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
)

// RenderMarkdown converts markdown to an HTML fragment.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// PostNotificationBody renders the email sent to members when a new board
// post is published. The post body is markdown; a body that fails to render
// falls back to escaped plain text.
func PostNotificationBody(title, markdownBody, postURL string) string {
	rendered, err := RenderMarkdown(markdownBody)
	if err != nil {
		rendered = "<p>" + html.EscapeString(markdownBody) + "</p>"
	}
	return fmt.Sprintf(`<h2>%s</h2>
%s
<p><a href="%s">Read on the portal</a></p>`, html.EscapeString(title), rendered, postURL)
}
