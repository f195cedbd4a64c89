package chat

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/luciancaetano/sechat"
	"github.com/luciancaetano/sechat/internal/logger"
)

// Literal scraping contracts against the service's HTML and response
// bodies. These encode a versionless external format and are pinned by
// fixture tests; do not rework them into a structured parser.
var (
	// fkeyPattern matches the anti-forgery token both in the hidden form
	// input and in the inline script blob.
	fkeyPattern = regexp.MustCompile(`fkey(?:"\s*:\s*"|[^>]*?value=")([0-9a-f]{32})"`)

	// currentUserPattern recovers the logged-in user id from the room page.
	currentUserPattern = regexp.MustCompile(`CHAT\.CURRENT_USER_ID\s*=\s*(\d+)`)
)

// messageInputMarker is present in the room page exactly when the logged-in
// user may post.
const messageInputMarker = `<textarea id="input"`

// Known literal response bodies for message edit/delete.
const (
	respOK             = `"ok"`
	respTooLateDelete  = "It is too late to delete this message"
	respTooLateEdit    = "It is too late to edit this message"
	respNotYourDelete  = "You can only delete your own messages"
	respNotYourEdit    = "You can only edit your own messages"
	respAlreadyDeleted = "This message has already been deleted."
)

func scrapeFkey(page string) (string, error) {
	m := fkeyPattern.FindStringSubmatch(page)
	if m == nil {
		return "", errors.New(sechat.ErrMsgMissingFkey)
	}
	return m[1], nil
}

func scrapeCanPost(page string) bool {
	return strings.Contains(page, messageInputMarker)
}

func scrapeCurrentUserID(page string) int64 {
	m := currentUserPattern.FindStringSubmatch(page)
	if m == nil {
		return 0
	}
	id, _ := strconv.ParseInt(m[1], 10, 64)
	return id
}

// mapWriteResponse converts a literal edit/delete response body into a typed
// outcome. Unknown bodies are logged as unexpected but not treated as fatal.
func mapWriteResponse(op string, messageID int64, body string) error {
	switch strings.TrimSpace(body) {
	case respOK:
		return nil
	case respTooLateDelete, respTooLateEdit:
		return sechat.ErrMessageTooOld
	case respNotYourDelete, respNotYourEdit:
		return sechat.ErrNotYourMessage
	case respAlreadyDeleted:
		return sechat.ErrAlreadyDeleted
	default:
		logger.Warn("unexpected_write_response",
			"op", op,
			"message_id", messageID,
			"body", strings.TrimSpace(body),
		)
		return nil
	}
}
