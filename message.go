package sechat

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"time"
)

// ChatMessage is one chat message as reconstructed from the wire. It is
// immutable once constructed; the session layer builds it incrementally
// while parsing a frame and never touches it again.
type ChatMessage struct {
	ID       int64
	ParentID int64

	UserID   int64
	UserName string

	// TargetUserID is the mentioned or replied-to user, when the message
	// was reconstructed from a mention or reply frame.
	TargetUserID int64

	RoomID   int64
	RoomName string

	// Content is nil when the message was deleted.
	Content *Content

	Edits  int
	Stars  int
	Posted time.Time
}

// Deleted reports whether the message content is gone.
func (m *ChatMessage) Deleted() bool {
	return m.Content == nil
}

// Literal rendering markers. These encode the service's versionless wire
// format and are validated against recorded fixtures; do not generalize
// them into a structured parser.
var (
	oneboxPattern    = regexp.MustCompile(`^\s*<div class="onebox`)
	fixedFontPattern = regexp.MustCompile(`^<pre class=(?:'|")(?:full|partial)(?:'|")>`)
	mentionPattern   = regexp.MustCompile(`@([a-zA-Z0-9]+)`)
)

// minMentionLength is the shortest token after '@' the service treats as a
// ping.
const minMentionLength = 3

// Content is a message body: the raw wire text plus its normalized form and
// rendering metadata. The mention token list is computed lazily on first
// access.
type Content struct {
	// Raw is the text exactly as it appeared on the wire.
	Raw string

	// Text is the normalized form: entities unescaped, the fixed-font
	// wrapper stripped.
	Text string

	// FixedFont is set when the whole message renders in a code block.
	FixedFont bool

	// Onebox is set when the service expanded the message into rich
	// embedded content.
	Onebox bool

	once   sync.Once
	tokens []string
}

// NewContent parses raw wire text into a Content.
func NewContent(raw string) *Content {
	c := &Content{Raw: raw}
	text := raw
	if m := fixedFontPattern.FindString(text); m != "" {
		c.FixedFont = true
		text = strings.TrimPrefix(text, m)
		text = strings.TrimSuffix(text, "</pre>")
	}
	c.Onebox = oneboxPattern.MatchString(raw)
	c.Text = html.UnescapeString(text)
	return c
}

// MentionTokens returns the tokens following '@' that are long enough to
// ping someone. Tokens shorter than three characters are excluded.
func (c *Content) MentionTokens() []string {
	c.once.Do(func() {
		for _, m := range mentionPattern.FindAllStringSubmatch(c.Text, -1) {
			if len(m[1]) >= minMentionLength {
				c.tokens = append(c.tokens, m[1])
			}
		}
	})
	return c.tokens
}

// MentionsUser reports whether any mention token is a case-insensitive
// prefix of the username with spaces stripped.
func (c *Content) MentionsUser(name string) bool {
	stripped := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	if stripped == "" {
		return false
	}
	for _, tok := range c.MentionTokens() {
		if strings.HasPrefix(stripped, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// User is a chat user as returned by the user-info and pingable-users
// queries.
type User struct {
	ID          int64
	Name        string
	Reputation  int
	IsModerator bool
	LastSeen    time.Time
	LastPost    time.Time
}

// RoomInfo is the service's thumbnail description of a room.
type RoomInfo struct {
	ID          int64
	Name        string
	Description string
	Users       int
}
