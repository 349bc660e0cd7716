package domain

// Platform identifies an external messaging platform.
type Platform string

// Known platforms. YouTube has no message adapter; it participates only in
// the credential lifecycle (OAuth connections and proactive refresh).
const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTelegram  Platform = "telegram"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformSlack     Platform = "slack"
	PlatformTwitter   Platform = "twitter"
	PlatformYouTube   Platform = "youtube"
)

// Message is the canonical, platform-independent shape of an inbound message.
// Every adapter normalizes its webhook payloads into this type.
//
// MessageID is unique within one platform's message space only. The hub does
// not deduplicate across deliveries: a platform that retries a webhook will
// produce the same canonical message twice. Consumers that need exactly-once
// must dedupe on (platform, message_id) themselves.
type Message struct {
	Platform  Platform `json:"platform"`
	SenderID  string   `json:"sender_id"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"` // milliseconds since epoch
	MessageID string   `json:"message_id"`
	ChatID    string   `json:"chat_id,omitempty"`
	ChannelID string   `json:"channel_id,omitempty"`
	Username  string   `json:"username,omitempty"`

	// Optional extension fields populated by platforms that report them.
	ForwardedFrom string `json:"forwarded_from,omitempty"`
	HasMedia      bool   `json:"has_media,omitempty"`
}
