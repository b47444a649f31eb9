package i18n

import (
	"github.com/aarav0180/aven-backend/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages user-facing service messages
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer. English messages are embedded so
// the service works without external language files.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)

	if err := bundle.AddMessages(language.English, englishMessages...); err != nil {
		return nil, err
	}

	localizers := map[string]*i18n.Localizer{
		"en": i18n.NewLocalizer(bundle, "en"),
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}
	if localizer == nil {
		return messageID
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgMeetingScheduled = "meeting_scheduled"
	MsgTeamInformed     = "team_informed"
	MsgEmailApology     = "email_apology"
	MsgOfferHelp        = "offer_help"
	MsgAskEmail         = "ask_email"
	MsgRateLimited      = "rate_limited"
	MsgInternalError    = "internal_error"
)

var englishMessages = []*i18n.Message{
	{
		ID:    MsgMeetingScheduled,
		Other: "Meeting scheduled! Link: {{.Link}} (info sent to you and support team)",
	},
	{
		ID:    MsgTeamInformed,
		Other: "Team has been informed via email. You will be contacted soon.",
	},
	{
		ID:    MsgEmailApology,
		Other: "I'm having trouble sending emails right now. Please contact support directly or use the in-app chat feature.",
	},
	{
		ID:    MsgOfferHelp,
		Other: "If you'd like, I can notify our team at {{.Email}} to follow up with you.",
	},
	{
		ID:    MsgAskEmail,
		Other: "To make sure the team can reach you, please provide your email address.",
	},
	{
		ID:    MsgRateLimited,
		Other: "You're sending requests too quickly. Please wait a moment and try again.",
	},
	{
		ID:    MsgInternalError,
		Other: "Something went wrong while processing your request. Please try again.",
	},
}
