// Package i18n holds the English and Hindi phrase tables, quick replies and
// locale tags.
package i18n

import (
	"golang.org/x/text/language"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// Key names a translatable phrase.
type Key string

const (
	Loading                 Key = "loading"
	InputPlaceholder        Key = "input_placeholder"
	AITyping                Key = "ai_typing"
	RateLimit               Key = "rate_limit"
	SettingsTitle           Key = "settings_title"
	VoiceRate               Key = "voice_rate"
	VoicePitch              Key = "voice_pitch"
	VoiceVolume             Key = "voice_volume"
	APIKeyOverride          Key = "api_key_override"
	APIKeyHelp              Key = "api_key_help"
	ExportChat              Key = "export_chat"
	ClearChat               Key = "clear_chat"
	InstallApp              Key = "install_app"
	Install                 Key = "install"
	Dismiss                 Key = "dismiss"
	WelcomeMessage          Key = "welcome_message"
	ErrorAPI                Key = "error_api"
	ErrorRateLimit          Key = "error_rate_limit"
	ErrorSpeechNotSupported Key = "error_speech_not_supported"
	Listening               Key = "listening"
	SpeechError             Key = "speech_error"
	ChatCleared             Key = "chat_cleared"
	ChatExported            Key = "chat_exported"
	OfflineMessage          Key = "offline_message"
	BackOnline              Key = "back_online"
	Send                    Key = "send"
	Settings                Key = "settings"
)

var phrases = map[finanzas.Language]map[Key]string{
	finanzas.English: {
		Loading:                 "Loading your financial coach...",
		InputPlaceholder:        "Ask about investments, taxes, insurance...",
		AITyping:                "AI is typing...",
		RateLimit:               "requests remaining",
		SettingsTitle:           "Settings",
		VoiceRate:               "Voice Rate",
		VoicePitch:              "Voice Pitch",
		VoiceVolume:             "Voice Volume",
		APIKeyOverride:          "API Key Override (Optional)",
		APIKeyHelp:              "This will override the environment key for this session only",
		ExportChat:              "Export Chat History",
		ClearChat:               "Clear Chat History",
		InstallApp:              "Install Finanzas for better experience",
		Install:                 "Install",
		Dismiss:                 "Dismiss",
		WelcomeMessage:          "Hello! I'm your AI financial advisor. I can help you understand Indian investments, taxes, insurance, and more. What would you like to learn about?",
		ErrorAPI:                "Sorry, I'm having trouble connecting. Please try again.",
		ErrorRateLimit:          "Please wait before sending another message.",
		ErrorSpeechNotSupported: "Speech recognition is not supported in your browser.",
		Listening:               "Listening...",
		SpeechError:             "Could not recognize speech. Please try again.",
		ChatCleared:             "Chat history cleared",
		ChatExported:            "Chat history exported",
		OfflineMessage:          "You're offline. Some features may not work.",
		BackOnline:              "Back online!",
		Send:                    "Send",
		Settings:                "Settings",
	},
	finanzas.Hindi: {
		Loading:                 "आपका वित्तीय कोच लोड हो रहा है...",
		InputPlaceholder:        "निवेश, कर, बीमा के बारे में पूछें...",
		AITyping:                "AI टाइप कर रहा है...",
		RateLimit:               "अनुरोध शेष",
		SettingsTitle:           "सेटिंग्स",
		VoiceRate:               "आवाज़ की गति",
		VoicePitch:              "आवाज़ का स्वर",
		VoiceVolume:             "आवाज़ का वॉल्यूम",
		APIKeyOverride:          "API कुंजी ओवरराइड (वैकल्पिक)",
		APIKeyHelp:              "यह केवल इस सेशन के लिए पर्यावरण कुंजी को ओवरराइड करेगा",
		ExportChat:              "चैट इतिहास निर्यात करें",
		ClearChat:               "चैट इतिहास साफ़ करें",
		InstallApp:              "बेहतर अनुभव के लिए Finanzas इंस्टॉल करें",
		Install:                 "इंस्टॉल करें",
		Dismiss:                 "खारिज करें",
		WelcomeMessage:          "नमस्ते! मैं आपका AI वित्तीय सलाहकार हूँ। मैं आपको भारतीय निवेश, कर, बीमा और अधिक समझने में मदद कर सकता हूँ। आप क्या सीखना चाहेंगे?",
		ErrorAPI:                "क्षमा करें, मुझे कनेक्ट करने में समस्या हो रही है। कृपया पुनः प्रयास करें।",
		ErrorRateLimit:          "कृपया दूसरा संदेश भेजने से पहले प्रतीक्षा करें।",
		ErrorSpeechNotSupported: "आपके ब्राउज़र में स्पीच रिकग्निशन समर्थित नहीं है।",
		Listening:               "सुन रहा है...",
		SpeechError:             "स्पीच को पहचान नहीं सका। कृपया पुनः प्रयास करें।",
		ChatCleared:             "चैट इतिहास साफ़ कर दिया गया",
		ChatExported:            "चैट इतिहास निर्यात किया गया",
		OfflineMessage:          "आप ऑफ़लाइन हैं। कुछ सुविधाएं काम नहीं कर सकती हैं।",
		BackOnline:              "आप फिर से ऑनलाइन हैं!",
		Send:                    "भेजें",
		Settings:                "सेटिंग्स",
	},
}

var quickReplies = map[finanzas.Language][]string{
	finanzas.English: {
		"What is a SIP?",
		"Explain ELSS mutual funds",
		"How do I create an emergency fund?",
		"Tell me about UPI safety tips",
	},
	finanzas.Hindi: {
		"SIP क्या है?",
		"ELSS म्यूचुअल फंड समझाएँ",
		"आपातकालीन निधि कैसे बनाएं?",
		"UPI सुरक्षा टिप्स बताइए",
	},
}

var locales = map[finanzas.Language]language.Tag{
	finanzas.English: language.MustParse("en-IN"),
	finanzas.Hindi:   language.MustParse("hi-IN"),
}

var matcher = language.NewMatcher([]language.Tag{locales[finanzas.English], locales[finanzas.Hindi]})

// T returns the phrase for key in lang. A missing key or language yields the
// key itself.
func T(lang finanzas.Language, key Key) string {
	if table, ok := phrases[lang]; ok {
		if s, ok := table[key]; ok {
			return s
		}
	}
	return string(key)
}

// Table returns a copy of the phrase table for lang, keyed by string.
func Table(lang finanzas.Language) map[string]string {
	table, ok := phrases[lang]
	if !ok {
		table = phrases[finanzas.English]
	}
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[string(k)] = v
	}
	return out
}

// QuickReplies returns the suggested questions for lang, falling back to English.
func QuickReplies(lang finanzas.Language) []string {
	replies, ok := quickReplies[lang]
	if !ok {
		replies = quickReplies[finanzas.English]
	}
	return append([]string(nil), replies...)
}

// Locale returns the BCP 47 tag used for speech and time formatting.
func Locale(lang finanzas.Language) language.Tag {
	if tag, ok := locales[lang]; ok {
		return tag
	}
	return locales[finanzas.English]
}

// Negotiate picks the supported language that best matches an HTTP
// Accept-Language header. Unparsable or empty headers yield English.
func Negotiate(acceptLanguage string) finanzas.Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return finanzas.English
	}
	_, idx, _ := matcher.Match(tags...)
	if idx == 1 {
		return finanzas.Hindi
	}
	return finanzas.English
}
