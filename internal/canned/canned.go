// Package canned answers common personal-finance questions from a fixed
// keyword table. It needs no network access and backs demos and tests.
package canned

import (
	"context"
	"strings"

	"github.com/longkey1/finanzas/internal/finanzas"
)

const ProviderName = "canned"

type topic struct {
	keywords []string
	replies  map[finanzas.Language]string
}

// topics are checked in order; the first match wins.
var topics = []topic{
	{
		keywords: []string{"sip", "systematic investment", "एसआईपी"},
		replies: map[finanzas.Language]string{
			finanzas.English: "A **SIP (Systematic Investment Plan)** lets you invest a fixed amount in a mutual fund every month, starting from as little as ₹500.\n\n- Rupee cost averaging smooths out market ups and downs\n- Compounding works best when you start early\n- You can pause or stop anytime\n\nTip: Link your SIP date to the day after your salary credit.",
			finanzas.Hindi:   "**SIP (सिस्टमैटिक इन्वेस्टमेंट प्लान)** से आप हर महीने म्यूचुअल फंड में एक तय राशि निवेश करते हैं, सिर्फ ₹500 से शुरुआत संभव है।\n\n- रुपी कॉस्ट एवरेजिंग से बाज़ार के उतार-चढ़ाव का असर कम होता है\n- जल्दी शुरू करने पर कंपाउंडिंग का सबसे ज़्यादा फायदा\n- कभी भी रोक या बंद कर सकते हैं",
		},
	},
	{
		keywords: []string{"elss", "80c", "tax", "कर", "टैक्स"},
		replies: map[finanzas.Language]string{
			finanzas.English: "**ELSS (Equity Linked Savings Scheme)** funds qualify for deduction under **Section 80C** up to ₹1.5 lakh a year.\n\n- Shortest lock-in among 80C options: 3 years\n- Equity exposure means higher long-term return potential\n- Gains above ₹1.25 lakh a year are taxed as LTCG\n\nOther 80C options: PPF, EPF, tax-saving FDs, life insurance premiums.",
			finanzas.Hindi:   "**ELSS (इक्विटी लिंक्ड सेविंग्स स्कीम)** में निवेश पर **धारा 80C** के तहत सालाना ₹1.5 लाख तक की छूट मिलती है।\n\n- 80C विकल्पों में सबसे कम लॉक-इन: 3 साल\n- इक्विटी में निवेश से लंबी अवधि में बेहतर रिटर्न की संभावना\n\nअन्य 80C विकल्प: PPF, EPF, टैक्स-सेविंग FD, जीवन बीमा प्रीमियम।",
		},
	},
	{
		keywords: []string{"emergency", "आपातकालीन"},
		replies: map[finanzas.Language]string{
			finanzas.English: "Build an **emergency fund** worth **6 months of expenses** before investing aggressively.\n\n1. Work out your monthly essentials (rent, food, EMIs, insurance)\n2. Park the money in a high-interest savings account, sweep-in FD or liquid fund\n3. Top it up automatically each month until you reach the target\n\nUse it only for real emergencies such as job loss or medical bills.",
			finanzas.Hindi:   "आक्रामक निवेश से पहले **6 महीने के खर्च** जितना **आपातकालीन फंड** बनाइए।\n\n1. हर महीने के ज़रूरी खर्च जोड़ें (किराया, खाना, EMI, बीमा)\n2. पैसा हाई-इंटरेस्ट सेविंग्स अकाउंट, स्वीप-इन FD या लिक्विड फंड में रखें\n3. लक्ष्य पूरा होने तक हर महीने अपने-आप जमा करें",
		},
	},
	{
		keywords: []string{"upi", "फ्रॉड", "fraud", "scam"},
		replies: map[finanzas.Language]string{
			finanzas.English: "**UPI safety tips**\n\n- You never need to enter your PIN to *receive* money\n- Do not scan QR codes sent by strangers\n- Never share OTPs or your UPI PIN, not even with \"bank officials\"\n- Check the payee name before confirming\n- Report fraud at once on 1930 or cybercrime.gov.in",
			finanzas.Hindi:   "**UPI सुरक्षा टिप्स**\n\n- पैसे *प्राप्त* करने के लिए कभी PIN नहीं डालना पड़ता\n- अनजान लोगों के भेजे QR कोड स्कैन न करें\n- OTP या UPI PIN किसी से साझा न करें\n- भुगतान से पहले प्राप्तकर्ता का नाम जांचें\n- धोखाधड़ी की शिकायत तुरंत 1930 या cybercrime.gov.in पर करें",
		},
	},
	{
		keywords: []string{"insurance", "term plan", "health cover", "बीमा"},
		replies: map[finanzas.Language]string{
			finanzas.English: "Start with the two essentials:\n\n- **Term life insurance**: cover of 10-15x your annual income if anyone depends on you\n- **Health insurance**: at least ₹5-10 lakh, even if your employer covers you\n\nAvoid mixing insurance with investment (endowment or ULIP plans) early in your career.",
			finanzas.Hindi:   "दो ज़रूरी बीमा से शुरुआत करें:\n\n- **टर्म जीवन बीमा**: अगर कोई आप पर निर्भर है तो सालाना आय का 10-15 गुना कवर\n- **स्वास्थ्य बीमा**: कम से कम ₹5-10 लाख, भले ही कंपनी से कवर मिलता हो",
		},
	},
	{
		keywords: []string{"ppf", "nps", "epf", "retire", "pension", "रिटायर", "पेंशन"},
		replies: map[finanzas.Language]string{
			finanzas.English: "Retirement building blocks in India:\n\n- **EPF**: automatic for salaried employees, 12% of basic from you and your employer\n- **PPF**: 15-year lock-in, tax-free interest, up to ₹1.5 lakh a year\n- **NPS**: market-linked, extra ₹50,000 deduction under 80CCD(1B)\n\nStarting in your 20s lets compounding do most of the work.",
			finanzas.Hindi:   "भारत में रिटायरमेंट की नींव:\n\n- **EPF**: वेतनभोगियों के लिए अपने-आप, बेसिक का 12%\n- **PPF**: 15 साल का लॉक-इन, टैक्स-फ्री ब्याज\n- **NPS**: बाज़ार से जुड़ा, 80CCD(1B) के तहत ₹50,000 की अतिरिक्त छूट",
		},
	},
	{
		keywords: []string{"budget", "save", "saving", "बजट", "बचत"},
		replies: map[finanzas.Language]string{
			finanzas.English: "Try the **50/30/20 rule**:\n\n- 50% needs (rent, groceries, EMIs)\n- 30% wants (eating out, shopping)\n- 20% savings and investments\n\nAutomate the 20% on salary day so you save first and spend what is left.",
			finanzas.Hindi:   "**50/30/20 नियम** अपनाएँ:\n\n- 50% ज़रूरतें (किराया, राशन, EMI)\n- 30% इच्छाएँ (बाहर खाना, शॉपिंग)\n- 20% बचत और निवेश",
		},
	},
	{
		keywords: []string{"fd", "fixed deposit", "rd", "recurring", "एफडी"},
		replies: map[finanzas.Language]string{
			finanzas.English: "**FDs and RDs** are safe, predictable options:\n\n- **FD**: lump sum for a fixed tenure at a fixed rate\n- **RD**: fixed monthly deposits, good for building a habit\n\nInterest is taxed at your slab rate, so post-tax returns may trail inflation.",
			finanzas.Hindi:   "**FD और RD** सुरक्षित और तय रिटर्न वाले विकल्प हैं:\n\n- **FD**: एकमुश्त राशि, तय अवधि और तय ब्याज\n- **RD**: हर महीने तय जमा, बचत की आदत के लिए अच्छा",
		},
	},
	{
		keywords: []string{"stock", "share", "mutual fund", "equity", "शेयर", "म्यूचुअल"},
		replies: map[finanzas.Language]string{
			finanzas.English: "For beginners, **index mutual funds** (Nifty 50, Sensex) are a simple way into equity: low cost and broad diversification.\n\nBuy individual stocks only with money you will not need for 5+ years, and never invest based on social media tips.",
			finanzas.Hindi:   "शुरुआत के लिए **इंडेक्स म्यूचुअल फंड** (Nifty 50, Sensex) इक्विटी में आसान रास्ता हैं: कम लागत और व्यापक विविधता।",
		},
	},
	{
		keywords: []string{"hello", "hi", "hey", "namaste", "नमस्ते"},
		replies: map[finanzas.Language]string{
			finanzas.English: "Hello! Ask me about SIPs, tax saving, emergency funds, insurance or UPI safety.",
			finanzas.Hindi:   "नमस्ते! मुझसे SIP, टैक्स बचत, आपातकालीन फंड, बीमा या UPI सुरक्षा के बारे में पूछें।",
		},
	},
}

var fallback = map[finanzas.Language]string{
	finanzas.English: "That's a great question. A good first step for most financial goals is: build an emergency fund, get term and health insurance, then invest regularly through SIPs. Ask me about any of these to learn more.",
	finanzas.Hindi:   "अच्छा सवाल है। ज़्यादातर वित्तीय लक्ष्यों के लिए पहला कदम: आपातकालीन फंड बनाइए, टर्म और स्वास्थ्य बीमा लीजिए, फिर SIP से नियमित निवेश कीजिए।",
}

// Models lists the single built-in answer table.
func Models() []finanzas.ModelInfo {
	return []finanzas.ModelInfo{
		{ID: "default", Description: "Offline answers for common questions", IsDefault: true},
	}
}

// Provider implements finanzas.Provider with keyword matching.
type Provider struct{}

// NewProvider returns the canned responder.
func NewProvider() *Provider { return &Provider{} }

// Name implements finanzas.Provider.
func (p *Provider) Name() string { return ProviderName }

// Reply implements finanzas.Provider. It fails only when ctx is done.
func (p *Provider) Reply(ctx context.Context, req finanzas.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Answer(req.Language, req.Text), nil
}

// Answer returns the reply for text in lang.
func Answer(lang finanzas.Language, text string) string {
	words := tokenize(text)
	lower := strings.ToLower(text)
	for _, t := range topics {
		for _, kw := range t.keywords {
			if matches(kw, lower, words) {
				return localized(t.replies, lang)
			}
		}
	}
	return localized(fallback, lang)
}

// matches treats short ASCII keywords as whole words and everything else as substrings.
func matches(kw, lower string, words map[string]bool) bool {
	if len(kw) <= 3 && isASCII(kw) {
		return words[kw]
	}
	return strings.Contains(lower, kw)
}

func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		words[w] = true
	}
	return words
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

func localized(m map[finanzas.Language]string, lang finanzas.Language) string {
	if s, ok := m[lang]; ok {
		return s
	}
	return m[finanzas.English]
}
