// Package prompt builds the system preamble sent with every question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/longkey1/finanzas/internal/finanzas"
)

// DefaultSystem is the built-in coaching preamble. {{language}} is replaced
// with the reply language name.
const DefaultSystem = `You are Finanzas, an AI financial literacy coach specifically designed for Indian youth. You provide helpful, accurate, and culturally relevant financial advice focusing on:

- Indian investment options: SIP, mutual funds, stocks, bonds
- Tax planning: 80C deductions, ELSS, tax-saving FDs
- Banking: Savings accounts, FDs, RDs
- Insurance: Health, life, term insurance
- Digital payments: UPI, wallets, fintech apps
- Retirement planning: PPF, NPS, EPF
- Goal-based planning: Emergency funds, budgeting

Keep responses concise, practical, and encourage smart financial habits. Use Indian examples and context. Respond in {{language}}.`

// Preamble renders system preambles for a language.
type Preamble struct {
	template string
}

// NewPreamble returns the built-in preamble, or the one in path when path is set.
func NewPreamble(path string) (*Preamble, error) {
	if path == "" {
		return &Preamble{template: DefaultSystem}, nil
	}
	p, err := LoadPrompt(path)
	if err != nil {
		return nil, err
	}
	return &Preamble{template: p.System}, nil
}

// System returns the preamble for lang.
func (p *Preamble) System(lang finanzas.Language) string {
	return strings.ReplaceAll(p.template, "{{language}}", lang.DisplayName())
}

// Compose joins the preamble and the user's question into the single text
// part used by single-prompt APIs.
func Compose(system, text string) string {
	if system == "" {
		return fmt.Sprintf("User question: %s", text)
	}
	return fmt.Sprintf("%s\n\nUser question: %s", system, text)
}
