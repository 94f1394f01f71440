package service

import (
	"strings"
	"unicode"
)

type Intent string

const (
	IntentHelp         Intent = "help"
	IntentCourses      Intent = "courses"
	IntentProgress     Intent = "progress"
	IntentBadges       Intent = "badges"
	IntentParcours     Intent = "parcours"
	IntentCertificates Intent = "certificates"
	IntentAccount      Intent = "account"
	IntentGreeting     Intent = "greeting"
	IntentQuestion     Intent = "question"
	IntentUnknown      Intent = "unknown"
	IntentError        Intent = "error"
)

type chatCommand struct {
	Command string
	Intent  Intent
}

// chatCommands 命令表，按顺序做子串匹配
var chatCommands = []chatCommand{
	{"/aide", IntentHelp},
	{"/help", IntentHelp},
	{"/parcours", IntentParcours},
	{"/cours", IntentCourses},
	{"/progression", IntentProgress},
	{"/badges", IntentBadges},
	{"/certificats", IntentCertificates},
	{"/compte", IntentAccount},
}

type keywordCategory struct {
	Intent   Intent
	Keywords []string
}

// keywordCategories 关键词分类，按顺序匹配，第一类命中即返回。
// "parcours" 包含 "cours"，必须排在课程之前
var keywordCategories = []keywordCategory{
	{IntentParcours, []string{"parcours", "programme", "chemin"}},
	{IntentCourses, []string{"cours", "leçon", "lecon", "formation", "module"}},
	{IntentProgress, []string{"progression", "progrès", "progres", "avancement", "statistique"}},
	{IntentBadges, []string{"badge", "récompense", "recompense", "niveau"}},
	{IntentCertificates, []string{"certificat", "diplôme", "diplome", "attestation"}},
	{IntentAccount, []string{"mot de passe", "email", "profil", "compte"}},
	{IntentHelp, []string{"aide", "help", "comment faire"}},
}

var greetingWords = map[string]bool{
	"bonjour": true, "salut": true, "hello": true, "bonsoir": true, "coucou": true, "hey": true,
}

var (
	negativeWords = []string{"difficile", "dur", "perdu", "bloqué", "bloque", "nul", "problème", "probleme",
		"découragé", "decourage", "fatigué", "fatigue", "impossible", "triste", "stress", "abandonner"}
	positiveWords = []string{"merci", "super", "génial", "genial", "bien", "content", "top", "parfait",
		"cool", "bravo", "facile", "adore"}
)

var encouragements = []string{
	"Courage, chaque leçon terminée vous rapproche de votre objectif !",
	"Ne lâchez rien : les difficultés font partie de l'apprentissage.",
	"Faites une petite pause puis reprenez, vous allez y arriver.",
	"Vous avez déjà fait du chemin, continuez comme ça !",
	"Un pas après l'autre : revenez demain pour garder votre série.",
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// DetectIntent 优先级：命令表 > 关键词分类 > 问候语 > 含问号为提问 > 未知
func DetectIntent(text string) (Intent, string) {
	lower := normalize(text)
	if lower == "" {
		return IntentUnknown, ""
	}
	for _, c := range chatCommands {
		if strings.Contains(lower, c.Command) {
			return c.Intent, c.Command
		}
	}
	for _, cat := range keywordCategories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return cat.Intent, kw
			}
		}
	}
	for _, w := range words(lower) {
		if greetingWords[w] {
			return IntentGreeting, w
		}
	}
	if strings.Contains(lower, "?") {
		return IntentQuestion, ""
	}
	return IntentUnknown, ""
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// DetectSentiment 统计正负面词出现次数，多者胜，相等为中性
func DetectSentiment(text string) Sentiment {
	tokens := words(normalize(text))
	count := func(list []string) int {
		n := 0
		for _, t := range tokens {
			for _, w := range list {
				if t == w {
					n++
				}
			}
		}
		return n
	}
	neg, pos := count(negativeWords), count(positiveWords)
	switch {
	case neg > pos:
		return SentimentNegative
	case pos > neg:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

// allChatKeywords 关键词统计使用的词表
func allChatKeywords() []string {
	var out []string
	for _, cat := range keywordCategories {
		out = append(out, cat.Keywords...)
	}
	return out
}
