package service

import (
	"context"
	"fmt"
	"learner_dashboard/internal/model"
	"learner_dashboard/pkg/logger"
	"learner_dashboard/pkg/monitoring"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	chatHistoryLimit   = 50
	chatApology        = "Désolé, je rencontre un problème technique. Veuillez réessayer dans un instant."
	recommendedInReply = 3
)

type ChatAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

type ChatResponse struct {
	Text    string                 `json:"text"`
	Type    Intent                 `json:"type"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Actions []ChatAction           `json:"actions,omitempty"`
}

// LearnerData 聊天机器人回答所需的用户数据
type LearnerData interface {
	BadgeStatus(ctx context.Context, userID uint) (*model.BadgeStatus, error)
	Recommendations(ctx context.Context, userID uint, limit int) ([]Recommendation, error)
	Overview(ctx context.Context, userID uint) (*model.OverviewReport, error)
	ParcoursList(ctx context.Context, userID uint) ([]model.ParcoursProgress, error)
	CertificateList(ctx context.Context, userID uint) ([]model.Certificate, error)
}

// ChatbotService 基于规则的聊天机器人，任何失败都转换为致歉回复
type ChatbotService struct {
	Chats   ChatStore
	Data    LearnerData
	Tracker *EventService
	Now     func() time.Time

	mu   sync.Mutex
	rand *rand.Rand
}

func NewChatbotService(chats ChatStore, data LearnerData, tracker *EventService, rnd *rand.Rand) *ChatbotService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ChatbotService{Chats: chats, Data: data, Tracker: tracker, Now: time.Now, rand: rnd}
}

func (s *ChatbotService) encouragement() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return encouragements[s.rand.Intn(len(encouragements))]
}

// ProcessMessage 保存消息、识别意图、生成并保存回复；永远不返回错误
func (s *ChatbotService) ProcessMessage(ctx context.Context, userID uint, text string) (resp ChatResponse) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("聊天处理异常", zap.Uint("userID", userID), zap.Any("panic", r))
			resp = apology()
		}
	}()

	if err := s.Chats.Create(ctx, &model.ChatMessage{UserID: userID, Type: model.ChatFromUser, Text: text}); err != nil {
		return s.fail(userID, "保存用户消息失败", err)
	}

	intent, matched := DetectIntent(text)
	monitoring.ChatIntents.WithLabelValues(string(intent)).Inc()

	resp, err := s.respond(ctx, userID, intent)
	if err != nil {
		return s.fail(userID, "生成回复失败", err)
	}

	sentiment := DetectSentiment(text)
	if sentiment == SentimentNegative {
		resp.Text += "\n\n" + s.encouragement()
	}

	reply := &model.ChatMessage{
		UserID: userID,
		Type:   model.ChatFromBot,
		Text:   resp.Text,
		ResponseMetadata: map[string]interface{}{
			"intent":    string(intent),
			"matched":   matched,
			"sentiment": string(sentiment),
		},
	}
	if err := s.Chats.Create(ctx, reply); err != nil {
		return s.fail(userID, "保存机器人回复失败", err)
	}

	s.Tracker.Track(ctx, userID, model.EventChatMessage, map[string]interface{}{"intent": string(intent)})
	return resp
}

func apology() ChatResponse {
	return ChatResponse{Text: chatApology, Type: IntentError}
}

func (s *ChatbotService) fail(userID uint, msg string, err error) ChatResponse {
	logger.Log.Error(msg, zap.Uint("userID", userID), zap.Error(err))
	return apology()
}

func (s *ChatbotService) respond(ctx context.Context, userID uint, intent Intent) (ChatResponse, error) {
	switch intent {
	case IntentHelp:
		return ChatResponse{
			Type: intent,
			Text: "Je peux vous parler de vos cours, de votre progression, de vos badges, de vos parcours et de vos certificats.",
			Actions: []ChatAction{
				{Label: "Mes cours", Action: "/cours"},
				{Label: "Ma progression", Action: "/progression"},
				{Label: "Mes badges", Action: "/badges"},
				{Label: "Mes parcours", Action: "/parcours"},
			},
		}, nil

	case IntentCourses:
		recs, err := s.Data.Recommendations(ctx, userID, recommendedInReply)
		if err != nil {
			return ChatResponse{}, err
		}
		if len(recs) == 0 {
			return ChatResponse{Type: intent, Text: "Vous êtes inscrit à tous nos cours publiés. Bravo !"}, nil
		}
		titles := make([]string, len(recs))
		for i, r := range recs {
			titles[i] = r.Course.Title
		}
		return ChatResponse{
			Type:    intent,
			Text:    "Voici des cours qui pourraient vous intéresser : " + strings.Join(titles, ", ") + ".",
			Data:    map[string]interface{}{"recommendations": recs},
			Actions: []ChatAction{{Label: "Voir le catalogue", Action: "open_courses"}},
		}, nil

	case IntentProgress:
		overview, err := s.Data.Overview(ctx, userID)
		if err != nil {
			return ChatResponse{}, err
		}
		return ChatResponse{
			Type: intent,
			Text: fmt.Sprintf("Sur les 30 derniers jours : %d cours terminé(s), %d quiz, série de %d jour(s).",
				overview.CoursesCompleted, overview.QuizzesCompleted, overview.LearningStreakDays),
			Data:    map[string]interface{}{"overview": overview},
			Actions: []ChatAction{{Label: "Voir mes statistiques", Action: "open_analytics"}},
		}, nil

	case IntentBadges:
		status, err := s.Data.BadgeStatus(ctx, userID)
		if err != nil {
			return ChatResponse{}, err
		}
		text := fmt.Sprintf("Votre badge actuel est « %s » avec %d points.", status.Tier, status.TotalPoints)
		if len(status.Special) > 0 {
			names := make([]string, len(status.Special))
			for i, b := range status.Special {
				names[i] = string(b.Badge)
			}
			text += " Badges spéciaux : " + strings.Join(names, ", ") + "."
		}
		return ChatResponse{Type: intent, Text: text, Data: map[string]interface{}{"badge": status}}, nil

	case IntentParcours:
		list, err := s.Data.ParcoursList(ctx, userID)
		if err != nil {
			return ChatResponse{}, err
		}
		var parts []string
		for _, p := range list {
			if p.Unlocked {
				parts = append(parts, fmt.Sprintf("%s (%d%%)", p.Name, p.Percentage))
			}
		}
		if len(parts) == 0 {
			return ChatResponse{
				Type:    intent,
				Text:    "Aucun parcours n'est disponible avec votre abonnement actuel.",
				Actions: []ChatAction{{Label: "Voir les abonnements", Action: "open_membership"}},
			}, nil
		}
		return ChatResponse{
			Type: intent,
			Text: "Vos parcours : " + strings.Join(parts, ", ") + ".",
			Data: map[string]interface{}{"parcours": list},
		}, nil

	case IntentCertificates:
		certs, err := s.Data.CertificateList(ctx, userID)
		if err != nil {
			return ChatResponse{}, err
		}
		if len(certs) == 0 {
			return ChatResponse{Type: intent, Text: "Vous n'avez pas encore de certificat. Terminez un parcours pour en obtenir un !"}, nil
		}
		return ChatResponse{
			Type: intent,
			Text: fmt.Sprintf("Vous avez %d certificat(s).", len(certs)),
			Data: map[string]interface{}{"certificates": certs},
		}, nil

	case IntentAccount:
		return ChatResponse{
			Type:    intent,
			Text:    "Vous pouvez modifier votre mot de passe et votre email depuis votre profil.",
			Actions: []ChatAction{{Label: "Mon profil", Action: "open_profile"}},
		}, nil

	case IntentGreeting:
		return ChatResponse{Type: intent, Text: "Bonjour ! Comment puis-je vous aider aujourd'hui ?",
			Actions: []ChatAction{{Label: "Aide", Action: "/aide"}}}, nil

	case IntentQuestion:
		return ChatResponse{Type: intent, Text: "Bonne question ! Je ne suis pas sûr de pouvoir y répondre. Tapez /aide pour voir ce que je sais faire."}, nil

	default:
		return ChatResponse{Type: IntentUnknown, Text: "Je n'ai pas compris. Tapez /aide pour voir ce que je sais faire."}, nil
	}
}

func (s *ChatbotService) History(ctx context.Context, userID uint, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > chatHistoryLimit {
		limit = chatHistoryLimit
	}
	return s.Chats.History(ctx, userID, limit)
}

// CountKeywords 统计文本中各关键词出现次数；单词关键词按整词匹配
func CountKeywords(texts []string) []model.KeywordCount {
	counts := make(map[string]int)
	for _, text := range texts {
		lower := normalize(text)
		tokens := words(lower)
		for _, kw := range allChatKeywords() {
			if strings.Contains(kw, " ") {
				counts[kw] += strings.Count(lower, kw)
				continue
			}
			for _, t := range tokens {
				if t == kw || t == kw+"s" {
					counts[kw]++
				}
			}
		}
	}

	out := make([]model.KeywordCount, 0, len(counts))
	for kw, n := range counts {
		if n > 0 {
			out = append(out, model.KeywordCount{Keyword: kw, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

// KeywordFrequency 最近 days 天用户消息中的关键词频率
func (s *ChatbotService) KeywordFrequency(ctx context.Context, days, top int) ([]model.KeywordCount, error) {
	texts, err := s.Chats.UserTextsSince(ctx, s.Now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	counts := CountKeywords(texts)
	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}
	return counts, nil
}

// Prune 删除超过保留期的聊天记录
func (s *ChatbotService) Prune(ctx context.Context, retentionDays int) (int64, error) {
	return s.Chats.DeleteBefore(ctx, s.Now().AddDate(0, 0, -retentionDays))
}
