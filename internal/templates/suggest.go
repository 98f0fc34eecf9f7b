package templates

import (
	"sort"
	"strings"

	"github.com/dpshade/pocket-meta/internal/models"
)

type category string

const (
	categoryNone     category = ""
	categoryGeneral  category = "general"
	categoryMeeting  category = "meeting"
	categoryAcademic category = "academic"
	categoryBook     category = "book"
	categoryProject  category = "project"
)

// Confidence values per category match. Every category match must stay
// above generalConfidence or the catch-all template would outrank it.
const (
	meetingConfidence  = 0.9
	bookConfidence     = 0.85
	academicConfidence = 0.8
	projectConfidence  = 0.75
	generalConfidence  = 0.3

	// MinConfidence is the floor below which suggestions are dropped
	MinConfidence = 0.2
)

type matcher struct {
	confidence float64
	keywords   []string
	fileHints  []string
	reason     string
}

var matchers = map[category]matcher{
	categoryMeeting: {
		confidence: meetingConfidence,
		keywords: []string{
			"meeting", "agenda", "attendees", "minutes", "action items",
			"会议", "议程", "参会", "纪要",
			"会議", "議題", "議事録",
			"회의", "안건", "참석자",
			"réunion", "ordre du jour",
			"besprechung", "tagesordnung", "protokoll",
			"reunión", "orden del día",
			"riunione", "verbale",
			"совещание", "встреча", "повестка",
		},
		fileHints: []string{"meeting", "minutes", "standup", "会议"},
		reason:    "Document looks like meeting notes",
	},
	categoryBook: {
		confidence: bookConfidence,
		keywords: []string{
			"book", "author", "chapter", "isbn", "reading notes",
			"读书", "书评", "作者", "章节",
			"読書", "著者",
			"책", "독서", "저자",
			"livre", "auteur", "lecture",
			"buch", "autor", "kapitel",
			"libro", "capítulo",
			"romanzo", "capitolo",
			"книга", "автор", "глава",
		},
		fileHints: []string{"book", "reading", "review", "读书"},
		reason:    "Document looks like a book review or reading notes",
	},
	categoryAcademic: {
		confidence: academicConfidence,
		keywords: []string{
			"abstract", "methodology", "hypothesis", "references", "doi", "et al", "research", "paper",
			"论文", "摘要", "研究", "文献",
			"論文", "要旨",
			"논문", "연구", "초록",
			"recherche", "méthodologie",
			"forschung", "methodik", "zusammenfassung",
			"investigación", "metodología",
			"ricerca", "metodologia",
			"исследование", "методология", "аннотация",
		},
		fileHints: []string{"paper", "research", "thesis", "论文"},
		reason:    "Document looks like an academic paper or study notes",
	},
	categoryProject: {
		confidence: projectConfidence,
		keywords: []string{
			"project", "milestone", "deadline", "roadmap", "deliverable", "sprint",
			"项目", "里程碑", "截止",
			"プロジェクト", "マイルストーン",
			"프로젝트", "마일스톤",
			"projet", "échéance",
			"projekt", "meilenstein",
			"proyecto", "hito",
			"progetto", "scadenza",
			"проект", "дедлайн",
		},
		fileHints: []string{"project", "plan", "roadmap", "项目"},
		reason:    "Document looks like a project plan",
	},
}

// Suggest ranks templates by how well they fit the document. The result is
// recomputed on every call and ordered by descending confidence; ties keep
// store order.
func (s *Store) Suggest(body, fileName string) []models.TemplateSuggestion {
	lowerBody := strings.ToLower(body)
	lowerFile := strings.ToLower(fileName)

	var suggestions []models.TemplateSuggestion
	for _, tmpl := range s.All() {
		confidence, reason := s.score(tmpl, lowerBody, lowerFile)
		if confidence <= MinConfidence {
			continue
		}
		suggestions = append(suggestions, models.TemplateSuggestion{
			Template:   tmpl,
			Confidence: confidence,
			Reason:     reason,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions
}

func (s *Store) score(tmpl models.Template, lowerBody, lowerFile string) (float64, string) {
	cat := categoryOf(tmpl)
	if cat == categoryGeneral {
		return generalConfidence, "Default template for any note"
	}
	m, ok := matchers[cat]
	if !ok {
		return 0, ""
	}
	if containsAny(lowerFile, m.fileHints) || containsAny(lowerBody, m.keywords) {
		return m.confidence, m.reason
	}
	return 0, ""
}

// categoryOf uses the fixed table for built-ins and keyword hints in the
// name and description for custom templates
func categoryOf(tmpl models.Template) category {
	if tmpl.IsBuiltIn {
		return builtinCategories[tmpl.ID]
	}
	text := strings.ToLower(tmpl.Name + " " + tmpl.Description)
	for _, cat := range []category{categoryMeeting, categoryBook, categoryAcademic, categoryProject} {
		if containsAny(text, matchers[cat].fileHints) {
			return cat
		}
	}
	return categoryNone
}

func containsAny(s string, needles []string) bool {
	if s == "" {
		return false
	}
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
