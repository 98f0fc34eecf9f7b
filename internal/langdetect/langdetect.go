// Package langdetect guesses the dominant language of a note so prompts can
// be localized. It is heuristic: script ratios first, then stopword scores,
// then accented-letter frequencies. Detection never fails; unknown input is
// reported as English.
package langdetect

import (
	"strings"
	"unicode"
)

// Language is a supported language code
type Language string

const (
	English  Language = "en"
	Chinese  Language = "zh"
	Japanese Language = "ja"
	Korean   Language = "ko"
	French   Language = "fr"
	German   Language = "de"
	Spanish  Language = "es"
	Italian  Language = "it"
	Russian  Language = "ru"
)

// Supported lists every language the detector can return, in tie-break order
var Supported = []Language{English, Chinese, Japanese, Korean, French, German, Spanish, Italian, Russian}

// Parse maps a language code onto a supported Language, falling back to English
func Parse(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range Supported {
		if string(lang) == code {
			return lang
		}
	}
	return English
}

const (
	chineseThreshold  = 0.10
	japaneseThreshold = 0.05
	koreanThreshold   = 0.05
	russianThreshold  = 0.10

	minStopwordScore = 3
	bigramWeight     = 2

	diacriticThreshold       = 0.01
	doubleConsonantThreshold = 0.10
)

var stopwords = map[Language][]string{
	English:  {"the", "and", "is", "are", "was", "were", "of", "to", "in", "that", "it", "for", "on", "with", "as", "this", "be", "have", "not", "by", "from", "or", "at", "which"},
	Chinese:  {"的", "是", "在", "了", "和", "有", "我", "这", "个", "们", "中", "来", "上", "为", "就", "也", "不", "说"},
	Japanese: {"の", "は", "が", "を", "に", "で", "と", "た", "し", "て", "ます", "です", "ある", "いる", "こと", "する"},
	Korean:   {"이", "는", "을", "를", "에", "의", "가", "은", "하다", "있다", "그", "수", "것", "합니다"},
	French:   {"le", "la", "les", "de", "des", "et", "est", "un", "une", "du", "que", "qui", "dans", "pour", "pas", "sur", "avec", "ce", "sont", "nous"},
	German:   {"der", "die", "das", "und", "ist", "nicht", "ein", "eine", "zu", "den", "mit", "von", "sich", "auf", "für", "dem", "auch", "wir", "sind", "werden"},
	Spanish:  {"el", "la", "los", "las", "de", "y", "que", "en", "un", "una", "es", "por", "con", "para", "del", "se", "como", "pero", "más", "está"},
	Italian:  {"il", "lo", "la", "gli", "le", "di", "che", "è", "e", "un", "una", "per", "non", "sono", "del", "della", "con", "come", "anche", "questo"},
	Russian:  {"и", "в", "не", "на", "что", "с", "по", "это", "как", "он", "она", "они", "мы", "вы", "но", "для", "из", "от", "так", "был"},
}

// scripts without word separators are scored by substring occurrence
var substringScored = map[Language]bool{Chinese: true, Japanese: true, Korean: true}

var englishBigramLeads = map[string]bool{"the": true, "and": true, "of": true, "in": true, "to": true}

// Detect returns the most likely language of text
func Detect(text string) Language {
	normalized := normalize(text)
	runes := []rune(normalized)
	total := len(runes)
	if total == 0 {
		return English
	}

	var han, kana, hangul, cyrillic int
	for _, r := range runes {
		switch {
		case isHan(r):
			han++
		case isKana(r):
			kana++
		case isHangul(r):
			hangul++
		case isCyrillic(r):
			cyrillic++
		}
	}

	switch {
	case ratio(han, total) > chineseThreshold:
		return Chinese
	case ratio(kana, total) > japaneseThreshold:
		return Japanese
	case ratio(hangul, total) > koreanThreshold:
		return Korean
	case ratio(cyrillic, total) > russianThreshold:
		return Russian
	}

	lower := strings.ToLower(normalized)
	words := strings.Fields(lower)

	best, bestScore := English, 0
	for _, lang := range Supported {
		score := stopwordScore(lang, lower, words)
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	if bestScore >= minStopwordScore {
		return best
	}

	if lang, ok := detectByDiacritics(lower, words); ok {
		return lang
	}
	return English
}

// Scores exposes the raw stopword score per language, mainly for debugging
func Scores(text string) map[Language]int {
	lower := strings.ToLower(normalize(text))
	words := strings.Fields(lower)
	scores := make(map[Language]int, len(Supported))
	for _, lang := range Supported {
		scores[lang] = stopwordScore(lang, lower, words)
	}
	return scores
}

func stopwordScore(lang Language, lower string, words []string) int {
	score := 0
	if substringScored[lang] {
		for _, sw := range stopwords[lang] {
			score += strings.Count(lower, sw)
		}
		return score
	}

	set := make(map[string]bool, len(stopwords[lang]))
	for _, sw := range stopwords[lang] {
		set[sw] = true
	}
	for _, w := range words {
		if set[w] {
			score++
		}
	}

	if lang == English {
		for i := 0; i+1 < len(words); i++ {
			if englishBigramLeads[words[i]] && isLatinWord(words[i+1]) {
				score += bigramWeight
			}
		}
	}
	return score
}

func detectByDiacritics(lower string, words []string) (Language, bool) {
	letters := 0
	counts := map[Language]int{}
	for _, r := range lower {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch r {
		case 'ä', 'ö', 'ü', 'ß':
			counts[German]++
		case 'ñ', '¿', '¡', 'á', 'í', 'ó', 'ú':
			counts[Spanish]++
		case 'é', 'ê', 'ë', 'â', 'ç', 'û', 'ô', 'î', 'ï':
			counts[French]++
		case 'à', 'è', 'ì', 'ò', 'ù':
			counts[Italian]++
			if r == 'à' || r == 'è' || r == 'ù' {
				counts[French]++
			}
		}
	}
	if letters == 0 {
		return "", false
	}

	for _, lang := range []Language{German, Spanish, French, Italian} {
		if ratio(counts[lang], letters) > diacriticThreshold {
			return lang, true
		}
	}

	if len(words) > 0 && ratio(countDoubledConsonants(words), len(words)) > doubleConsonantThreshold {
		return Italian, true
	}
	return "", false
}

func countDoubledConsonants(words []string) int {
	n := 0
	for _, w := range words {
		rs := []rune(w)
		for i := 1; i < len(rs); i++ {
			if rs[i] == rs[i-1] && isConsonant(rs[i]) {
				n++
				break
			}
		}
	}
	return n
}

func isConsonant(r rune) bool {
	return strings.ContainsRune("bcdfglmnprstvz", r)
}

// normalize replaces every rune outside the whitelisted letter ranges with a
// space so punctuation never glues words together
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) || isAllowed(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(b.String())
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '¿' || r == '¡':
		return true
	case r >= 0x00C0 && r <= 0x024F:
		return r != 0x00D7 && r != 0x00F7
	}
	return isHan(r) || isKana(r) || isHangul(r) || isCyrillic(r)
}

func isHan(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

func isKana(r rune) bool {
	return r >= 0x3040 && r <= 0x30FF
}

func isHangul(r rune) bool {
	return (r >= 0xAC00 && r <= 0xD7AF) || (r >= 0x1100 && r <= 0x11FF)
}

func isCyrillic(r rune) bool {
	return r >= 0x0400 && r <= 0x04FF
}

func isLatinWord(w string) bool {
	for _, r := range w {
		if !(r >= 'a' && r <= 'z') && !(r >= 0x00C0 && r <= 0x024F) {
			return false
		}
	}
	return w != ""
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// ContainsCJK reports whether s has any Han, Kana, or Hangul rune
func ContainsCJK(s string) bool {
	for _, r := range s {
		if isHan(r) || isKana(r) || isHangul(r) {
			return true
		}
	}
	return false
}

// IsCJK reports whether r is a Han, Kana, or Hangul rune
func IsCJK(r rune) bool {
	return isHan(r) || isKana(r) || isHangul(r)
}
