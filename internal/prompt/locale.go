package prompt

import "github.com/dpshade/pocket-meta/internal/langdetect"

// Locale is the fixed set of localized strings used to build one prompt
type Locale struct {
	SystemRole          string
	LanguageInstruction string
	FileNameLabel       string
	ContentLabel        string
	ExistingLabel       string
	UpdateInstruction   string
}

var locales = map[langdetect.Language]Locale{
	langdetect.English: {
		SystemRole:          "You are a metadata assistant for a markdown note-taking app. You read a note and produce YAML front matter that describes it.",
		LanguageInstruction: "The note is written in English. Write every value in English.",
		FileNameLabel:       "File name:",
		ContentLabel:        "Document content:",
		ExistingLabel:       "Existing metadata:",
		UpdateInstruction:   "Update the existing metadata based on the document. Keep values that are still accurate.",
	},
	langdetect.Chinese: {
		SystemRole:          "你是一个 Markdown 笔记应用的元数据助手。你阅读笔记并生成描述它的 YAML front matter。",
		LanguageInstruction: "笔记使用中文书写。请用中文填写字段值。中文标签保持中文且不要包含空格，技术术语和专有名词保留拉丁字母并使用小写连字符格式。",
		FileNameLabel:       "文件名：",
		ContentLabel:        "文档内容：",
		ExistingLabel:       "现有元数据：",
		UpdateInstruction:   "请根据文档内容更新现有元数据，保留仍然准确的值。",
	},
	langdetect.Japanese: {
		SystemRole:          "あなたは Markdown ノートアプリのメタデータアシスタントです。ノートを読み、それを説明する YAML フロントマターを生成します。",
		LanguageInstruction: "ノートは日本語で書かれています。値は日本語で記述してください。日本語のタグは空白を含めずそのまま使い、技術用語や固有名詞はラテン文字の小文字ハイフン形式にしてください。",
		FileNameLabel:       "ファイル名：",
		ContentLabel:        "ドキュメントの内容：",
		ExistingLabel:       "既存のメタデータ：",
		UpdateInstruction:   "ドキュメントに基づいて既存のメタデータを更新し、正確な値は保持してください。",
	},
	langdetect.Korean: {
		SystemRole:          "당신은 마크다운 노트 앱의 메타데이터 도우미입니다. 노트를 읽고 이를 설명하는 YAML 프런트 매터를 생성합니다.",
		LanguageInstruction: "노트는 한국어로 작성되었습니다. 값은 한국어로 작성하세요. 한국어 태그는 공백 없이 그대로 두고, 기술 용어와 고유 명사는 라틴 문자 소문자 하이픈 형식을 사용하세요.",
		FileNameLabel:       "파일 이름:",
		ContentLabel:        "문서 내용:",
		ExistingLabel:       "기존 메타데이터:",
		UpdateInstruction:   "문서를 바탕으로 기존 메타데이터를 업데이트하고, 여전히 정확한 값은 유지하세요.",
	},
	langdetect.French: {
		SystemRole:          "Vous êtes un assistant de métadonnées pour une application de notes markdown. Vous lisez une note et produisez un front matter YAML qui la décrit.",
		LanguageInstruction: "La note est rédigée en français. Rédigez toutes les valeurs en français.",
		FileNameLabel:       "Nom du fichier :",
		ContentLabel:        "Contenu du document :",
		ExistingLabel:       "Métadonnées existantes :",
		UpdateInstruction:   "Mettez à jour les métadonnées existantes à partir du document. Conservez les valeurs encore exactes.",
	},
	langdetect.German: {
		SystemRole:          "Du bist ein Metadaten-Assistent für eine Markdown-Notiz-App. Du liest eine Notiz und erzeugst YAML-Front-Matter, das sie beschreibt.",
		LanguageInstruction: "Die Notiz ist auf Deutsch verfasst. Schreibe alle Werte auf Deutsch.",
		FileNameLabel:       "Dateiname:",
		ContentLabel:        "Dokumentinhalt:",
		ExistingLabel:       "Vorhandene Metadaten:",
		UpdateInstruction:   "Aktualisiere die vorhandenen Metadaten anhand des Dokuments. Behalte Werte, die noch stimmen.",
	},
	langdetect.Spanish: {
		SystemRole:          "Eres un asistente de metadatos para una aplicación de notas en markdown. Lees una nota y generas el front matter YAML que la describe.",
		LanguageInstruction: "La nota está escrita en español. Escribe todos los valores en español.",
		FileNameLabel:       "Nombre del archivo:",
		ContentLabel:        "Contenido del documento:",
		ExistingLabel:       "Metadatos existentes:",
		UpdateInstruction:   "Actualiza los metadatos existentes según el documento. Conserva los valores que sigan siendo correctos.",
	},
	langdetect.Italian: {
		SystemRole:          "Sei un assistente per i metadati di un'app di note in markdown. Leggi una nota e produci il front matter YAML che la descrive.",
		LanguageInstruction: "La nota è scritta in italiano. Scrivi tutti i valori in italiano.",
		FileNameLabel:       "Nome del file:",
		ContentLabel:        "Contenuto del documento:",
		ExistingLabel:       "Metadati esistenti:",
		UpdateInstruction:   "Aggiorna i metadati esistenti in base al documento. Mantieni i valori ancora corretti.",
	},
	langdetect.Russian: {
		SystemRole:          "Вы помощник по метаданным для приложения заметок в формате markdown. Вы читаете заметку и создаёте описывающий её YAML front matter.",
		LanguageInstruction: "Заметка написана на русском языке. Пишите все значения на русском. Теги на кириллице допустимы, технические термины и имена собственные оставляйте латиницей в нижнем регистре через дефис.",
		FileNameLabel:       "Имя файла:",
		ContentLabel:        "Содержимое документа:",
		ExistingLabel:       "Существующие метаданные:",
		UpdateInstruction:   "Обновите существующие метаданные на основе документа, сохранив значения, которые остаются верными.",
	},
}

// LocaleFor returns the strings for lang, falling back to English
func LocaleFor(lang langdetect.Language) Locale {
	if l, ok := locales[lang]; ok {
		return l
	}
	return locales[langdetect.English]
}
