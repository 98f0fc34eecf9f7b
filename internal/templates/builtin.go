package templates

import (
	"time"

	"github.com/dpshade/pocket-meta/internal/models"
)

// Built-in template IDs
const (
	GeneralNoteID   = "general-note"
	MeetingNotesID  = "meeting-notes"
	AcademicPaperID = "academic-paper"
	BookReviewID    = "book-review"
	ProjectPlanID   = "project-plan"
)

// builtinEpoch is the fixed creation time reported for built-in templates
var builtinEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var builtinCategories = map[string]category{
	GeneralNoteID:   categoryGeneral,
	MeetingNotesID:  categoryMeeting,
	AcademicPaperID: categoryAcademic,
	BookReviewID:    categoryBook,
	ProjectPlanID:   categoryProject,
}

func builtinTemplates() []models.Template {
	list := []models.Template{
		{
			ID:          GeneralNoteID,
			Name:        "General Note",
			Description: "Title, summary, and tags for any kind of note",
			YAMLSkeleton: `title:
summary:
tags: []
created: {{date}}`,
			Instructions: `Generate a concise lowercase-hyphenated title that captures the main topic.
Write a one or two sentence summary of the note.
Choose 3 to 6 tags describing the subject, domain, and type of content.`,
		},
		{
			ID:          MeetingNotesID,
			Name:        "Meeting Notes",
			Description: "Date, attendees, decisions, and action items of a meeting",
			YAMLSkeleton: `title:
meeting_date:
attendees: []
decisions: []
action_items: []
tags: [meeting]
created: {{date}}`,
			Instructions: `Extract the meeting date if it is mentioned, otherwise leave it empty.
List every attendee named in the note.
Summarize each decision in one short sentence.
List action items as "owner: task" when an owner is given.
Always keep the meeting tag and add tags for the topics discussed.`,
		},
		{
			ID:          AcademicPaperID,
			Name:        "Academic Paper",
			Description: "Bibliographic fields and research summary for papers and study notes",
			YAMLSkeleton: `title:
authors: []
year:
venue:
research_field:
keywords: []
summary:
tags: [paper]
created: {{date}}`,
			Instructions: `Identify the paper title, authors, publication year, and venue when present.
Name the research field in a few words.
Extract 3 to 8 keywords used by the paper itself.
Summarize the contribution and method in two sentences.`,
		},
		{
			ID:          BookReviewID,
			Name:        "Book Review",
			Description: "Author, genre, rating, and takeaways for reading notes",
			YAMLSkeleton: `title:
book_title:
author:
genre:
rating:
status:
key_takeaways: []
tags: [book]
created: {{date}}`,
			Instructions: `Record the original book title and author exactly as written in the note.
Infer the genre.
Give a rating from 1 to 5 only if the note expresses an opinion, otherwise leave it empty.
Status is one of: to-read, reading, finished.
List up to five key takeaways.`,
		},
		{
			ID:          ProjectPlanID,
			Name:        "Project Plan",
			Description: "Status, owner, milestones, and deadlines of a project",
			YAMLSkeleton: `title:
project:
status:
owner:
start_date:
due_date:
milestones: []
tags: [project]
created: {{date}}`,
			Instructions: `Name the project and its owner if mentioned.
Status is one of: planning, active, blocked, done.
Use ISO dates (YYYY-MM-DD) for start and due dates when they can be determined.
List milestones in chronological order.`,
		},
	}

	for i := range list {
		list[i].IsBuiltIn = true
		list[i].CreatedAt = builtinEpoch
		list[i].UpdatedAt = builtinEpoch
	}
	return list
}
