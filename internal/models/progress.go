package models

import "time"

// Stat counter field names. These match the keys the frontend sends to the
// increment endpoint, so they are part of the API contract.
const (
	StatDocumentsAnalyzed = "documentsAnalyzed"
	StatQuestionsAnswered = "questionsAnswered"
	StatStudyHours        = "studyHours"
	StatExamsPrepared     = "examsPrepared"
	StatConversations     = "conversations"
	StatAchievements      = "achievements"
)

// StatFields lists every valid counter name.
var StatFields = []string{
	StatDocumentsAnalyzed,
	StatQuestionsAnswered,
	StatStudyHours,
	StatExamsPrepared,
	StatConversations,
	StatAchievements,
}

// IsValidStatField reports whether name is a known counter.
func IsValidStatField(name string) bool {
	for _, f := range StatFields {
		if f == name {
			return true
		}
	}
	return false
}

// UserStats holds the per-user usage counters. All counters are non-negative
// and, apart from achievements (which is recomputed), only ever incremented.
type UserStats struct {
	DocumentsAnalyzed int `json:"documentsAnalyzed"`
	QuestionsAnswered int `json:"questionsAnswered"`
	StudyHours        int `json:"studyHours"`
	ExamsPrepared     int `json:"examsPrepared"`
	Conversations     int `json:"conversations"`
	Achievements      int `json:"achievements"`
}

// Get returns the value of a counter by field name.
func (s UserStats) Get(field string) int {
	switch field {
	case StatDocumentsAnalyzed:
		return s.DocumentsAnalyzed
	case StatQuestionsAnswered:
		return s.QuestionsAnswered
	case StatStudyHours:
		return s.StudyHours
	case StatExamsPrepared:
		return s.ExamsPrepared
	case StatConversations:
		return s.Conversations
	case StatAchievements:
		return s.Achievements
	}
	return 0
}

// Achievement is a named milestone. Earned is monotonic: once set it is never
// cleared, and EarnedDate is written exactly once on the false→true transition.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"desc"`
	Icon        string     `json:"icon"`
	Earned      bool       `json:"earned"`
	EarnedDate  *time.Time `json:"earnedDate,omitempty"`
}

// Achievement IDs.
const (
	AchFirstUpload    = "first-upload"
	AchHundredQs      = "100-questions"
	AchWeekStreak     = "week-streak"
	AchMasterLearner  = "master-learner"
	AchDocumentExpert = "document-expert"
	AchAICollaborator = "ai-collaborator"
)

// DefaultAchievements returns the full unearned achievement table.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{ID: AchFirstUpload, Title: "First Upload", Description: "Uploaded your first document", Icon: "🎉"},
		{ID: AchHundredQs, Title: "100 Questions", Description: "Asked 100 questions", Icon: "🎯"},
		{ID: AchWeekStreak, Title: "Week Streak", Description: "7 days of continuous learning", Icon: "🔥"},
		{ID: AchMasterLearner, Title: "Master Learner", Description: "1000 hours of study", Icon: "🏆"},
		{ID: AchDocumentExpert, Title: "Document Expert", Description: "Analyzed 50+ documents", Icon: "📚"},
		{ID: AchAICollaborator, Title: "AI Collaborator", Description: "Perfect sync with AI", Icon: "🤖"},
	}
}

// ActivityDay is one weekday slot of the per-user activity chart.
type ActivityDay struct {
	Day   string `json:"day"`
	Value int    `json:"value"`
}

// Weekdays are the seven fixed activity slot labels, Monday first.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// IsValidWeekday reports whether day is one of the seven slot labels.
func IsValidWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// DefaultActivity returns seven zeroed weekday slots.
func DefaultActivity() []ActivityDay {
	days := make([]ActivityDay, 0, len(Weekdays))
	for _, d := range Weekdays {
		days = append(days, ActivityDay{Day: d})
	}
	return days
}

// Profile is the user's display profile.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Bio    string `json:"bio"`
	Joined string `json:"joined"` // YYYY-MM-DD
}

// DefaultProfile returns the guest profile used before any update.
func DefaultProfile(userID string) Profile {
	return Profile{
		ID:     userID,
		Name:   "Guest User",
		Email:  "guest@example.com",
		Avatar: "👨‍💻",
		Bio:    "New user exploring the document assistant",
		Joined: time.Now().UTC().Format("2006-01-02"),
	}
}

// Settings holds per-user preferences.
type Settings struct {
	Language      string `json:"language"`
	Notifications bool   `json:"notifications"`
	AutoSave      bool   `json:"autoSave"`
}

// DefaultSettings returns the initial settings for a new user.
func DefaultSettings() Settings {
	return Settings{Language: "en", Notifications: true, AutoSave: true}
}
