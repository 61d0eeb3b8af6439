package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"studymate/internal/database"
	"studymate/internal/models"
)

// statColumns maps API counter names onto user_stats columns. Field names
// arrive from the increment endpoint, so the mapping doubles as validation.
var statColumns = map[string]string{
	models.StatDocumentsAnalyzed: "documents_analyzed",
	models.StatQuestionsAnswered: "questions_answered",
	models.StatStudyHours:        "study_hours",
	models.StatExamsPrepared:     "exams_prepared",
	models.StatConversations:     "conversations",
	models.StatAchievements:      "achievements",
}

// NewSQLiteStores returns every repository backed by the given database.
func NewSQLiteStores(db *database.DB) *Stores {
	return &Stores{
		Stats:        &sqliteStats{db: db},
		Achievements: &sqliteAchievements{db: db},
		Activity:     &sqliteActivity{db: db},
		History:      &sqliteHistory{db: db},
		Profiles:     &sqliteProfiles{db: db},
		Settings:     &sqliteSettings{db: db},
		Documents:    &sqliteDocuments{db: db},
	}
}

type sqliteStats struct {
	db *database.DB
}

func (s *sqliteStats) Get(ctx context.Context, userID string) (models.UserStats, error) {
	var st models.UserStats
	err := s.db.QueryRowContext(ctx, `
		SELECT documents_analyzed, questions_answered, study_hours,
		       exams_prepared, conversations, achievements
		FROM user_stats WHERE user_id = ?`, userID).
		Scan(&st.DocumentsAnalyzed, &st.QuestionsAnswered, &st.StudyHours,
			&st.ExamsPrepared, &st.Conversations, &st.Achievements)
	if err == sql.ErrNoRows {
		return models.UserStats{}, nil
	}
	if err != nil {
		return models.UserStats{}, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}

func (s *sqliteStats) Increment(ctx context.Context, userID, field string, delta int) (models.UserStats, error) {
	col, ok := statColumns[field]
	if !ok {
		return models.UserStats{}, fmt.Errorf("unknown stat field %q", field)
	}
	// Single-statement read-modify-write; SQLite serializes writers, so
	// concurrent increments of the same key cannot lose updates.
	query := fmt.Sprintf(`
		INSERT INTO user_stats (user_id, %s) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			%s = %s + excluded.%s,
			updated_at = CURRENT_TIMESTAMP`, col, col, col, col)
	if _, err := s.db.ExecContext(ctx, query, userID, delta); err != nil {
		return models.UserStats{}, fmt.Errorf("increment %s: %w", field, err)
	}
	return s.Get(ctx, userID)
}

func (s *sqliteStats) SetCounter(ctx context.Context, userID, field string, value int) error {
	col, ok := statColumns[field]
	if !ok {
		return fmt.Errorf("unknown stat field %q", field)
	}
	query := fmt.Sprintf(`
		INSERT INTO user_stats (user_id, %s) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			%s = excluded.%s,
			updated_at = CURRENT_TIMESTAMP`, col, col, col)
	if _, err := s.db.ExecContext(ctx, query, userID, value); err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	return nil
}

type sqliteAchievements struct {
	db *database.DB
}

func (s *sqliteAchievements) Get(ctx context.Context, userID string) ([]models.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT achievement_id, earned, earned_date
		FROM achievements WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get achievements: %w", err)
	}
	defer rows.Close()

	stored := make(map[string]models.Achievement)
	for rows.Next() {
		var (
			a      models.Achievement
			earned int
			date   sql.NullTime
		)
		if err := rows.Scan(&a.ID, &earned, &date); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		a.Earned = earned != 0
		if date.Valid {
			t := date.Time
			a.EarnedDate = &t
		}
		stored[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achievements: %w", err)
	}
	return mergeAchievements(stored), nil
}

func (s *sqliteAchievements) Put(ctx context.Context, userID string, achievements []models.Achievement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin achievements tx: %w", err)
	}
	defer tx.Rollback()

	for _, a := range achievements {
		earned := 0
		if a.Earned {
			earned = 1
		}
		var date interface{}
		if a.EarnedDate != nil {
			date = *a.EarnedDate
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO achievements (user_id, achievement_id, title, description, icon, earned, earned_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, achievement_id) DO UPDATE SET
				earned = excluded.earned,
				earned_date = COALESCE(achievements.earned_date, excluded.earned_date)`,
			userID, a.ID, a.Title, a.Description, a.Icon, earned, date)
		if err != nil {
			return fmt.Errorf("put achievement %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

type sqliteActivity struct {
	db *database.DB
}

func (s *sqliteActivity) Get(ctx context.Context, userID string) ([]models.ActivityDay, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, value FROM activity WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	defer rows.Close()

	stored := make(map[string]int)
	for rows.Next() {
		var (
			day   string
			value int
		)
		if err := rows.Scan(&day, &value); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		stored[day] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return mergeActivity(stored), nil
}

func (s *sqliteActivity) Add(ctx context.Context, userID, day string, delta int) ([]models.ActivityDay, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (user_id, day, value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, day) DO UPDATE SET value = value + excluded.value`,
		userID, day, delta)
	if err != nil {
		return nil, fmt.Errorf("add activity: %w", err)
	}
	return s.Get(ctx, userID)
}

type sqliteHistory struct {
	db *database.DB
}

func (s *sqliteHistory) List(ctx context.Context, userID string, limit int) ([]models.ChatHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, title, messages, updated_at
		FROM chat_history WHERE user_id = ?
		ORDER BY updated_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []models.ChatHistory
	for rows.Next() {
		h := models.ChatHistory{UserID: userID}
		var raw []byte
		if err := rows.Scan(&h.SessionID, &h.Title, &raw, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if err := json.Unmarshal(raw, &h.Messages); err != nil {
			return nil, fmt.Errorf("decode history messages: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *sqliteHistory) Get(ctx context.Context, userID, sessionID string) (*models.ChatHistory, error) {
	h := models.ChatHistory{UserID: userID, SessionID: sessionID}
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT title, messages, updated_at
		FROM chat_history WHERE user_id = ? AND session_id = ?`,
		userID, sessionID).Scan(&h.Title, &raw, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if err := json.Unmarshal(raw, &h.Messages); err != nil {
		return nil, fmt.Errorf("decode history messages: %w", err)
	}
	return &h, nil
}

func (s *sqliteHistory) Save(ctx context.Context, h models.ChatHistory) error {
	raw, err := json.Marshal(h.Messages)
	if err != nil {
		return fmt.Errorf("encode history messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_history (user_id, session_id, title, messages, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET
			title = excluded.title,
			messages = excluded.messages,
			updated_at = excluded.updated_at`,
		h.UserID, h.SessionID, h.Title, raw, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *sqliteHistory) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_history WHERE updated_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type sqliteProfiles struct {
	db *database.DB
}

func (s *sqliteProfiles) Get(ctx context.Context, userID string) (models.Profile, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM profiles WHERE user_id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.DefaultProfile(userID), nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *sqliteProfiles) Put(ctx context.Context, userID string, p models.Profile) error {
	p.ID = userID
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

type sqliteSettings struct {
	db *database.DB
}

func (s *sqliteSettings) Get(ctx context.Context, userID string) (models.Settings, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT settings FROM settings WHERE user_id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	var st models.Settings
	if err := json.Unmarshal(raw, &st); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return st, nil
}

func (s *sqliteSettings) Put(ctx context.Context, userID string, st models.Settings) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (user_id, settings) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET settings = excluded.settings`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

type sqliteDocuments struct {
	db *database.DB
}

func (s *sqliteDocuments) List(ctx context.Context) ([]models.DocumentRef, error) {
	return s.list(ctx, `SELECT id, name, status, pages, content, uploaded_at
		FROM documents ORDER BY uploaded_at ASC`)
}

func (s *sqliteDocuments) ListProcessed(ctx context.Context) ([]models.DocumentRef, error) {
	return s.list(ctx, `SELECT id, name, status, pages, content, uploaded_at
		FROM documents WHERE status = 'processed' ORDER BY uploaded_at ASC`)
}

func (s *sqliteDocuments) list(ctx context.Context, query string) ([]models.DocumentRef, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentRef
	for rows.Next() {
		var d models.DocumentRef
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.Pages, &d.Text, &d.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteDocuments) Get(ctx context.Context, id string) (*models.DocumentRef, error) {
	var d models.DocumentRef
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, pages, content, uploaded_at
		FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Status, &d.Pages, &d.Text, &d.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (s *sqliteDocuments) Put(ctx context.Context, d models.DocumentRef) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, status, pages, content, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			pages = excluded.pages,
			content = excluded.content`,
		d.ID, d.Name, d.Status, d.Pages, d.Text, d.UploadedAt)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (s *sqliteDocuments) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteDocuments) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE status = 'failed' AND uploaded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete failed documents: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
