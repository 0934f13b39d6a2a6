package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"survey-service/internal/domain"
)

// Store keeps the survey collections in Postgres tables; options and answers are JSONB.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, text, type, options, sort_order FROM questions ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return questions, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, text, type, options, sort_order FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.QuestionNotFound(id)
	}
	return q, err
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	opts, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (id, text, type, options, sort_order) VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.Text, string(q.Type), opts, q.Order)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	opts, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE questions SET text=$2, type=$3, options=$4, sort_order=$5 WHERE id=$1`,
		q.ID, q.Text, string(q.Type), opts, q.Order)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.QuestionNotFound(q.ID)
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.QuestionNotFound(id)
	}
	return nil
}

func (s *Store) AppendResponse(ctx context.Context, r domain.Response) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO responses (id, user_email, user_name, answers, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.UserEmail, r.UserName, string(answers), r.Timestamp)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *Store) ListResponses(ctx context.Context) ([]domain.Response, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_email, user_name, answers, created_at FROM responses ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	responses := []domain.Response{}
	for rows.Next() {
		var (
			r   domain.Response
			raw []byte
		)
		if err := rows.Scan(&r.ID, &r.UserEmail, &r.UserName, &raw, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		if err := json.Unmarshal(raw, &r.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		r.Timestamp = r.Timestamp.UTC()
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return responses, nil
}

func (s *Store) CountResponsesByEmail(ctx context.Context, email string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM responses WHERE user_email=$1`, email).Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT allow_multiple_responses, admin_password_hash FROM survey_settings WHERE id=1`,
	).Scan(&settings.AllowMultipleResponses, &settings.AdminPasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settings{}, domain.SettingsNotFound()
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings upserts the singleton row; NULL parameters keep the stored column.
func (s *Store) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO survey_settings (id, allow_multiple_responses, admin_password_hash)
		 VALUES (1, COALESCE($1::boolean, false), COALESCE($2::text, ''))
		 ON CONFLICT (id) DO UPDATE SET
		   allow_multiple_responses = COALESCE($1::boolean, survey_settings.allow_multiple_responses),
		   admin_password_hash = COALESCE($2::text, survey_settings.admin_password_hash)`,
		patch.AllowMultipleResponses, patch.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q   domain.Question
		typ string
		raw []byte
	)
	if err := row.Scan(&q.ID, &q.Text, &typ, &raw, &q.Order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	q.Type = domain.QuestionType(typ)
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	return q, nil
}

func encodeOptions(opts []string) (string, error) {
	if opts == nil {
		opts = []string{}
	}
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}
