package app

import (
	"math"
	"sort"

	"survey-service/internal/domain"
)

// Aggregate computes dashboard statistics from the full question and response sets.
// It is a pure function of its inputs; answers to unknown questions are ignored.
func Aggregate(questions []domain.Question, responses []domain.Response) domain.Stats {
	emails := make(map[string]struct{}, len(responses))
	byQuestion := make(map[string][]domain.Answer, len(questions))
	for _, r := range responses {
		emails[r.UserEmail] = struct{}{}
		for _, a := range r.Answers {
			byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a)
		}
	}

	ordered := sortByOrder(questions)
	stats := make([]domain.QuestionStat, 0, len(ordered))
	for _, q := range ordered {
		stats = append(stats, questionStat(q, byQuestion[q.ID]))
	}

	return domain.Stats{
		TotalResponses:    len(responses),
		UniqueRespondents: len(emails),
		TotalQuestions:    len(questions),
		QuestionStats:     stats,
	}
}

func questionStat(q domain.Question, answers []domain.Answer) domain.QuestionStat {
	stat := domain.QuestionStat{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		QuestionType: q.Type,
		TotalAnswers: len(answers),
	}
	if len(answers) == 0 {
		return stat
	}

	stat.Frequency = make(map[string]int)
	var firstSeen []string
	for _, a := range answers {
		v := a.DisplayValue()
		if _, ok := stat.Frequency[v]; !ok {
			firstSeen = append(firstSeen, v)
		}
		stat.Frequency[v]++
	}

	stat.Distribution = make([]domain.FrequencyEntry, 0, len(firstSeen))
	for _, v := range firstSeen {
		count := stat.Frequency[v]
		stat.Distribution = append(stat.Distribution, domain.FrequencyEntry{
			Value:   v,
			Count:   count,
			Percent: Percent(count, stat.TotalAnswers),
		})
	}
	return stat
}

// Percent returns round(count / total * 100), or 0 when total is zero.
func Percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// BuildResponseViews renders responses for display, newest first.
// Answers whose question no longer exists get the "question not found" label.
func BuildResponseViews(questions []domain.Question, responses []domain.Response) []domain.ResponseView {
	index := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		index[q.ID] = q
	}

	views := make([]domain.ResponseView, 0, len(responses))
	for _, r := range responses {
		view := domain.ResponseView{
			ID:        r.ID,
			UserEmail: r.UserEmail,
			UserName:  r.UserName,
			Timestamp: r.Timestamp,
			Answers:   make([]domain.AnswerView, 0, len(r.Answers)),
		}
		for _, a := range r.Answers {
			av := domain.AnswerView{QuestionID: a.QuestionID, Value: a.DisplayValue()}
			if q, ok := index[a.QuestionID]; ok {
				av.QuestionText = q.Text
			} else {
				av.QuestionText = domain.QuestionNotFoundLabel
				av.Orphaned = true
			}
			view.Answers = append(view.Answers, av)
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Timestamp.After(views[j].Timestamp)
	})
	return views
}

// sortByOrder returns a copy sorted ascending by Order; ties keep their input order.
func sortByOrder(questions []domain.Question) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
