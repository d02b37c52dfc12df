package app

import (
	"testing"

	"rest-polls/internal/domain"
)

func testKey() domain.AnswerKey {
	return buildAnswerKey(1,
		[]domain.Question{
			{ID: 10, PollID: 1, Name: "many", Type: domain.QuestionManyAnswers},
			{ID: 11, PollID: 1, Name: "text", Type: domain.QuestionOnlyText},
		},
		map[int64][]domain.Answer{
			10: {{ID: 5, QuestionID: 10, IsTrue: true}, {ID: 3, QuestionID: 10, IsTrue: true}},
			11: {{ID: 20, QuestionID: 11, Name: "Paris", IsTrue: true}},
		},
	)
}

func submission(qid int64, typ domain.QuestionType, answers ...domain.ProcessAnswerInput) domain.ProcessInput {
	return domain.ProcessInput{
		PollID:    ptr(int64(1)),
		Questions: []domain.ProcessQuestionInput{{QuestionID: ptr(qid), Type: typ, Answers: answers}},
	}
}

func ids(v ...int64) []domain.ProcessAnswerInput {
	out := make([]domain.ProcessAnswerInput, 0, len(v))
	for _, id := range v {
		out = append(out, domain.ProcessAnswerInput{AnswerID: ptr(id)})
	}
	return out
}

func TestScoreManyAnswersIsOrderSensitive(t *testing.T) {
	key := testKey()
	cases := []struct {
		given []int64
		want  bool
	}{
		{[]int64{3, 5}, true},
		{[]int64{5, 3}, false},
		{[]int64{3}, false},
		{[]int64{3, 5, 7}, false},
	}
	for _, tc := range cases {
		got := scoreSubmission(key, submission(10, domain.QuestionManyAnswers, ids(tc.given...)...))
		if got[0].Correct != tc.want {
			t.Fatalf("given %v: expected %v, got %v", tc.given, tc.want, got[0].Correct)
		}
	}
}

func TestScoreTextIsCaseSensitive(t *testing.T) {
	key := testKey()
	ref := textAnswerRef
	for text, want := range map[string]bool{"Paris": true, "paris": false, "Paris ": false} {
		got := scoreSubmission(key, submission(11, domain.QuestionOnlyText, domain.ProcessAnswerInput{AnswerID: &ref, Name: text}))
		if got[0].Correct != want {
			t.Fatalf("%q: expected %v, got %v", text, want, got[0].Correct)
		}
	}
}

func TestScoreUnknownQuestionIsFalse(t *testing.T) {
	got := scoreSubmission(testKey(), submission(99, domain.QuestionManyAnswers, ids(3)...))
	if len(got) != 1 || got[0].QuestionID != 99 || got[0].Correct {
		t.Fatalf("unexpected verdicts %+v", got)
	}
}
