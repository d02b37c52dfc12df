package app

import (
	"rest-polls/internal/domain"
)

const (
	msgNoAnswers        = "There are no answers"
	msgOnlyOneAnswer    = "This type of question requires only one answer"
	msgMultipleAnswers  = "This type of question requires multiple answers"
	msgIsTrueRequired   = "This answer requires boolean field 'is_true'"
	msgOneTrueAnswer    = "[OA] ONE_ANSWER question_type must have only one TRUE answer value in 'is_true' field"
	msgAllTrue          = "All answers can not be TRUE"
	msgAllFalse         = "All answers can not be FALSE"
	msgOneAnswerProcess = "[OA] ONE_ANSWER question_type must have only one TRUE answer"
	msgRequired         = "This field is required."
	msgDuplicateName    = "Duplicate name"
	msgInvalidType      = "Invalid question_type"
)

// questionShape is the mode-independent view of a question the rules inspect.
type questionShape struct {
	name    string
	typ     domain.QuestionType
	answers int
}

// baseRules apply in every mode.
func baseRules(q questionShape) error {
	if q.answers == 0 {
		return domain.Invalid(q.name, msgNoAnswers)
	}
	if q.typ == domain.QuestionOnlyText && q.answers > 1 {
		return domain.Invalid(q.name, msgOnlyOneAnswer)
	}
	return nil
}

// ValidatePollInput checks an authoring payload. create requires the poll's scalar
// fields; updates may omit them. Validation stops at the first failure.
func ValidatePollInput(in domain.PollInput, create bool) error {
	if create {
		switch {
		case in.Name == nil || *in.Name == "":
			return domain.Invalid("poll_name", msgRequired)
		case in.FinishDate == nil:
			return domain.Invalid("date_finish", msgRequired)
		case in.Description == nil:
			return domain.Invalid("description", msgRequired)
		}
	} else if in.Name != nil && *in.Name == "" {
		return domain.Invalid("poll_name", msgRequired)
	}
	if in.Questions == nil {
		return domain.Invalid("questions", msgRequired)
	}

	names := make(map[string]struct{}, len(in.Questions))
	for _, q := range in.Questions {
		if q.Name == "" {
			return domain.Invalid("question_name", msgRequired)
		}
		if _, dup := names[q.Name]; dup {
			return domain.Invalid(q.Name, msgDuplicateName)
		}
		names[q.Name] = struct{}{}
		if err := ValidateQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQuestion applies the base and authoring rules to one authored question.
func ValidateQuestion(q domain.QuestionInput) error {
	if !q.Type.Valid() {
		return domain.Invalid(q.Name, msgInvalidType)
	}
	answerNames := make(map[string]struct{}, len(q.Answers))
	for _, a := range q.Answers {
		if a.Name == "" {
			return domain.Invalid("answer_name", msgRequired)
		}
		if _, dup := answerNames[a.Name]; dup {
			return domain.Invalid(a.Name, msgDuplicateName)
		}
		answerNames[a.Name] = struct{}{}
	}

	if err := baseRules(questionShape{name: q.Name, typ: q.Type, answers: len(q.Answers)}); err != nil {
		return err
	}
	if q.Type == domain.QuestionOnlyText {
		return nil
	}
	if len(q.Answers) < 2 {
		return domain.Invalid(q.Name, msgMultipleAnswers)
	}

	trueCount := 0
	for _, a := range q.Answers {
		if a.IsTrue == nil {
			return domain.Invalid(a.Name, msgIsTrueRequired)
		}
		if *a.IsTrue {
			trueCount++
		}
	}
	// An all-true ONE_ANSWER question reports "all true" rather than the cardinality error.
	if trueCount == len(q.Answers) {
		return domain.Invalid(q.Name, msgAllTrue)
	}
	if q.Type == domain.QuestionOneAnswer && trueCount > 1 {
		last := q.Answers[len(q.Answers)-1]
		return domain.Invalid(last.Name, msgOneTrueAnswer)
	}
	if trueCount == 0 {
		return domain.Invalid(q.Name, msgAllFalse)
	}
	return nil
}

// ValidateSubmission applies the base and submission rules to an enriched
// submission (see intake). Validation stops at the first failure.
func ValidateSubmission(in domain.ProcessInput) error {
	for _, q := range in.Questions {
		if err := baseRules(questionShape{name: q.Name, typ: q.Type, answers: len(q.Answers)}); err != nil {
			return err
		}
		if q.Type == domain.QuestionOneAnswer && len(q.Answers) > 1 {
			return domain.Invalid(q.Name, msgOneAnswerProcess)
		}
		for _, a := range q.Answers {
			if a.AnswerID == nil {
				return domain.Invalid("answer_id", msgRequired)
			}
		}
	}
	return nil
}
